// Package wasmhost runs sandboxed wasm extension modules.
//
// Each WasmModule owns one guest component's execution context: the component
// runtime, the instance, the capability validator built from its manifest, and
// the host surface bound to the instance. Its Run loop bridges the host's
// asynchronous event world into the guest's synchronous call model: commands,
// bus events, timer fires, and websocket messages are drained by one serial
// loop, so at most one guest entry point is active at a time per instance.
// Host functions called from inside an entry point may block; other modules
// keep making progress because every run loop is its own goroutine.
//
// Guests export on-load, on-unload, on-event, on-command, on-timer, and
// on-websocket-message. Data payloads cross the boundary as JSON strings, so a
// module can evolve its payload shapes without touching the interface.
//
// An unrecoverable fault inside a guest call is caught at the boundary: the
// host emits a transient "wasm.module_crashed" event and exits that module's
// loop, leaving every other module running.
package wasmhost
