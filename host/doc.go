// Package host implements the function surface exposed to guest components.
//
// A Surface is bound to exactly one module instance. Every capability-gated
// function consults the module's capability validator before doing work; on
// denial it performs no side effect and returns a failure result (the empty
// option for storage-get, handle 0 for set-timeout and set-interval). emit,
// config-get and log need no capability, and websocket-send, websocket-close
// and clear-timer act only on handles the instance already holds. Results
// follow the canonical shape the component runtime lowers: map[string]any{"ok": v} for
// success and map[string]any{"err": msg} for failure, nil/string for optional
// strings.
//
// Timers and websocket connections created on behalf of a guest are host-owned
// resources named by opaque 32-bit handles from a per-instance Arena. The
// guest holds only the integer; Close tears everything down on unload, which
// is the only path that frees those resources.
//
// The surface registers under the interface namespace
//
//	vessel:host/host@1.0.0
//
// with the function names subscribe, emit, call, http-request,
// websocket-connect, websocket-send, websocket-close, storage-get,
// storage-set, storage-delete, config-get, set-timeout, set-interval,
// clear-timer, and log.
package host
