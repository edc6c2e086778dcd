// Package vessel is a capability-based extension host for a desktop
// automation backend.
//
// Third-party integrations ship as portable WebAssembly components rather
// than being compiled into the host. Each extension declares the capabilities
// it needs in a manifest; the host enforces those capabilities at every
// boundary call and verifies a tamper digest on every start.
//
// # Architecture Overview
//
// The repository is organized into packages with distinct responsibilities:
//
//	vessel/
//	├── manifest/    Descriptor parsing, api-version gate, tamper hashing
//	├── capability/  Immutable deny-by-default permission validator
//	├── host/        The function surface exposed to guest components
//	├── wasmhost/    Per-module component runtime and serial dispatch loop
//	├── module/      Module abstraction, registry, and command routing
//	├── bus/         Shared broadcast event bus with stateful snapshots
//	├── wire/        Versioned JSON envelope spoken with clients
//	├── server/      TCP and websocket wire endpoints
//	├── config/      TOML host configuration with per-module tables
//	└── verrors/     Structured error types for the host's taxonomy
//
// # Flow
//
// A client request enters through the wire envelope, is parsed into a call or
// subscription, and handed to the module manager. The manager forwards calls
// over a per-module command channel. For a wasm module, the dispatch loop in
// wasmhost receives the command, invokes the guest entry point, and lets the
// guest issue host calls; each host call passes the capability validator
// before the host surface does any work. Events emitted by any module go onto
// one broadcast bus; each wasm module's loop filters the bus against the
// subscription patterns its guest registered before delivering.
package vessel
