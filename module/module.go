// Package module defines the unit of functionality the host runs and the
// manager that routes commands between them.
//
// A Module is a capability set of {name, run}: native modules and the wasm
// runtime are two variants conforming to it. The Manager keeps a name-indexed
// registry, forwards inbound commands over per-module channels, and exposes
// the shared event bus.
package module

import (
	"context"

	"github.com/burakkaraceylan/vessel/bus"
)

// commandBuffer bounds each module's inbound command queue.
const commandBuffer = 32

// Command is an inbound instruction for one module. Action and Params are
// opaque to the routing layer.
type Command struct {
	// Target selects the recipient module by registered name.
	Target string
	// Action names the operation within the module.
	Action string
	// Params is the decoded JSON argument object.
	Params any
}

// Module is a unit of functionality registered under a stable name. Run owns
// the module's dispatch loop and returns when ctx is cancelled.
type Module interface {
	Name() string
	Run(ctx context.Context, mc Context) error
}

// Context carries the endpoints a running module needs: its inbound command
// queue and the shared event bus publisher. Modules that want bus events
// subscribe themselves via Publisher.Subscribe.
type Context struct {
	Commands  <-chan Command
	Publisher *bus.Publisher
}
