package wasmhost

import (
	"context"
	"fmt"

	"github.com/wippyai/wasm-runtime/runtime"

	"github.com/burakkaraceylan/vessel/verrors"
)

// GuestEvent is the marshaled form handed to on-event. Data carries the
// payload as a JSON string.
type GuestEvent struct {
	Module    string
	Name      string
	Version   uint32
	Data      string
	Timestamp uint64
}

// guest abstracts the component's exported entry points so the dispatch loop
// can be exercised without a compiled binary. Errors of kind trap are
// unrecoverable faults; errors of kind guest_failure are failure results the
// guest returned deliberately.
type guest interface {
	OnLoad(ctx context.Context) error
	OnEvent(ctx context.Context, e GuestEvent) error
	OnCommand(ctx context.Context, action, params string) (string, error)
	OnTimer(ctx context.Context, handle uint32) error
	OnWebsocketMessage(ctx context.Context, handle uint32, message string) error
	OnUnload(ctx context.Context) error
}

// componentGuest adapts a runtime instance to the guest interface.
type componentGuest struct {
	moduleID string
	inst     *runtime.Instance
}

func (g *componentGuest) OnLoad(ctx context.Context) error {
	v, err := g.inst.Call(ctx, "on-load")
	return decodeResult(g.moduleID, "on-load", v, err)
}

func (g *componentGuest) OnEvent(ctx context.Context, e GuestEvent) error {
	_, err := g.inst.Call(ctx, "on-event", map[string]any{
		"module":    e.Module,
		"name":      e.Name,
		"version":   e.Version,
		"data":      e.Data,
		"timestamp": e.Timestamp,
	})
	return decodeResult(g.moduleID, "on-event", nil, err)
}

func (g *componentGuest) OnCommand(ctx context.Context, action, params string) (string, error) {
	v, err := g.inst.Call(ctx, "on-command", action, params)
	if derr := decodeResult(g.moduleID, "on-command", v, err); derr != nil {
		return "", derr
	}
	if m, isMap := v.(map[string]any); isMap {
		if out, isString := m["ok"].(string); isString {
			return out, nil
		}
	}
	return "", nil
}

func (g *componentGuest) OnTimer(ctx context.Context, handle uint32) error {
	_, err := g.inst.Call(ctx, "on-timer", handle)
	return decodeResult(g.moduleID, "on-timer", nil, err)
}

func (g *componentGuest) OnWebsocketMessage(ctx context.Context, handle uint32, message string) error {
	_, err := g.inst.Call(ctx, "on-websocket-message", handle, message)
	return decodeResult(g.moduleID, "on-websocket-message", nil, err)
}

func (g *componentGuest) OnUnload(ctx context.Context) error {
	_, err := g.inst.Call(ctx, "on-unload")
	return decodeResult(g.moduleID, "on-unload", nil, err)
}

// decodeResult folds a call outcome into the host error taxonomy. A transport
// error is a trap; a lifted {"err": ...} value is a deliberate guest failure.
func decodeResult(moduleID, entry string, v any, callErr error) error {
	if callErr != nil {
		return verrors.Trap(moduleID, entry, callErr)
	}
	if m, isMap := v.(map[string]any); isMap {
		if msg, failed := m["err"]; failed {
			return verrors.GuestFailure(moduleID, entry, fmt.Sprintf("%v", msg))
		}
	}
	return nil
}
