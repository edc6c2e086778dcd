package wasmhost

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/host"
	"github.com/burakkaraceylan/vessel/module"
	"github.com/burakkaraceylan/vessel/verrors"
)

// CrashEventSource and CrashEventName identify the transient event emitted
// when a guest faults.
const (
	CrashEventSource = "wasm"
	CrashEventName   = "module_crashed"
)

var trapErr = verrors.New(verrors.PhaseRuntime, verrors.KindTrap).Build()

// dispatch is the serial loop bridging host events into guest invocations.
// The underlying store is single-threaded, so exactly one entry point runs at
// a time; everything the loop drains is ordered per source.
//
// Once on-load has succeeded, every exit path runs the unload routine: it
// calls on-unload and then closes the arena, cancelling pending timers and
// closing open sockets. When on-load fails or traps, on-unload is not called
// and only the arena is closed.
func (m *WasmModule) dispatch(ctx context.Context, g guest, s *host.Surface, mc module.Context) error {
	if err := g.OnLoad(ctx); err != nil {
		if errors.Is(err, trapErr) {
			m.log.Error("guest trapped", zap.Error(err))
			mc.Publisher.Send(bus.Transient(CrashEventSource, CrashEventName, map[string]any{
				"id":     m.man.ID,
				"reason": err.Error(),
			}))
			s.Handles().Close()
			return err
		}
		// A failure result marks the module inert: no entry points are called
		// and the host continues.
		m.log.Error("on-load failed, module inert", zap.Error(err))
		s.Handles().Close()
		return nil
	}

	events := mc.Publisher.Subscribe()
	defer events.Close()

	// crashed reports whether err is an unrecoverable guest fault. If so it
	// publishes the crash event; the loop exits while every other module
	// keeps running.
	crashed := func(err error) bool {
		if !errors.Is(err, trapErr) {
			return false
		}
		m.log.Error("guest trapped", zap.Error(err))
		mc.Publisher.Send(bus.Transient(CrashEventSource, CrashEventName, map[string]any{
			"id":     m.man.ID,
			"reason": err.Error(),
		}))
		return true
	}

	defer func() {
		// Best effort; a module that cannot unload cleanly is going away
		// regardless.
		if err := g.OnUnload(context.WithoutCancel(ctx)); err != nil {
			m.log.Debug("on-unload failed", zap.Error(err))
		}
		s.Handles().Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd, open := <-mc.Commands:
			if !open {
				return nil
			}
			params, err := json.Marshal(cmd.Params)
			if err != nil {
				m.log.Warn("unserializable command params", zap.String("action", cmd.Action), zap.Error(err))
				continue
			}
			// The returned string is discarded until response correlation is
			// wired through the manager.
			if _, err := g.OnCommand(ctx, cmd.Action, string(params)); err != nil {
				if crashed(err) {
					return nil
				}
				m.log.Error("on-command failed", zap.String("action", cmd.Action), zap.Error(err))
			}

		case e, open := <-events.C():
			if !open {
				return nil
			}
			if !s.MatchesSubscription(e.Key()) {
				continue
			}
			data, err := json.Marshal(e.Data)
			if err != nil {
				m.log.Warn("unserializable event payload", zap.String("event", e.Key()), zap.Error(err))
				continue
			}
			ge := GuestEvent{
				Module:    e.Source,
				Name:      e.Name,
				Version:   1,
				Data:      string(data),
				Timestamp: uint64(time.Now().Unix()),
			}
			if err := g.OnEvent(ctx, ge); err != nil {
				if crashed(err) {
					return nil
				}
				m.log.Error("on-event failed", zap.String("event", e.Key()), zap.Error(err))
			}

		case handle := <-s.TimerFires():
			if err := g.OnTimer(ctx, handle); err != nil {
				if crashed(err) {
					return nil
				}
				m.log.Error("on-timer failed", zap.Uint32("handle", handle), zap.Error(err))
			}

		case msg := <-s.SocketMessages():
			if err := g.OnWebsocketMessage(ctx, msg.Handle, msg.Text); err != nil {
				if crashed(err) {
					return nil
				}
				m.log.Error("on-websocket-message failed", zap.Uint32("handle", msg.Handle), zap.Error(err))
			}
		}
	}
}
