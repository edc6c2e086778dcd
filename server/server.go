// Package server exposes the wire envelope over a raw TCP line protocol and a
// websocket endpoint. Both speak the same JSON envelopes: inbound calls and
// subscriptions, outbound events and responses.
//
// Every connection gets its own bus subscription. On connect the client
// receives the stateful snapshot, so late subscribers see current state
// before the live stream. A connection that never subscribes receives every
// event; subscribe envelopes narrow the stream to matching module.name keys.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/module"
	"github.com/burakkaraceylan/vessel/wire"
)

// shutdownGrace bounds how long the websocket listener lingers after cancel.
const shutdownGrace = 2 * time.Second

type Server struct {
	mgr *module.Manager
	log *zap.Logger
	up  websocket.Upgrader
}

func New(mgr *module.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{mgr: mgr, log: log}
}

// ListenAndServe runs the TCP and websocket endpoints until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, tcpAddr, wsAddr string) error {
	ln, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return err
	}
	s.log.Info("wire endpoint listening", zap.String("tcp", tcpAddr), zap.String("ws", wsAddr))

	httpSrv := &http.Server{Addr: wsAddr, Handler: http.HandlerFunc(s.handleUpgrade)}
	errCh := make(chan error, 2)

	go func() {
		errCh <- s.acceptLoop(ctx, ln)
	}()
	go func() {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
		<-errCh
		<-errCh
		return nil
	case err := <-errCh:
		ln.Close()
		httpSrv.Close()
		return err
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		id := uuid.NewString()
		s.log.Info("companion connected",
			zap.String("conn", id), zap.String("remote", conn.RemoteAddr().String()))
		go func() {
			defer conn.Close()
			s.session(ctx, newLineConn(conn), id)
			s.log.Info("companion disconnected", zap.String("conn", id))
		}()
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	id := uuid.NewString()
	s.log.Info("web client connected",
		zap.String("conn", id), zap.String("remote", r.RemoteAddr))
	defer ws.Close()
	s.session(r.Context(), newSocketConn(ws), id)
	s.log.Info("web client disconnected", zap.String("conn", id))
}

// session drives one client connection: replay the stateful snapshot, then
// select over inbound envelopes and bus events. The session goroutine is the
// only writer on the connection.
func (s *Server) session(ctx context.Context, c conn, id string) {
	log := s.log.With(zap.String("conn", id))

	events := s.mgr.Subscribe()
	defer events.Close()

	for _, e := range s.mgr.Snapshot() {
		if err := s.writeEvent(c, e); err != nil {
			return
		}
	}

	inbound := make(chan wire.Incoming)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			batch, err := c.ReadBatch()
			if err != nil {
				return
			}
			for _, raw := range batch {
				msg, err := wire.ParseIncoming(raw)
				if err != nil {
					log.Warn("invalid envelope", zap.Error(err))
					continue
				}
				select {
				case inbound <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var filters []glob.Glob
	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return

		case msg := <-inbound:
			switch m := msg.(type) {
			case *wire.Call:
				resp := s.routeCall(ctx, m)
				if err := s.write(c, resp); err != nil {
					return
				}
			case *wire.Subscribe:
				g, err := glob.Compile(m.Module + "." + m.Name)
				if err != nil {
					log.Warn("invalid subscribe pattern",
						zap.String("module", m.Module), zap.String("name", m.Name))
					continue
				}
				filters = append(filters, g)
			}

		case e, open := <-events.C():
			if !open {
				return
			}
			if len(filters) > 0 && !matchesAny(filters, e.Key()) {
				continue
			}
			if err := s.writeEvent(c, e); err != nil {
				return
			}
		}
	}
}

// routeCall forwards a call to the manager and builds the correlated
// response. Routing misses are non-fatal: the client gets a failure response
// and the connection stays up.
func (s *Server) routeCall(ctx context.Context, call *wire.Call) *wire.Response {
	var params any
	if len(call.Params) > 0 {
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return &wire.Response{
				RequestID: call.RequestID,
				Success:   false,
				Data:      map[string]any{"error": "invalid params: " + err.Error()},
			}
		}
	}
	if err := s.mgr.RouteCommand(ctx, call.Module, call.Name, params); err != nil {
		return &wire.Response{
			RequestID: call.RequestID,
			Success:   false,
			Data:      map[string]any{"error": err.Error()},
		}
	}
	return &wire.Response{RequestID: call.RequestID, Success: true, Data: map[string]any{}}
}

func (s *Server) writeEvent(c conn, e bus.Event) error {
	return s.write(c, wire.EventFrom(e))
}

func (s *Server) write(c conn, msg wire.Outgoing) error {
	data, err := wire.EncodeOutgoing(msg)
	if err != nil {
		return err
	}
	return c.WriteEnvelope(data)
}

func matchesAny(filters []glob.Glob, key string) bool {
	for _, g := range filters {
		if g.Match(key) {
			return true
		}
	}
	return false
}
