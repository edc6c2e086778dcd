package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/module"
)

// pipeConn is an in-memory conn for driving session directly.
type pipeConn struct {
	in  chan []byte
	mu  sync.Mutex
	out [][]byte
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16)}
}

func (c *pipeConn) ReadBatch() ([][]byte, error) {
	data, open := <-c.in
	if !open {
		return nil, context.Canceled
	}
	return [][]byte{data}, nil
}

func (c *pipeConn) WriteEnvelope(data []byte) error {
	c.mu.Lock()
	c.out = append(c.out, append([]byte(nil), data...))
	c.mu.Unlock()
	return nil
}

func (c *pipeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.out))
	copy(out, c.out)
	return out
}

func (c *pipeConn) waitWritten(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if msgs := c.written(); len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d envelopes written, want %d", len(c.written()), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitSubscribed blocks until the session has attached its bus subscription.
func waitSubscribed(t *testing.T, mgr *module.Manager) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for mgr.Publisher().SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never subscribed to the bus")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// echoModule answers every command with a handled event.
type echoModule struct{ name string }

func (e *echoModule) Name() string { return e.name }

func (e *echoModule) Run(ctx context.Context, mc module.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-mc.Commands:
			mc.Publisher.Send(bus.Transient(e.name, "handled."+cmd.Action, cmd.Params))
		}
	}
}

func startSession(t *testing.T) (*module.Manager, *pipeConn, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mgr := module.NewManager(nil)
	if err := mgr.Register(&echoModule{name: "discord"}); err != nil {
		t.Fatal(err)
	}
	mgr.RunAll(ctx)

	c := newPipeConn()
	srv := New(mgr, nil)
	done := make(chan struct{})
	go func() {
		srv.session(ctx, c, "test-conn")
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("session did not exit")
		}
	})
	return mgr, c, cancel
}

func TestCallProducesCorrelatedResponse(t *testing.T) {
	_, c, _ := startSession(t)

	c.in <- []byte(`{"type":"call","request_id":"abc","module":"discord","name":"voice.set_mute","version":1,"params":{"mute":true}}`)

	// Expect a success response echoing request_id plus the module's event.
	var resp map[string]any
	for _, raw := range c.waitWritten(t, 2) {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatal(err)
		}
		if m["type"] == "response" {
			resp = m
		}
	}
	if resp == nil {
		t.Fatal("no response envelope")
	}
	if resp["request_id"] != "abc" || resp["success"] != true {
		t.Errorf("response: %v", resp)
	}
	if data, isMap := resp["data"].(map[string]any); !isMap || len(data) != 0 {
		t.Errorf("response data: %v", resp["data"])
	}
}

func TestUnknownModuleFailureResponse(t *testing.T) {
	_, c, _ := startSession(t)

	c.in <- []byte(`{"type":"call","request_id":"r9","module":"ghost","name":"noop","version":1,"params":{}}`)

	raws := c.waitWritten(t, 1)
	var resp map[string]any
	if err := json.Unmarshal(raws[0], &resp); err != nil {
		t.Fatal(err)
	}
	if resp["type"] != "response" || resp["success"] != false || resp["request_id"] != "r9" {
		t.Errorf("response: %v", resp)
	}
}

func TestEventsForwardedToClient(t *testing.T) {
	mgr, c, _ := startSession(t)
	waitSubscribed(t, mgr)

	mgr.Publisher().Send(bus.Transient("system", "window.focus_changed", map[string]any{"app": "Discord"}))

	raws := c.waitWritten(t, 1)
	var event map[string]any
	if err := json.Unmarshal(raws[0], &event); err != nil {
		t.Fatal(err)
	}
	if event["type"] != "event" || event["module"] != "system" || event["name"] != "window.focus_changed" {
		t.Errorf("event: %v", event)
	}
	if event["timestamp"] == nil {
		t.Error("timestamp missing")
	}
}

func TestSubscribeNarrowsStream(t *testing.T) {
	mgr, c, _ := startSession(t)
	waitSubscribed(t, mgr)

	c.in <- []byte(`{"type":"subscribe","module":"media","name":"playback.*"}`)
	time.Sleep(50 * time.Millisecond) // let the filter land

	mgr.Publisher().Send(bus.Transient("system", "cpu.load", nil))
	mgr.Publisher().Send(bus.Transient("media", "playback.started", nil))

	raws := c.waitWritten(t, 1)
	var event map[string]any
	if err := json.Unmarshal(raws[len(raws)-1], &event); err != nil {
		t.Fatal(err)
	}
	if event["module"] != "media" {
		t.Errorf("filtered stream leaked: %v", event)
	}
	for _, raw := range raws {
		var m map[string]any
		json.Unmarshal(raw, &m)
		if m["module"] == "system" {
			t.Errorf("unsubscribed event delivered: %v", m)
		}
	}
}

func TestSnapshotReplayOnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := module.NewManager(nil)
	mgr.Publisher().Send(bus.Stateful("media", "now_playing", "media/now_playing", map[string]any{"track": "song-a"}))

	c := newPipeConn()
	go New(mgr, nil).session(ctx, c, "late-client")

	raws := c.waitWritten(t, 1)
	var event map[string]any
	if err := json.Unmarshal(raws[0], &event); err != nil {
		t.Fatal(err)
	}
	if event["type"] != "event" || event["name"] != "now_playing" {
		t.Errorf("snapshot replay: %v", event)
	}
}

func TestMalformedEnvelopeIgnored(t *testing.T) {
	mgr, c, _ := startSession(t)

	c.in <- []byte(`{"type":`)
	c.in <- []byte(`{"type":"call","request_id":"ok1","module":"discord","name":"ping","version":1,"params":{}}`)

	raws := c.waitWritten(t, 1)
	var resp map[string]any
	if err := json.Unmarshal(raws[0], &resp); err != nil {
		t.Fatal(err)
	}
	if resp["request_id"] != "ok1" {
		t.Errorf("session should survive malformed input: %v", resp)
	}
	_ = mgr
}
