package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/capability"
	"github.com/burakkaraceylan/vessel/verrors"
)

// Namespace is the interface name guests import host functions under.
const Namespace = "vessel:host/host@1.0.0"

// defaultHTTPTimeout bounds outbound guest HTTP requests.
const defaultHTTPTimeout = 30 * time.Second

// callbackBuffer bounds the timer-fire and websocket-message channels feeding
// the dispatch loop.
const callbackBuffer = 32

// SocketMessage is one inbound text frame from a guest-owned websocket.
type SocketMessage struct {
	Handle uint32
	Text   string
}

// Surface is the per-instance host function table. One Surface serves exactly
// one module instance. The dispatch loop is serial, but the subscription set
// still takes a lock: it is read while matching bus events and the read path
// must stay safe however the engine schedules the call.
type Surface struct {
	moduleID   string
	caps       *capability.Validator
	pub        *bus.Publisher
	storageDir string
	config     map[string]string
	log        *zap.Logger

	// ctx is the instance lifetime; spawned timer and socket tasks stop with
	// it.
	ctx     context.Context
	timerCh chan uint32
	wsCh    chan SocketMessage

	subMu         sync.RWMutex
	subscriptions []glob.Glob
	handles       *Arena
	httpc         *http.Client
}

// Options carries the per-instance bindings a Surface closes over.
type Options struct {
	ModuleID   string
	Caps       *capability.Validator
	Publisher  *bus.Publisher
	StorageDir string
	Config     map[string]string
	Logger     *zap.Logger
	// HTTPClient, when set, overrides the default 30s-timeout client.
	HTTPClient *http.Client
}

// NewSurface builds the host surface for one instance. ctx bounds every
// resource the surface spawns.
func NewSurface(ctx context.Context, opts Options) *Surface {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Surface{
		moduleID:   opts.ModuleID,
		caps:       opts.Caps,
		pub:        opts.Publisher,
		storageDir: opts.StorageDir,
		config:     opts.Config,
		log:        log.With(zap.String("module", opts.ModuleID)),
		ctx:        ctx,
		timerCh:    make(chan uint32, callbackBuffer),
		wsCh:       make(chan SocketMessage, callbackBuffer),
		handles:    NewArena(),
		httpc:      httpc,
	}
}

// Namespace returns the interface name for host registration.
func (s *Surface) Namespace() string {
	return Namespace
}

// Register returns the exact function-name table for host registration.
func (s *Surface) Register() map[string]any {
	return map[string]any{
		"subscribe":         s.Subscribe,
		"emit":              s.Emit,
		"call":              s.Call,
		"http-request":      s.HTTPRequest,
		"websocket-connect": s.WebsocketConnect,
		"websocket-send":    s.WebsocketSend,
		"websocket-close":   s.WebsocketClose,
		"storage-get":       s.StorageGet,
		"storage-set":       s.StorageSet,
		"storage-delete":    s.StorageDelete,
		"config-get":        s.ConfigGet,
		"set-timeout":       s.SetTimeout,
		"set-interval":      s.SetInterval,
		"clear-timer":       s.ClearTimer,
		"log":               s.Log,
	}
}

// TimerFires returns the channel carrying fired timer handles.
func (s *Surface) TimerFires() <-chan uint32 {
	return s.timerCh
}

// SocketMessages returns the channel carrying inbound websocket frames.
func (s *Surface) SocketMessages() <-chan SocketMessage {
	return s.wsCh
}

// Handles exposes the resource arena; the runtime closes it on unload.
func (s *Surface) Handles() *Arena {
	return s.handles
}

// MatchesSubscription reports whether any recorded subscription matches the
// "source.name" event key.
func (s *Surface) MatchesSubscription(key string) bool {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, g := range s.subscriptions {
		if g.Match(key) {
			return true
		}
	}
	return false
}

// SubscriptionCount returns how many patterns the instance has recorded.
func (s *Surface) SubscriptionCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subscriptions)
}

// Subscribe records an event pattern after the capability check. Repeated
// subscriptions are accepted.
func (s *Surface) Subscribe(ctx context.Context, pattern string) map[string]any {
	if err := s.caps.CheckSubscribe(pattern); err != nil {
		return failWith(err)
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return fail("invalid pattern '%s'", pattern)
	}
	s.subMu.Lock()
	s.subscriptions = append(s.subscriptions, g)
	s.subMu.Unlock()
	return ok(nil)
}

// Emit publishes a transient event sourced by this module. No permission
// check; a module may always emit its own events.
func (s *Surface) Emit(ctx context.Context, event map[string]any) map[string]any {
	name, _ := event["name"].(string)
	raw, _ := event["data"].(string)
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		data = nil
	}
	s.pub.Send(bus.Transient(s.moduleID, name, data))
	return ok(nil)
}

// Call forwards a driver command after the capability check. The capability
// check runs even though routing is not wired through yet, so the enforcement
// path is exercised and denials surface correctly. When routing lands, the
// round trip will await in a detached task with self-calls rejected.
func (s *Surface) Call(ctx context.Context, module, name string, version uint32, params string) map[string]any {
	if err := s.caps.CheckCall(module, name, version); err != nil {
		return failWith(err)
	}
	return failWith(verrors.NotImplemented("driver call routing"))
}

// ConfigGet reads the admin-supplied per-module config. No capability
// required; the admin controls what is present.
func (s *Surface) ConfigGet(ctx context.Context, key string) any {
	if v, ok := s.config[key]; ok {
		return v
	}
	return nil
}

// Log emits a guest diagnostic with the module id and level attached.
func (s *Surface) Log(ctx context.Context, level, message string) {
	switch level {
	case "debug":
		s.log.Debug(message, zap.String("source", "guest"))
	case "warn":
		s.log.Warn(message, zap.String("source", "guest"))
	case "error":
		s.log.Error(message, zap.String("source", "guest"))
	default:
		s.log.Info(message, zap.String("source", "guest"))
	}
}

// ok wraps a success payload in the canonical result shape.
func ok(v any) map[string]any {
	return map[string]any{"ok": v}
}

// fail builds a failure result from a format string.
func fail(format string, args ...any) map[string]any {
	return map[string]any{"err": fmt.Sprintf(format, args...)}
}

// failWith builds a failure result carrying an error's guest-facing text.
func failWith(err error) map[string]any {
	if verr, ok := err.(*verrors.Error); ok {
		return map[string]any{"err": verr.GuestMessage()}
	}
	return map[string]any{"err": err.Error()}
}
