package module

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/verrors"
)

// Manager keeps the name-indexed registry of modules and routes commands to
// them. Registration is only permitted before RunAll.
type Manager struct {
	mu      sync.RWMutex
	senders map[string]chan Command
	modules []Module
	pub     *bus.Publisher
	log     *zap.Logger
	running bool
	wg      sync.WaitGroup
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		senders: make(map[string]chan Command),
		pub:     bus.NewPublisher(),
		log:     log,
	}
}

// Register adds a module to the registry under its name.
func (m *Manager) Register(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return verrors.New(verrors.PhaseRoute, verrors.KindInvalidInput).
			Detail("cannot register '%s' after run", mod.Name()).Build()
	}
	name := mod.Name()
	if _, ok := m.senders[name]; ok {
		return verrors.New(verrors.PhaseRoute, verrors.KindInvalidInput).
			Detail("module '%s' already registered", name).Build()
	}
	m.senders[name] = make(chan Command, commandBuffer)
	m.modules = append(m.modules, mod)
	m.log.Info("module registered", zap.String("module", name))
	return nil
}

// RouteCommand forwards a command to the named module's queue. Unknown
// targets produce a non-fatal warning and an error the caller may surface as
// a failure response.
func (m *Manager) RouteCommand(ctx context.Context, target, action string, params any) error {
	m.mu.RLock()
	ch, ok := m.senders[target]
	m.mu.RUnlock()
	if !ok {
		m.log.Warn("module not found", zap.String("module", target))
		return verrors.RouteNotFound(target)
	}
	select {
	case ch <- Command{Target: target, Action: action, Params: params}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a receiver on the shared event bus.
func (m *Manager) Subscribe() *bus.Subscription {
	return m.pub.Subscribe()
}

// Snapshot returns the latest stateful event per cache slot, for
// late-subscriber replay.
func (m *Manager) Snapshot() []bus.Event {
	return m.pub.Snapshot()
}

// Publisher returns the shared bus publishing endpoint.
func (m *Manager) Publisher() *bus.Publisher {
	return m.pub
}

// RunAll spawns one goroutine per registered module. Module errors are logged
// and never fatal to the host.
func (m *Manager) RunAll(ctx context.Context) {
	m.mu.Lock()
	m.running = true
	mods := make([]Module, len(m.modules))
	copy(mods, m.modules)
	m.mu.Unlock()

	for _, mod := range mods {
		m.mu.RLock()
		ch := m.senders[mod.Name()]
		m.mu.RUnlock()

		mc := Context{Commands: ch, Publisher: m.pub}
		m.wg.Add(1)
		go func(mod Module) {
			defer m.wg.Done()
			log := m.log.With(zap.String("module", mod.Name()))
			log.Debug("module starting")
			if err := mod.Run(ctx, mc); err != nil {
				log.Error("module error", zap.Error(err))
			}
			log.Debug("module stopped")
		}(mod)
	}
}

// Wait blocks until every module's run loop has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
