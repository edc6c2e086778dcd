package bus

import (
	"sync"
)

// subscriptionBuffer bounds each subscriber's pending queue. Matches the
// command-channel depth used by the module manager.
const subscriptionBuffer = 32

// Event is a module event on the shared bus.
type Event struct {
	// Source is the stable identity of the emitting module.
	Source string
	// Name is the dotted hierarchical event name, e.g. "window.focus_changed".
	Name string
	// Data is the decoded JSON payload.
	Data any
	// CacheKey names the stateful cache slot. Empty for transient events.
	CacheKey string
}

// Transient builds a fire-and-forget event. Wasm modules always emit this
// kind.
func Transient(source, name string, data any) Event {
	return Event{Source: source, Name: name, Data: data}
}

// Stateful builds an event whose last value per cache slot is remembered for
// late-subscriber replay. Reserved for native modules that own canonical
// state.
func Stateful(source, name, cacheKey string, data any) Event {
	return Event{Source: source, Name: name, Data: data, CacheKey: cacheKey}
}

// IsStateful reports whether the event occupies a cache slot.
func (e Event) IsStateful() bool {
	return e.CacheKey != ""
}

// Key returns the subscription-matching key "source.name".
func (e Event) Key() string {
	return e.Source + "." + e.Name
}

// Publisher is the shared broadcast endpoint. It is safe for concurrent use
// and cheap to share; modules hold the same *Publisher.
type Publisher struct {
	mu    sync.RWMutex
	subs  []*Subscription
	cache map[string]Event
}

func NewPublisher() *Publisher {
	return &Publisher{cache: make(map[string]Event)}
}

// Send broadcasts an event to every subscriber. A stateful event first
// replaces the cache slot named by its CacheKey. Send never blocks; a
// subscriber with a full queue loses its oldest pending event.
func (p *Publisher) Send(e Event) {
	p.mu.Lock()
	if e.IsStateful() {
		p.cache[e.CacheKey] = e
	}
	subs := make([]*Subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, s := range subs {
		s.push(e)
	}
}

// Subscribe returns an independent receiver for all future events.
func (p *Publisher) Subscribe() *Subscription {
	s := &Subscription{
		pub: p,
		ch:  make(chan Event, subscriptionBuffer),
	}
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()
	return s
}

// SubscriberCount returns the number of attached subscriptions.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Snapshot returns the current value of every stateful cache slot.
func (p *Publisher) Snapshot() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, 0, len(p.cache))
	for _, e := range p.cache {
		out = append(out, e)
	}
	return out
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	pub    *Publisher
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// C returns the receive channel. It is closed when the subscription is
// closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the publisher and closes the channel.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	p := s.pub
	p.mu.Lock()
	for i, sub := range p.subs {
		if sub == s {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	close(s.ch)
}

// push enqueues without blocking, dropping the oldest pending event when the
// queue is full.
func (s *Subscription) push(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- e:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
