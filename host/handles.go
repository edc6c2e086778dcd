package host

import (
	"sync"
)

// SlotKind distinguishes the resource classes living in an Arena.
type SlotKind uint32

const (
	SlotTimer SlotKind = iota + 1
	SlotWebsocket
)

// Dropper is implemented by resources that need teardown when their handle is
// removed.
type Dropper interface {
	Drop()
}

// Arena maps opaque integer handles to host-owned resources for a single
// module instance. Handles are allocated by a monotonically increasing
// counter starting at 1; handle 0 is never valid. Handles are meaningless
// outside their instance and invalid after Close.
type Arena struct {
	mu     sync.Mutex
	next   uint32
	slots  map[uint32]slot
	closed bool
}

type slot struct {
	kind  SlotKind
	value any
}

func NewArena() *Arena {
	return &Arena{
		next:  1,
		slots: make(map[uint32]slot),
	}
}

// Insert stores a value and returns its new handle, or 0 after Close.
func (a *Arena) Insert(kind SlotKind, value any) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}
	h := a.next
	a.next++
	a.slots[h] = slot{kind: kind, value: value}
	return h
}

// Get retrieves a value when the handle exists and has the expected kind.
func (a *Arena) Get(handle uint32, kind SlotKind) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[handle]
	if !ok || s.kind != kind {
		return nil, false
	}
	return s.value, true
}

// Remove frees a handle, running the resource's Drop if it has one.
func (a *Arena) Remove(handle uint32) (any, bool) {
	a.mu.Lock()
	s, ok := a.slots[handle]
	if ok {
		delete(a.slots, handle)
	}
	a.mu.Unlock()
	if !ok {
		return nil, false
	}
	if d, ok := s.value.(Dropper); ok {
		d.Drop()
	}
	return s.value, true
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}

// Close drops every live resource and rejects further inserts. Safe to call
// more than once.
func (a *Arena) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	slots := a.slots
	a.slots = make(map[uint32]slot)
	a.mu.Unlock()

	for _, s := range slots {
		if d, ok := s.value.(Dropper); ok {
			d.Drop()
		}
	}
}
