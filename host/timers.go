package host

import (
	"context"
	"time"
)

// timerTask is the arena entry for a scheduled fire.
type timerTask struct {
	cancel context.CancelFunc
}

func (t *timerTask) Drop() {
	t.cancel()
}

// SetTimeout schedules a one-shot fire after ms milliseconds. A module
// without the timer grant receives handle 0, which guests must treat as
// invalid.
func (s *Surface) SetTimeout(ctx context.Context, ms uint64) uint32 {
	if s.caps.CheckTimers() != nil {
		return 0
	}
	tctx, cancel := context.WithCancel(s.ctx)
	handle := s.handles.Insert(SlotTimer, &timerTask{cancel: cancel})
	if handle == 0 {
		cancel()
		return 0
	}
	go func() {
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.postTimer(handle)
		case <-tctx.Done():
		}
	}()
	return handle
}

// SetInterval schedules a repeating fire every ms milliseconds. The implicit
// immediate tick is skipped; the first fire lands after one full period.
func (s *Surface) SetInterval(ctx context.Context, ms uint64) uint32 {
	if s.caps.CheckTimers() != nil {
		return 0
	}
	tctx, cancel := context.WithCancel(s.ctx)
	handle := s.handles.Insert(SlotTimer, &timerTask{cancel: cancel})
	if handle == 0 {
		cancel()
		return 0
	}
	go func() {
		ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.postTimer(handle)
			case <-tctx.Done():
				return
			}
		}
	}()
	return handle
}

// ClearTimer cancels a scheduled fire and frees the handle. Unknown handles
// are ignored.
func (s *Surface) ClearTimer(ctx context.Context, handle uint32) {
	s.handles.Remove(handle)
}

// postTimer hands a fired handle to the dispatch loop, giving up when the
// instance is shutting down.
func (s *Surface) postTimer(handle uint32) {
	select {
	case s.timerCh <- handle:
	case <-s.ctx.Done():
	}
}
