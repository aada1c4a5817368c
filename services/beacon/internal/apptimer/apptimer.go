// Package apptimer is the node's timer service: single-shot and repeating
// deadlines measured in ticks of a 32768 Hz clock. Handlers run one at a time
// on the goroutine executing Run, never inside the caller of Start.
package apptimer

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"tempbeacon-go/errcode"
	"tempbeacon-go/x/mathx"
)

// TickHz is the timer clock frequency.
const TickHz = 32768

// Ticks counts timer clock periods.
type Ticks uint32

// TicksOf converts d to ticks, rounding up. Any positive duration is at
// least one tick.
func TicksOf(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	n := mathx.CeilDiv(uint64(d)*TickHz, uint64(time.Second))
	if n > uint64(^Ticks(0)) {
		return ^Ticks(0)
	}
	return Ticks(n)
}

// Duration converts t back to wall time.
func (t Ticks) Duration() time.Duration {
	return time.Duration(uint64(t) * uint64(time.Second) / TickHz)
}

// Mode selects single-shot or repeating behaviour.
type Mode uint8

const (
	SingleShot Mode = iota
	Repeated
)

// ID names a created timer.
type ID int

// Handler is invoked with the context value given to Start.
type Handler func(ctx any)

// Service is the timer collaborator used by the beacon cycle.
type Service interface {
	Create(mode Mode, h Handler) (ID, error)
	Start(id ID, ticks Ticks, ctx any) error
	Stop(id ID) error
}

type timer struct {
	id      ID
	mode    Mode
	handler Handler

	every time.Duration
	due   int64
	ctx   any
	index int // heap position, -1 when idle
}

type timerHeap []*timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].due < h[j].due }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)        { t := x.(*timer); t.index = len(*h); *h = append(*h, t) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	t.index = -1
	*h = old[:n-1]
	return t
}
func (h timerHeap) Top() *timer {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// Scheduler implements Service on a single heap-ordered goroutine.
type Scheduler struct {
	mu     sync.Mutex
	wake   chan struct{}
	timers []*timer
	h      timerHeap
	now    func() time.Time
}

var _ Service = (*Scheduler)(nil)

func NewScheduler() *Scheduler {
	return &Scheduler{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// Create registers a timer. It is idle until started.
func (s *Scheduler) Create(mode Mode, h Handler) (ID, error) {
	if h == nil || mode > Repeated {
		return 0, errcode.InvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ID(len(s.timers))
	s.timers = append(s.timers, &timer{id: id, mode: mode, handler: h, index: -1})
	return id, nil
}

// Start arms (or re-arms) id to fire after ticks. Repeating timers then fire
// every ticks until stopped.
func (s *Scheduler) Start(id ID, ticks Ticks, ctx any) error {
	if ticks == 0 {
		return errcode.InvalidParams
	}
	s.mu.Lock()
	t := s.lookup(id)
	if t == nil {
		s.mu.Unlock()
		return errcode.InvalidParams
	}
	t.every = ticks.Duration()
	t.ctx = ctx
	t.due = s.now().Add(t.every).UnixNano()
	if t.index < 0 {
		heap.Push(&s.h, t)
	} else {
		heap.Fix(&s.h, t.index)
	}
	s.mu.Unlock()
	s.wakeup()
	return nil
}

// Stop disarms id. Stopping an idle timer is not an error.
func (s *Scheduler) Stop(id ID) error {
	s.mu.Lock()
	t := s.lookup(id)
	if t == nil {
		s.mu.Unlock()
		return errcode.InvalidParams
	}
	if t.index >= 0 {
		heap.Remove(&s.h, t.index)
	}
	s.mu.Unlock()
	s.wakeup()
	return nil
}

func (s *Scheduler) lookup(id ID) *timer {
	if id < 0 || int(id) >= len(s.timers) {
		return nil
	}
	return s.timers[id]
}

// Run dispatches expired timers until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	tm := time.NewTimer(time.Hour)
	defer tm.Stop()

	for {
		wait := s.nextWait()
		if wait < 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		if wait == 0 {
			if h, arg, ok := s.pop(); ok {
				h(arg)
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}

		tm.Reset(time.Duration(wait))
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			if !tm.Stop() {
				<-tm.C
			}
		case <-tm.C:
		}
	}
}

// pop removes the expired head, re-arming it if it repeats.
func (s *Scheduler) pop() (Handler, any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UnixNano()
	top := s.h.Top()
	if top == nil || top.due > now {
		return nil, nil, false
	}
	t := heap.Pop(&s.h).(*timer)
	if t.mode == Repeated {
		// Keep the original phase; skip periods missed entirely.
		every := int64(t.every)
		t.due += every
		if t.due <= now {
			t.due += ((now-t.due)/every + 1) * every
		}
		heap.Push(&s.h, t)
	}
	return t.handler, t.ctx, true
}

func (s *Scheduler) nextWait() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := s.h.Top()
	if top == nil {
		return -1
	}
	now := s.now().UnixNano()
	if top.due <= now {
		return 0
	}
	return top.due - now
}

func (s *Scheduler) wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
