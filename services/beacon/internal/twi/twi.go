// Package twi is the asynchronous two-wire bus transport. Transfers are
// queued and return at once; completion arrives later as an Event through
// the registered Handler.
package twi

import (
	"errors"
	"sync"
	"sync/atomic"

	"tempbeacon-go/errcode"

	"tinygo.org/x/drivers"
)

// EventKind discriminates completion events.
type EventKind uint8

const (
	EventDone EventKind = iota
	EventNACK
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventDone:
		return "done"
	case EventNACK:
		return "nack"
	default:
		return "error"
	}
}

// Event reports the completion of one transfer.
type Event struct {
	ID   uint32
	Kind EventKind
	Addr uint16
	Err  error
}

// Handler receives completion events. It runs on the transport's worker and
// must not block.
type Handler func(Event)

// Transport is an addressed write/read bus with asynchronous completion.
type Transport interface {
	SetHandler(h Handler)
	// Write queues a write of w to addr and returns the transfer id.
	Write(addr uint16, w []byte) (uint32, error)
	// Read queues a read of len(r) bytes from addr into r. r must not be
	// touched until the matching event arrives.
	Read(addr uint16, r []byte) (uint32, error)
}

type req struct {
	id   uint32
	addr uint16
	w, r []byte
}

// Async adapts a synchronous drivers.I2C to Transport with one worker
// goroutine owning the bus.
type Async struct {
	bus  drivers.I2C
	reqs chan req
	quit chan struct{}
	once sync.Once

	next    atomic.Uint32
	handler atomic.Pointer[Handler]
	closed  atomic.Bool
}

var _ Transport = (*Async)(nil)

// NewAsync starts the worker. queueLen defaults to 4.
func NewAsync(bus drivers.I2C, queueLen int) *Async {
	if queueLen <= 0 {
		queueLen = 4
	}
	a := &Async{
		bus:  bus,
		reqs: make(chan req, queueLen),
		quit: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) SetHandler(h Handler) { a.handler.Store(&h) }

func (a *Async) Write(addr uint16, w []byte) (uint32, error) {
	// Copy so the caller may reuse its frame.
	return a.post(req{addr: addr, w: append([]byte(nil), w...)})
}

func (a *Async) Read(addr uint16, r []byte) (uint32, error) {
	return a.post(req{addr: addr, r: r})
}

func (a *Async) post(q req) (uint32, error) {
	if a.closed.Load() {
		return 0, errcode.Closed
	}
	q.id = a.next.Add(1)
	select {
	case a.reqs <- q:
		return q.id, nil
	default:
		return 0, errcode.Busy
	}
}

// Close stops the worker. Queued transfers are dropped without events.
func (a *Async) Close() {
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.quit)
	})
}

func (a *Async) loop() {
	for {
		select {
		case q := <-a.reqs:
			err := a.bus.Tx(q.addr, q.w, q.r)
			a.emit(Event{ID: q.id, Kind: Classify(err), Addr: q.addr, Err: err})
		case <-a.quit:
			return
		}
	}
}

func (a *Async) emit(ev Event) {
	if h := a.handler.Load(); h != nil && *h != nil {
		(*h)(ev)
	}
}

// Classify maps a driver error to an event kind. Errors carrying
// errcode.BusNACK are reported as EventNACK.
func Classify(err error) EventKind {
	switch {
	case err == nil:
		return EventDone
	case errors.Is(err, errcode.BusNACK):
		return EventNACK
	default:
		return EventError
	}
}
