package sim

import (
	"errors"
	"sync"

	"tempbeacon-go/radio"
)

// Step names a radio.Stack call.
type Step string

const (
	StepEncode    Step = "encode"
	StepConfigure Step = "configure_set"
	StepStart     Step = "start"
)

// maxOnAir bounds the frames kept by OnAir.
const maxOnAir = 64

// ErrInjected is returned by Radio for an injected failure.
var ErrInjected = errors.New("sim: injected radio failure")

// Compile-time check.
var _ radio.Stack = (*Radio)(nil)

// Radio is a recording radio.Stack with per-step failure injection.
type Radio struct {
	mu sync.Mutex

	failStep  Step
	failAfter int // successful calls of failStep before failing

	handle  radio.SetHandle
	data    []byte
	params  radio.Params
	calls   []Step
	counts  map[Step]int
	onAir   [][]byte
	started chan []byte
}

// NewRadio returns a stack that accepts everything.
func NewRadio() *Radio {
	return &Radio{
		handle:  radio.HandleNotSet,
		counts:  map[Step]int{},
		started: make(chan []byte, 64),
	}
}

// FailAt makes step fail once it has succeeded `after` times.
func (r *Radio) FailAt(step Step, after int) {
	r.mu.Lock()
	r.failStep, r.failAfter = step, after
	r.mu.Unlock()
}

func (r *Radio) check(step Step) error {
	r.calls = append(r.calls, step)
	if r.failStep == step && r.counts[step] >= r.failAfter {
		return ErrInjected
	}
	r.counts[step]++
	return nil
}

func (r *Radio) Encode(ad radio.AdvData, dst []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(StepEncode); err != nil {
		return 0, err
	}
	return radio.Encode(ad, dst)
}

func (r *Radio) Configure(h radio.SetHandle, data []byte, p radio.Params) (radio.SetHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(StepConfigure); err != nil {
		return h, err
	}
	if err := p.Validate(); err != nil {
		return h, err
	}
	if h == radio.HandleNotSet {
		h = 0
	}
	r.handle = h
	r.data = append(r.data[:0], data...)
	r.params = p
	return h, nil
}

func (r *Radio) Start(h radio.SetHandle, _ uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(StepStart); err != nil {
		return err
	}
	if h != r.handle || r.data == nil {
		return errors.New("sim: start of unconfigured set")
	}
	frame := append([]byte(nil), r.data...)
	if len(r.onAir) == maxOnAir {
		r.onAir = append(r.onAir[:0], r.onAir[1:]...)
	}
	r.onAir = append(r.onAir, frame)
	select {
	case r.started <- frame:
	default:
	}
	return nil
}

// Count returns how many times step succeeded.
func (r *Radio) Count(step Step) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[step]
}

// Calls returns every attempted call in order.
func (r *Radio) Calls() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.calls...)
}

// Params returns the parameters of the last successful Configure.
func (r *Radio) Params() radio.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// OnAir returns the encoded advertising data of the most recently started
// sets, oldest first.
func (r *Radio) OnAir() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.onAir))
	copy(out, r.onAir)
	return out
}

// Started delivers the encoded data of each Start as it happens.
func (r *Radio) Started() <-chan []byte { return r.started }
