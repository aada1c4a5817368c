// Package reader owns the trigger, settle and read sequence for one sensor
// measurement over the asynchronous bus transport.
package reader

import (
	"context"
	"time"

	"tempbeacon-go/drivers/hdc2080"
	"tempbeacon-go/errcode"
	"tempbeacon-go/services/beacon/internal/apptimer"
	"tempbeacon-go/services/beacon/internal/twi"
	"tempbeacon-go/types"
)

// Config for a Reader.
type Config struct {
	// Addr is the sensor's bus address.
	Addr uint16
	// Timeout bounds each transfer's completion wait. Zero waits forever.
	Timeout time.Duration
	// Settle is the delay between trigger and read.
	Settle apptimer.Ticks
}

// Reader drives one sensor. It is not safe for concurrent use: Reset,
// BeginMeasurement and CompleteMeasurement must be called from one goroutine.
type Reader struct {
	tr     twi.Transport
	timers apptimer.Service
	settle apptimer.ID
	cfg    Config

	done chan twi.Event
}

// New registers the Reader as tr's completion handler. settle is the
// single-shot timer BeginMeasurement arms.
func New(tr twi.Transport, timers apptimer.Service, settle apptimer.ID, cfg Config) *Reader {
	if cfg.Addr == 0 {
		cfg.Addr = hdc2080.Address
	}
	if cfg.Settle == 0 {
		cfg.Settle = 1
	}
	r := &Reader{
		tr:     tr,
		timers: timers,
		settle: settle,
		cfg:    cfg,
		done:   make(chan twi.Event, 4),
	}
	tr.SetHandler(r.onEvent)
	return r
}

// onEvent runs on the transport worker.
func (r *Reader) onEvent(ev twi.Event) {
	select {
	case r.done <- ev:
	default:
		// Only stale completions can overflow; the waiter matches ids.
	}
}

// Reset issues the sensor soft reset and waits for it to complete.
func (r *Reader) Reset(ctx context.Context) error {
	if err := r.write(ctx, "reader.reset", hdc2080.CmdReset[:]); err != nil {
		return errcode.Wrap(errcode.SensorReset, "reader.reset", err)
	}
	return nil
}

// BeginMeasurement writes the trigger and arms the settle timer with ctx as
// its context. It does not wait for the conversion.
func (r *Reader) BeginMeasurement(ctx context.Context) error {
	if err := r.write(ctx, "reader.trigger", hdc2080.CmdTrigger[:]); err != nil {
		return err
	}
	if err := r.timers.Start(r.settle, r.cfg.Settle, ctx); err != nil {
		return errcode.Wrap(errcode.Of(err), "reader.arm_settle", err)
	}
	return nil
}

// CompleteMeasurement points the sensor at its result registers and reads
// one raw sample.
func (r *Reader) CompleteMeasurement(ctx context.Context) (types.RawSample, error) {
	if err := r.write(ctx, "reader.select", hdc2080.CmdResult[:]); err != nil {
		return types.RawSample{}, err
	}
	buf := make([]byte, hdc2080.SampleLen)
	id, err := r.tr.Read(r.cfg.Addr, buf)
	if err != nil {
		return types.RawSample{}, errcode.Wrap(errcode.BusError, "reader.read", err)
	}
	if err := r.wait(ctx, "reader.read", id); err != nil {
		return types.RawSample{}, err
	}
	var b [hdc2080.SampleLen]byte
	copy(b[:], buf)
	return hdc2080.DecodeRaw(b), nil
}

func (r *Reader) write(ctx context.Context, op string, frame []byte) error {
	id, err := r.tr.Write(r.cfg.Addr, frame)
	if err != nil {
		return errcode.Wrap(errcode.BusError, op, err)
	}
	return r.wait(ctx, op, id)
}

// wait blocks until transfer id completes, the timeout expires or ctx ends.
func (r *Reader) wait(ctx context.Context, op string, id uint32) error {
	var expired <-chan time.Time
	if r.cfg.Timeout > 0 {
		t := time.NewTimer(r.cfg.Timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		select {
		case ev := <-r.done:
			if ev.ID != id {
				continue // completion of an abandoned transfer
			}
			switch ev.Kind {
			case twi.EventDone:
				return nil
			case twi.EventNACK:
				return errcode.Wrap(errcode.BusNACK, op, ev.Err)
			default:
				return errcode.Wrap(errcode.BusError, op, ev.Err)
			}
		case <-expired:
			return &errcode.E{C: errcode.BusTimeout, Op: op, Msg: r.cfg.Timeout.String()}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
