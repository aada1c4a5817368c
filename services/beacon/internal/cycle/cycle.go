// Package cycle is the beacon's measurement and broadcast state machine.
//
//	Idle -> TriggerSent -> SettlingWait -> ReadComplete -> Published -> Idle
//
// The repeating tick timer starts a measurement; the single-shot settle
// timer completes it, converts the sample, updates the payload and
// publishes it. Both handlers run on the timer service's goroutine, so the
// controller's state is only ever touched by one flow at a time.
package cycle

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"tempbeacon-go/advdata"
	"tempbeacon-go/bus"
	"tempbeacon-go/drivers/hdc2080"
	"tempbeacon-go/radio"
	"tempbeacon-go/services/beacon/internal/apptimer"
	"tempbeacon-go/services/beacon/internal/fault"
	"tempbeacon-go/services/beacon/internal/publisher"
	"tempbeacon-go/services/beacon/internal/reader"
	"tempbeacon-go/services/beacon/internal/twi"
	"tempbeacon-go/types"
)

// Config for the controller.
type Config struct {
	Period     time.Duration
	Settle     apptimer.Ticks
	BusTimeout time.Duration // 0 waits forever
	Addr       uint16
	Identity   advdata.Identity
	Publisher  publisher.Config
}

// DefaultConfig returns the stock node configuration.
func DefaultConfig() Config {
	return Config{
		Period:     5 * time.Second,
		Settle:     apptimer.TicksOf(time.Millisecond),
		BusTimeout: 50 * time.Millisecond,
		Addr:       hdc2080.Address,
		Identity:   advdata.DefaultIdentity(),
		Publisher:  publisher.DefaultConfig(),
	}
}

// Deps are the controller's collaborators. Conn and Log are optional.
type Deps struct {
	Transport twi.Transport
	Timers    apptimer.Service
	Stack     radio.Stack
	Conn      *bus.Connection
	Log       *slog.Logger
}

type Controller struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	rd      *reader.Reader
	pub     *publisher.Publisher
	payload advdata.Payload

	tick, settle apptimer.ID

	state atomic.Uint32
	seq   atomic.Uint32
	fatal chan *fault.Fault
}

func New(cfg Config, deps Deps) *Controller {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		cfg:     cfg,
		deps:    deps,
		log:     log.With("svc", "cycle"),
		pub:     publisher.New(deps.Stack, cfg.Publisher),
		payload: advdata.NewPayload(cfg.Identity),
		fatal:   make(chan *fault.Fault, 1),
	}
}

// State returns the current cycle state.
func (c *Controller) State() types.CycleState { return types.CycleState(c.state.Load()) }

// Published is the number of readings broadcast so far.
func (c *Controller) Published() uint32 { return c.seq.Load() }

// Run brings the node up and then serves timer events until ctx ends or a
// fatal error occurs. A fatal error is returned as a *fault.Fault; a
// cancelled ctx returns nil.
func (c *Controller) Run(ctx context.Context) error {
	if f := c.start(ctx); f != nil {
		c.halt(f)
		return f
	}
	select {
	case <-ctx.Done():
		_ = c.deps.Timers.Stop(c.tick)
		_ = c.deps.Timers.Stop(c.settle)
		return nil
	case f := <-c.fatal:
		return f
	}
}

// start creates the timers, advertises the constant payload, resets the
// sensor and arms the repeating tick.
func (c *Controller) start(ctx context.Context) *fault.Fault {
	var err error
	if c.settle, err = c.deps.Timers.Create(apptimer.SingleShot, c.onSettled); err != nil {
		return fault.Capture(err, 0)
	}
	if c.tick, err = c.deps.Timers.Create(apptimer.Repeated, c.onTick); err != nil {
		return fault.Capture(err, 0)
	}
	c.rd = reader.New(c.deps.Transport, c.deps.Timers, c.settle, reader.Config{
		Addr:    c.cfg.Addr,
		Timeout: c.cfg.BusTimeout,
		Settle:  c.cfg.Settle,
	})

	if err := c.pub.Publish(&c.payload); err != nil {
		return fault.Capture(err, 0)
	}
	if err := c.rd.Reset(ctx); err != nil {
		return fault.Capture(err, 0)
	}
	c.setState(types.StateIdle)

	if err := c.deps.Timers.Start(c.tick, apptimer.TicksOf(c.cfg.Period), ctx); err != nil {
		return fault.Capture(err, 0)
	}
	c.log.Info("cycle started",
		"period", c.cfg.Period.String(),
		"settle", c.cfg.Settle.Duration().String(),
		"bus_timeout", c.cfg.BusTimeout.String())
	return nil
}

// onTick runs on the timer goroutine.
func (c *Controller) onTick(arg any) {
	ctx := arg.(context.Context)
	switch s := c.State(); s {
	case types.StatePublished:
		c.setState(types.StateIdle)
	case types.StateIdle:
	default:
		c.log.Warn("tick while cycle busy", "state", s.String())
		return
	}

	c.setState(types.StateTriggerSent)
	if err := c.rd.BeginMeasurement(ctx); err != nil {
		c.skip(ctx, err)
		return
	}
	c.setState(types.StateSettlingWait)
}

// onSettled runs on the timer goroutine once the settle deadline expires.
func (c *Controller) onSettled(arg any) {
	ctx := arg.(context.Context)
	if c.State() != types.StateSettlingWait {
		return
	}
	raw, err := c.rd.CompleteMeasurement(ctx)
	if err != nil {
		c.skip(ctx, err)
		return
	}
	c.setState(types.StateReadComplete)

	s := hdc2080.Convert(raw)
	c.payload.Encode(s)
	if err := c.pub.Publish(&c.payload); err != nil {
		c.halt(fault.Capture(err, 0))
		return
	}
	seq := c.seq.Add(1)
	c.setState(types.StatePublished)

	c.log.Info("reading published",
		"seq", seq,
		"temp_centi_c", s.CentiC,
		"rh_pct", s.RHPercent,
		"raw_temp", raw.TempCounts,
		"raw_rh", raw.HumidityCounts)
	block := c.payload.Block(c.cfg.Publisher.CompanyID)
	c.publish(types.TopicBeaconReading, types.Reading{
		Seq:    seq,
		Raw:    raw,
		Sample: s,
		Adv:    block[:],
		TSms:   time.Now().UnixMilli(),
	}, true)
}

// skip abandons the current cycle after a recoverable bus error. The next
// tick retries.
func (c *Controller) skip(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	f := fault.Capture(err, 1)
	c.log.Warn("cycle skipped", "code", string(f.Code), "op", f.Op, "err", err)
	c.publish(types.TopicBeaconFault, c.faultMsg(f, false), false)
	c.setState(types.StateIdle)
}

// halt stops the cycle for good and hands f to Run.
func (c *Controller) halt(f *fault.Fault) {
	c.setState(types.StateHalted)
	_ = c.deps.Timers.Stop(c.tick)
	c.log.Error("cycle halted", "code", string(f.Code), "op", f.Op, "site", f.Site(), "err", f.Err)
	c.publish(types.TopicBeaconFault, c.faultMsg(f, true), false)
	select {
	case c.fatal <- f:
	default:
	}
}

func (c *Controller) faultMsg(f *fault.Fault, fatal bool) types.Fault {
	return types.Fault{
		Code:  string(f.Code),
		Op:    f.Op,
		Site:  f.Site(),
		Fatal: fatal,
		TSms:  time.Now().UnixMilli(),
	}
}

func (c *Controller) setState(to types.CycleState) {
	from := types.CycleState(c.state.Swap(uint32(to)))
	c.log.Debug("state", "from", from.String(), "to", to.String())
	c.publish(types.TopicBeaconState, types.StateChange{From: from, To: to, TSms: time.Now().UnixMilli()}, true)
}

func (c *Controller) publish(t bus.Topic, payload any, retained bool) {
	if c.deps.Conn == nil {
		return
	}
	c.deps.Conn.Publish(bus.NewMessage(t, payload, retained))
}
