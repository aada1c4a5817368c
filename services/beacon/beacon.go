// Package beacon runs the node: it opens the platform, starts the timer
// service and hands control to the measurement/broadcast cycle.
package beacon

import (
	"context"
	"log/slog"

	"tempbeacon-go/bus"
	"tempbeacon-go/services/beacon/internal/apptimer"
	"tempbeacon-go/services/beacon/internal/cycle"
	"tempbeacon-go/services/beacon/internal/platform"
	"tempbeacon-go/services/beacon/internal/twi"
	"tempbeacon-go/services/config"
	"tempbeacon-go/types"
)

// LogWriter is the platform's log sink.
var LogWriter = platform.LogWriter

// Run blocks until ctx ends (returning nil) or the cycle halts (returning
// the fault). Platform errors are returned before the cycle starts.
func Run(ctx context.Context, conn *bus.Connection, n config.Node, log *slog.Logger) error {
	p, err := platform.Open(platform.Options{
		I2CBus:   n.I2CBus,
		HCI:      n.HCI,
		Simulate: n.Simulate,
		Log:      log,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	tr := twi.NewAsync(p.Bus, 4)
	defer tr.Close()

	sched := apptimer.NewScheduler()
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sched.Run(cctx)

	cfg := cycle.DefaultConfig()
	cfg.Period = n.Period
	cfg.Settle = apptimer.TicksOf(n.Settle)
	cfg.BusTimeout = n.BusTimeout
	cfg.Addr = n.SensorAddr

	ctl := cycle.New(cfg, cycle.Deps{
		Transport: tr,
		Timers:    sched,
		Stack:     p.Stack,
		Conn:      conn,
		Log:       log,
	})
	conn.Publish(bus.NewMessage(types.TopicBeaconSensor, types.SensorInfo{
		Sensor: "hdc2080",
		Addr:   n.SensorAddr,
		Bus:    p.BusName,
	}, true))
	log.Info("beacon starting", "platform", p.Name, "bus", p.BusName, "addr", n.SensorAddr)
	return ctl.Run(cctx)
}
