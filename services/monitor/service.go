// Package monitor logs the beacon's telemetry bus traffic and emits a
// periodic heartbeat summarising it.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"tempbeacon-go/bus"
	"tempbeacon-go/services/config"
	"tempbeacon-go/types"
)

type Service struct {
	log      *slog.Logger
	interval time.Duration

	// heartbeat counters
	readings uint32
	skipped  uint32
	state    types.CycleState
	last     types.PhysicalSample
}

// New returns a monitor with the given default heartbeat interval; a
// retained config/monitor message overrides it.
func New(log *slog.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{log: log.With("svc", "monitor"), interval: interval}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(config.TopicMonitor)
	defer conn.Unsubscribe(cfgSub)
	readSub := conn.Subscribe(types.TopicBeaconReading)
	defer conn.Unsubscribe(readSub)
	stateSub := conn.Subscribe(types.TopicBeaconState)
	defer conn.Unsubscribe(stateSub)
	faultSub := conn.Subscribe(types.TopicBeaconFault)
	defer conn.Unsubscribe(faultSub)
	infoSub := conn.Subscribe(types.TopicBeaconSensor)
	defer conn.Unsubscribe(infoSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopping")
			return
		case <-tick.C:
			s.heartbeat()
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"].(float64); ok && iv > 0 {
					s.interval = time.Duration(iv * float64(time.Second))
					tick.Reset(s.interval)
					s.log.Debug("heartbeat interval set", "interval", s.interval.String())
				}
			}
		case msg := <-readSub.Channel():
			if rd, ok := msg.Payload.(types.Reading); ok {
				s.readings++
				s.last = rd.Sample
				s.log.Info("reading",
					"seq", rd.Seq,
					"temp_c", rd.Sample.Celsius(),
					"rh_pct", rd.Sample.RHPercent)
			}
		case msg := <-stateSub.Channel():
			if sc, ok := msg.Payload.(types.StateChange); ok {
				s.state = sc.To
			}
		case msg := <-infoSub.Channel():
			if si, ok := msg.Payload.(types.SensorInfo); ok {
				s.log.Info("sensor", "sensor", si.Sensor, "addr", si.Addr, "bus", si.Bus)
			}
		case msg := <-faultSub.Channel():
			if f, ok := msg.Payload.(types.Fault); ok {
				if f.Fatal {
					s.log.Error("fault", "code", f.Code, "op", f.Op, "site", f.Site)
				} else {
					s.skipped++
					s.log.Warn("fault", "code", f.Code, "op", f.Op)
				}
			}
		}
	}
}

func (s *Service) heartbeat() {
	s.log.Info("heartbeat",
		"state", s.state.String(),
		"readings", s.readings,
		"skipped", s.skipped,
		"temp_c", s.last.Celsius(),
		"rh_pct", s.last.RHPercent)
}

// Start runs the monitor until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
