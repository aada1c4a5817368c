package beacon

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"tempbeacon-go/bus"
	"tempbeacon-go/services/config"
	"tempbeacon-go/types"
)

func TestRunSimulated(t *testing.T) {
	n := config.DefaultNode()
	n.Simulate = true
	n.Period = 10 * time.Millisecond

	b := bus.NewBus(16)
	conn := b.NewConnection("beacon")
	sub := b.NewConnection("test").Subscribe(types.TopicBeaconReading)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, conn, n, slog.New(slog.DiscardHandler)) }()

	infoSub := b.NewConnection("test").Subscribe(types.TopicBeaconSensor)
	select {
	case m := <-infoSub.Channel():
		if si := m.Payload.(types.SensorInfo); si.Bus != "sim" || si.Addr != 0x40 {
			t.Fatalf("sensor info = %+v", si)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sensor info not published")
	}

	for i := 0; i < 3; i++ {
		select {
		case m := <-sub.Channel():
			rd := m.Payload.(types.Reading)
			if rd.Sample.CentiC < 1500 || rd.Sample.CentiC > 2800 {
				t.Fatalf("reading %d = %+v", i, rd.Sample)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("reading %d not published", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
