// Command tempbeacon-go is the beacon node: every period it measures
// temperature and humidity and broadcasts them in a one-shot BLE
// advertisement.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"tempbeacon-go/bus"
	"tempbeacon-go/internal/logging"
	"tempbeacon-go/services/beacon"
	"tempbeacon-go/services/config"
	"tempbeacon-go/services/monitor"
)

var version = "dev"

const appName = "tempbeacon"

func main() {
	// Allow USB CDC to enumerate before we print.
	bootDelay()

	cfg, err := config.LoadNode(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		halt(1)
	}
	log := logging.New(beacon.LogWriter(), cfg.AppEnv, cfg.LogLevel, version, appName)
	log.Info("boot",
		"version", version,
		"period", cfg.Period.String(),
		"simulate", cfg.Simulate)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	b := bus.NewBus(8)
	config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))
	_ = monitor.New(log, cfg.Heartbeat).Start(ctx, b.NewConnection("monitor"))

	err = beacon.Run(ctx, b.NewConnection("beacon"), cfg, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("beacon stopped", "err", err)
		// Give the monitor a moment to log the fault.
		time.Sleep(50 * time.Millisecond)
		halt(1)
	}
	log.Info("shutting down")
}
