// Command weather-scan listens for beacon advertisements and reports the
// decoded temperature and humidity to the log, prometheus, MQTT and a
// sqlite history.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tempbeacon-go/internal/logging"
	"tempbeacon-go/services/config"
	"tempbeacon-go/services/scan"
	"tempbeacon-go/services/scan/mqtt"
	"tempbeacon-go/services/scan/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

const appName = "weather-scan"

func main() {
	cfg, err := config.LoadScanner(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, version, appName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}

func run(ctx context.Context, cfg config.Scanner, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	metrics := scan.NewMetrics(reg)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "err", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	var sinks []scan.Sink
	if cfg.MQTTBroker != "" {
		client := mqtt.NewClient(cfg, log)
		defer client.Disconnect()
		go func() {
			if err := client.Connect(ctx); err != nil && ctx.Err() == nil {
				log.Error("mqtt connect failed", "err", err)
			}
		}()
		sinks = append(sinks, client)
	}
	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("recording readings", "db", cfg.DBPath)
		sinks = append(sinks, db)
	}

	handler := scan.NewHandler(log, metrics, sinks...)
	listener := scan.NewListener(scan.Options{
		Adapter: cfg.Adapter,
		Filter:  scan.DefaultFilter(cfg.Address),
	}, log)
	return listener.Run(ctx, func(m scan.Match) { handler.HandleMatch(m) })
}
