// Package scan is the host-side decoder: it listens for beacon
// advertisements, decodes temperature and humidity, and forwards readings
// to the log, prometheus gauges and optional sinks such as MQTT.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tempbeacon-go/radio/tinygoble"

	"tinygo.org/x/bluetooth"
)

// Match is one advertisement that passed the filter.
type Match struct {
	Address   string
	RSSI      int16
	CompanyID uint16
	// Data is the manufacturer data after the company id.
	Data   []byte
	SeenAt time.Time
}

// Filter selects advertisements. Zero fields accept anything.
type Filter struct {
	Address   string
	CompanyID uint16
	Prefix    []byte
}

// accepts reports whether one manufacturer data element matches.
func (f Filter) accepts(addr string, company uint16, data []byte) bool {
	if f.Address != "" && addr != f.Address {
		return false
	}
	if f.CompanyID != 0 && company != f.CompanyID {
		return false
	}
	return hasPrefix(data, f.Prefix)
}

type Options struct {
	Adapter string // "hci0" by default
	Filter  Filter
}

// Listener wraps adapter scanning with context cancellation.
type Listener struct {
	adapter *bluetooth.Adapter
	opts    Options
	log     *slog.Logger
}

func NewListener(opts Options, log *slog.Logger) *Listener {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	return &Listener{
		adapter: tinygoble.Adapter(opts.Adapter),
		opts:    opts,
		log:     log.With("svc", "scan"),
	}
}

// Run scans until ctx is cancelled, calling onMatch for every accepted
// advertisement.
func (l *Listener) Run(ctx context.Context, onMatch func(Match)) error {
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", l.opts.Adapter, err)
	}
	l.log.Info("adapter enabled", "adapter", l.opts.Adapter)

	go func() {
		<-ctx.Done()
		_ = l.adapter.StopScan()
	}()

	l.log.Info("scanning started",
		"filter_addr", l.opts.Filter.Address,
		"filter_company", fmt.Sprintf("0x%04X", l.opts.Filter.CompanyID),
		"filter_prefix", fmt.Sprintf("% X", l.opts.Filter.Prefix),
	)

	// Scan blocks until StopScan() or error.
	err := l.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		addr := r.Address.String()
		for _, md := range r.ManufacturerData() {
			if !l.opts.Filter.accepts(addr, md.CompanyID, md.Data) {
				continue
			}
			if onMatch != nil {
				onMatch(Match{
					Address:   addr,
					RSSI:      r.RSSI,
					CompanyID: md.CompanyID,
					Data:      append([]byte(nil), md.Data...),
					SeenAt:    time.Now(),
				})
			}
			return
		}
	})

	if ctx.Err() != nil {
		l.log.Info("scanning stopped (context canceled)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	l.log.Info("scanning stopped")
	return nil
}

func hasPrefix(b, pref []byte) bool {
	if len(b) < len(pref) {
		return false
	}
	for i := range pref {
		if b[i] != pref[i] {
			return false
		}
	}
	return true
}
