// Package platform binds the beacon to concrete hardware: the two-wire bus
// the sensor sits on and the BLE stack that advertises. The variant is
// chosen by build tags, with an in-memory simulation available everywhere.
package platform

import (
	"log/slog"

	"tempbeacon-go/radio"

	"tinygo.org/x/drivers"
)

// Options select and tune the platform.
type Options struct {
	// I2CBus names the host bus (periph registry name or number); empty
	// picks the first one found. Ignored on MCU builds.
	I2CBus string
	// HCI names the host Bluetooth adapter.
	HCI      string
	Simulate bool
	Log      *slog.Logger
}

// Platform is an opened set of hardware.
type Platform struct {
	Name string
	// BusName identifies the sensor bus in logs and telemetry.
	BusName string
	Bus     drivers.I2C
	Stack radio.Stack

	closers []func() error
}

// Open returns the simulated platform when requested, otherwise the
// hardware platform of this build.
func Open(opt Options) (*Platform, error) {
	if opt.Log == nil {
		opt.Log = slog.New(slog.DiscardHandler)
	}
	if opt.Simulate {
		return openSim(opt), nil
	}
	return openHardware(opt)
}

// Close releases resources in reverse order of acquisition.
func (p *Platform) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}

func (p *Platform) onClose(f func() error) { p.closers = append(p.closers, f) }
