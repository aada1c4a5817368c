//go:build !rp2040 && !rp2350

package platform

import (
	"fmt"
	"io"
	"os"

	"tempbeacon-go/radio/tinygoble"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// openHardware opens a Linux I²C bus through periph and a BlueZ adapter.
func openHardware(opt Options) (*Platform, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	b, err := i2creg.Open(opt.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opt.I2CBus, err)
	}
	p := &Platform{Name: "host", BusName: b.String(), Bus: b}
	p.onClose(b.Close)

	adapter := tinygoble.Adapter(opt.HCI)
	if err := adapter.Enable(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("ble enable (%s): %w", opt.HCI, err)
	}
	st := tinygoble.New(adapter)
	p.Stack = st
	p.onClose(st.Stop)

	opt.Log.Info("platform: host", "i2c", b.String(), "hci", opt.HCI)
	return p, nil
}

// LogWriter is where the node's logs go.
func LogWriter() io.Writer { return os.Stdout }
