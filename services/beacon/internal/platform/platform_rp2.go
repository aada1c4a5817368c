//go:build rp2040 || rp2350

package platform

import (
	"io"
	"machine"

	"tempbeacon-go/radio/tinygoble"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/bluetooth"
)

// Board wiring.
const (
	pinSDA  = machine.GPIO4
	pinSCL  = machine.GPIO5
	pinTX   = machine.GPIO0
	pinRX   = machine.GPIO1
	logBaud = 115200
)

// openHardware configures i2c0 at 100 kHz and the on-board radio.
func openHardware(opt Options) (*Platform, error) {
	b := machine.I2C0
	if err := b.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       pinSDA,
		SCL:       pinSCL,
	}); err != nil {
		return nil, err
	}

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, err
	}
	st := tinygoble.New(adapter)

	opt.Log.Info("platform: rp2", "i2c", "i2c0")
	p := &Platform{Name: "rp2", BusName: "i2c0", Bus: b, Stack: st}
	p.onClose(st.Stop)
	return p, nil
}

// LogWriter returns uart0, configured for logging.
func LogWriter() io.Writer {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: logBaud,
		TX:       pinTX,
		RX:       pinRX,
	})
	return u
}
