// Command sensor-probe reads the HDC2080 once over a host I²C bus and
// prints the raw counts, the converted values and the beacon info block the
// node would broadcast.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tempbeacon-go/advdata"
	"tempbeacon-go/drivers/hdc2080"
	"tempbeacon-go/internal/sim"
	"tempbeacon-go/types"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

func main() {
	busName := flag.String("bus", "", "I²C bus name or number (first available if empty)")
	addr := flag.Uint("addr", hdc2080.Address, "sensor address")
	simulate := flag.Bool("sim", false, "use the simulated sensor")
	timeout := flag.Duration("timeout", 50*time.Millisecond, "conversion timeout")
	flag.Parse()

	if err := probe(*busName, uint16(*addr), *simulate, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "sensor-probe:", err)
		os.Exit(1)
	}
}

func probe(busName string, addr uint16, simulate bool, timeout time.Duration) error {
	var bus drivers.I2C
	if simulate {
		bus = sim.NewHDC2080(types.RawSample{TempCounts: 24000, HumidityCounts: 29500})
	} else {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph init: %w", err)
		}
		b, err := i2creg.Open(busName)
		if err != nil {
			return fmt.Errorf("open bus: %w", err)
		}
		defer b.Close()
		bus = b
	}

	d := hdc2080.New(bus)
	d.Configure(hdc2080.Config{Address: addr, CollectTimeout: timeout})
	if err := d.Connected(); err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	if err := d.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	time.Sleep(time.Millisecond)

	raw, err := d.Read()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	s := hdc2080.Convert(raw)
	p := advdata.NewPayload(advdata.DefaultIdentity())
	p.Encode(s)
	block := p.Block(advdata.CompanyID)

	fmt.Printf("raw:  temp=0x%04X rh=0x%04X\n", raw.TempCounts, raw.HumidityCounts)
	fmt.Printf("temp: %.2f C (%d)\n", s.Celsius(), s.CentiC)
	fmt.Printf("rh:   %d %%\n", s.RHPercent)
	fmt.Printf("adv:  % X\n", block[:])
	return nil
}
