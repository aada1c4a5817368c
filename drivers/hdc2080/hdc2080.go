// Package hdc2080 provides register definitions, raw-sample decoding and the
// fixed-point conversion for the TI HDC2080 temperature/humidity sensor.
//
// The measurement is two-phase:
//
//	d.Trigger()              // start a conversion (fast)
//	err := d.Collect(&raw)   // fetch when ready; returns ErrNotReady while busy
//
// d.Read() performs trigger + bounded polling until ready. The beacon cycle
// does not use Device; it drives the same register sequence over an
// asynchronous transport and only shares the constants and Convert.
package hdc2080

import (
	"encoding/binary"
	"errors"
	"time"

	"tempbeacon-go/types"
	"tempbeacon-go/x/mathx"

	"tinygo.org/x/drivers"
)

// I2C address (ADDR pin low).
const Address = 0x40

// Registers.
const (
	RegTempLow     = 0x00
	RegTempHigh    = 0x01
	RegHumLow      = 0x02
	RegHumHigh     = 0x03
	RegStatus      = 0x04
	RegReset       = 0x0E
	RegMeasConfig  = 0x0F
	RegManufIDLow  = 0xFC
	RegDeviceIDLow = 0xFE
)

// Bits and identifiers.
const (
	SoftReset   = 0x80 // RegReset
	MeasTrigger = 0x01 // RegMeasConfig
	StatusDRDY  = 0x80 // RegStatus

	ManufacturerID = 0x5449
	DeviceID       = 0x07D0
)

// SampleLen is the width of the result block starting at RegTempLow.
const SampleLen = 4

// SettleTime is the nominal conversion time for 14-bit temperature and
// humidity.
const SettleTime = 700 * time.Microsecond

// Command frames shared by every caller of the register protocol.
var (
	CmdReset   = [2]byte{RegReset, SoftReset}
	CmdTrigger = [2]byte{RegMeasConfig, MeasTrigger}
	CmdResult  = [1]byte{RegTempLow}
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("hdc2080: timeout")
	ErrNotReady = errors.New("hdc2080: not ready")
	ErrNotFound = errors.New("hdc2080: unexpected device id")
)

// DecodeRaw parses the result block (temperature LSB first, then humidity).
func DecodeRaw(b [SampleLen]byte) types.RawSample {
	return types.RawSample{
		TempCounts:     binary.LittleEndian.Uint16(b[0:2]),
		HumidityCounts: binary.LittleEndian.Uint16(b[2:4]),
	}
}

// Convert maps raw counts to hundredths of °C and whole %RH:
//
//	centi_c = counts * 16500 / 65535 - 4000
//	rh_pct  = counts * 100 / 65535
//
// Division truncates; results always fit int16.
func Convert(raw types.RawSample) types.PhysicalSample {
	c := mathx.ScaleU16(raw.TempCounts, 16500) - 4000
	h := mathx.ScaleU16(raw.HumidityCounts, 100)
	return types.PhysicalSample{
		CentiC:    int16(mathx.Clamp(c, -32768, 32767)),
		RHPercent: int16(mathx.Clamp(h, 0, 100)),
	}
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x40 if zero.
	Address uint16
	// PollInterval is used by Read() between Collect() attempts. Default 1 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 50 ms.
	CollectTimeout time.Duration
}

// Device wraps a synchronous I2C connection to an HDC2080.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	buf [SampleLen]byte
}

// New creates a Device. The bus must already be configured.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies optional config. It does not touch the bus.
func (d *Device) Configure(cfgs ...Config) {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 50 * time.Millisecond
	}
	d.cfg = c
}

// Connected reads the manufacturer and device ids.
func (d *Device) Connected() error {
	var id [4]byte
	if err := d.bus.Tx(d.Address, []byte{RegManufIDLow}, id[:]); err != nil {
		return err
	}
	if binary.LittleEndian.Uint16(id[0:2]) != ManufacturerID ||
		binary.LittleEndian.Uint16(id[2:4]) != DeviceID {
		return ErrNotFound
	}
	return nil
}

// Reset issues a soft reset.
func (d *Device) Reset() error {
	return d.bus.Tx(d.Address, CmdReset[:], nil)
}

// Trigger starts a conversion. It does not wait.
func (d *Device) Trigger() error {
	if d.cfg.PollInterval == 0 {
		d.Configure()
	}
	return d.bus.Tx(d.Address, CmdTrigger[:], nil)
}

// Collect reads one result if the data-ready flag is set.
func (d *Device) Collect(out *types.RawSample) error {
	var st [1]byte
	if err := d.bus.Tx(d.Address, []byte{RegStatus}, st[:]); err != nil {
		return err
	}
	if st[0]&StatusDRDY == 0 {
		return ErrNotReady
	}
	if err := d.bus.Tx(d.Address, CmdResult[:], d.buf[:]); err != nil {
		return err
	}
	if out != nil {
		*out = DecodeRaw(d.buf)
	}
	return nil
}

// Read performs Trigger followed by bounded polling of Collect.
func (d *Device) Read() (types.RawSample, error) {
	var raw types.RawSample
	if err := d.Trigger(); err != nil {
		return raw, err
	}
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		err := d.Collect(&raw)
		switch err {
		case nil:
			return raw, nil
		case ErrNotReady:
			if time.Now().After(deadline) {
				return raw, ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return raw, err
		}
	}
}
