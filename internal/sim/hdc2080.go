// Package sim provides in-memory stand-ins for the node's hardware: an
// HDC2080 on a tinygo drivers.I2C bus and a recording radio stack. They back
// the simulation platform and the package tests.
package sim

import (
	"encoding/binary"
	"sync"
	"time"

	"tempbeacon-go/drivers/hdc2080"
	"tempbeacon-go/errcode"
	"tempbeacon-go/types"

	"tinygo.org/x/drivers"
)

// ErrNoDevice is returned for transfers to an address nobody answers.
var ErrNoDevice error = &errcode.E{C: errcode.BusNACK, Op: "sim", Msg: "no device at address"}

// Compile-time check.
var _ drivers.I2C = (*HDC2080)(nil)

// Tx records one bus transaction.
type Tx struct {
	Addr uint16
	W    []byte
	Rn   int
}

// HDC2080 emulates the sensor's register file.
type HDC2080 struct {
	mu sync.Mutex

	addr      uint16
	regs      [256]byte
	readPtr   byte
	raw       types.RawSample
	convTime  time.Duration
	readyAt   time.Time
	measuring bool

	// Next, when set, supplies the raw value for each new conversion.
	Next func() types.RawSample

	hang   chan struct{} // non-nil: Tx blocks until closed
	hangOn func(w, r []byte) bool
	fail   error

	Resets   int
	Triggers int
	Log      []Tx
}

// NewHDC2080 returns a sensor at the default address that will report raw
// after each conversion.
func NewHDC2080(raw types.RawSample) *HDC2080 {
	s := &HDC2080{
		addr:     hdc2080.Address,
		raw:      raw,
		convTime: 500 * time.Microsecond,
	}
	s.powerOn()
	return s
}

func (s *HDC2080) powerOn() {
	s.regs = [256]byte{}
	binary.LittleEndian.PutUint16(s.regs[hdc2080.RegManufIDLow:], hdc2080.ManufacturerID)
	binary.LittleEndian.PutUint16(s.regs[hdc2080.RegDeviceIDLow:], hdc2080.DeviceID)
	s.measuring = false
}

// SetRaw changes the value reported by subsequent conversions.
func (s *HDC2080) SetRaw(raw types.RawSample) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

// SetConversionTime changes the emulated conversion time.
func (s *HDC2080) SetConversionTime(d time.Duration) {
	s.mu.Lock()
	s.convTime = d
	s.mu.Unlock()
}

// Fail makes every transaction return err (nil clears it).
func (s *HDC2080) Fail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// HangWhen blocks every transaction matching pred until Release is called.
// A nil pred hangs all transactions.
func (s *HDC2080) HangWhen(pred func(w, r []byte) bool) {
	s.mu.Lock()
	s.hang = make(chan struct{})
	s.hangOn = pred
	s.mu.Unlock()
}

// Release unblocks hung transactions.
func (s *HDC2080) Release() {
	s.mu.Lock()
	if s.hang != nil {
		close(s.hang)
		s.hang = nil
	}
	s.mu.Unlock()
}

// Transactions returns a copy of the transaction log.
func (s *HDC2080) Transactions() []Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tx(nil), s.Log...)
}

func (s *HDC2080) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	if h := s.hang; h != nil && (s.hangOn == nil || s.hangOn(w, r)) {
		s.mu.Unlock()
		<-h
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	s.Log = append(s.Log, Tx{Addr: addr, W: append([]byte(nil), w...), Rn: len(r)})
	if s.fail != nil {
		return s.fail
	}
	if addr != s.addr {
		return ErrNoDevice
	}

	now := time.Now()
	s.latch(now)

	if len(w) > 0 {
		ptr := w[0]
		for i, b := range w[1:] {
			s.write(ptr+byte(i), b, now)
		}
		s.readPtr = ptr
	}
	for i := range r {
		reg := s.readPtr + byte(i)
		r[i] = s.regs[reg]
		if reg == hdc2080.RegStatus {
			// DRDY clears on read.
			s.regs[hdc2080.RegStatus] &^= hdc2080.StatusDRDY
		}
	}
	return nil
}

func (s *HDC2080) write(reg, v byte, now time.Time) {
	switch reg {
	case hdc2080.RegReset:
		if v&hdc2080.SoftReset != 0 {
			s.Resets++
			s.powerOn()
			return
		}
	case hdc2080.RegMeasConfig:
		if v&hdc2080.MeasTrigger != 0 {
			s.Triggers++
			s.measuring = true
			s.readyAt = now.Add(s.convTime)
			s.regs[hdc2080.RegStatus] &^= hdc2080.StatusDRDY
			v &^= hdc2080.MeasTrigger // self-clearing
		}
	}
	s.regs[reg] = v
}

// latch completes a pending conversion once its time has come.
func (s *HDC2080) latch(now time.Time) {
	if !s.measuring || now.Before(s.readyAt) {
		return
	}
	s.measuring = false
	raw := s.raw
	if s.Next != nil {
		raw = s.Next()
		s.raw = raw
	}
	binary.LittleEndian.PutUint16(s.regs[hdc2080.RegTempLow:], raw.TempCounts)
	binary.LittleEndian.PutUint16(s.regs[hdc2080.RegHumLow:], raw.HumidityCounts)
	s.regs[hdc2080.RegStatus] |= hdc2080.StatusDRDY
}
