package hdc2080

import (
	"errors"
	"testing"
	"time"

	"tempbeacon-go/types"
)

func TestConvertScenarios(t *testing.T) {
	tests := []struct {
		name string
		raw  types.RawSample
		want types.PhysicalSample
	}{
		{"zero", types.RawSample{}, types.PhysicalSample{CentiC: -4000, RHPercent: 0}},
		{"full scale", types.RawSample{TempCounts: 65535, HumidityCounts: 65535}, types.PhysicalSample{CentiC: 12500, RHPercent: 100}},
		{"midpoint", types.RawSample{TempCounts: 32768, HumidityCounts: 32768}, types.PhysicalSample{CentiC: 4250, RHPercent: 50}},
		{"room", types.RawSample{TempCounts: 24000, HumidityCounts: 29500}, types.PhysicalSample{CentiC: 2042, RHPercent: 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Convert(tt.raw); got != tt.want {
				t.Fatalf("Convert(%+v) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConvertRangeAndMonotonic(t *testing.T) {
	prev := Convert(types.RawSample{})
	for c := 0; c <= 0xFFFF; c++ {
		s := Convert(types.RawSample{TempCounts: uint16(c), HumidityCounts: uint16(c)})
		if s.CentiC < -4000 || s.CentiC > 12500 {
			t.Fatalf("counts %d: centi %d out of range", c, s.CentiC)
		}
		if s.RHPercent < 0 || s.RHPercent > 100 {
			t.Fatalf("counts %d: rh %d out of range", c, s.RHPercent)
		}
		if s.CentiC < prev.CentiC || s.RHPercent < prev.RHPercent {
			t.Fatalf("counts %d: not monotonic (%+v after %+v)", c, s, prev)
		}
		// Exact formula with wide intermediates.
		if want := int16(int64(c)*16500/65535 - 4000); s.CentiC != want {
			t.Fatalf("counts %d: centi %d, want %d", c, s.CentiC, want)
		}
		prev = s
	}
}

func TestDecodeRawIsLittleEndian(t *testing.T) {
	got := DecodeRaw([SampleLen]byte{0x34, 0x12, 0xCD, 0xAB})
	if got != (types.RawSample{TempCounts: 0x1234, HumidityCounts: 0xABCD}) {
		t.Fatalf("DecodeRaw = %+v", got)
	}
}

// regBus is a minimal register-file sensor for the synchronous driver.
type regBus struct {
	regs    [256]byte
	ptr     byte
	pending int // status polls before DRDY is set
	err     error
	writes  [][]byte
}

func (b *regBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if addr != Address {
		return errors.New("nack")
	}
	if len(w) > 0 {
		b.writes = append(b.writes, append([]byte(nil), w...))
		b.ptr = w[0]
		for i, v := range w[1:] {
			b.regs[b.ptr+byte(i)] = v
		}
	}
	for i := range r {
		reg := b.ptr + byte(i)
		if reg == RegStatus {
			if b.pending > 0 {
				b.pending--
				r[i] = 0
				continue
			}
			r[i] = StatusDRDY
			continue
		}
		r[i] = b.regs[reg]
	}
	return nil
}

func newRegBus() *regBus {
	b := &regBus{}
	b.regs[RegManufIDLow], b.regs[RegManufIDLow+1] = 0x49, 0x54
	b.regs[RegDeviceIDLow], b.regs[RegDeviceIDLow+1] = 0xD0, 0x07
	b.regs[RegTempLow], b.regs[RegTempHigh] = 0xFF, 0xFF
	b.regs[RegHumLow], b.regs[RegHumHigh] = 0x00, 0x80
	return b
}

func TestDeviceReadPollsUntilReady(t *testing.T) {
	b := newRegBus()
	b.pending = 2
	d := New(b)
	d.Configure(Config{PollInterval: time.Microsecond})

	if err := d.Connected(); err != nil {
		t.Fatalf("Connected: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	raw, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw != (types.RawSample{TempCounts: 0xFFFF, HumidityCounts: 0x8000}) {
		t.Fatalf("raw = %+v", raw)
	}
	if string(b.writes[1]) != string(CmdReset[:]) || string(b.writes[2]) != string(CmdTrigger[:]) {
		t.Fatalf("writes = % X", b.writes)
	}
}

func TestDeviceErrors(t *testing.T) {
	b := newRegBus()
	b.regs[RegDeviceIDLow] = 0
	d := New(b)
	if err := d.Connected(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Connected = %v", err)
	}

	b = newRegBus()
	b.pending = 1 << 30
	d = New(b)
	d.Configure(Config{PollInterval: time.Millisecond, CollectTimeout: 5 * time.Millisecond})
	if _, err := d.Read(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read = %v, want ErrTimeout", err)
	}

	var out types.RawSample
	b.pending = 1
	if err := d.Collect(&out); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Collect = %v", err)
	}

	boom := errors.New("bus down")
	b.err = boom
	if err := d.Trigger(); err != boom {
		t.Fatalf("Trigger = %v", err)
	}
}
