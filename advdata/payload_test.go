package advdata

import (
	"bytes"
	"testing"

	"tempbeacon-go/types"
)

func TestNewPayloadLayout(t *testing.T) {
	p := NewPayload(DefaultIdentity())
	want := []byte{
		0x02, 0x15,
		0x01, 0x12, 0x23, 0x34, 0x45, 0x56, 0x67, 0x78,
		0x89, 0x9a, 0xab, 0xbc, 0xcd, 0xde, 0xef, 0xf0,
		0x01, 0x02,
		0x03, 0x04,
		0xC3,
	}
	if !bytes.Equal(p[:], want) {
		t.Fatalf("payload = % X\nwant      % X", p[:], want)
	}
	if len(p) != 23 {
		t.Fatalf("len = %d, want 23", len(p))
	}
}

func TestEncodeScenarios(t *testing.T) {
	for _, c := range []struct {
		name       string
		s          types.PhysicalSample
		temp, humi [2]byte
	}{
		{"minimum", types.PhysicalSample{CentiC: -4000, RHPercent: 0}, [2]byte{0xF0, 0x60}, [2]byte{0x00, 0x00}},
		{"maximum", types.PhysicalSample{CentiC: 12500, RHPercent: 100}, [2]byte{0x30, 0xD4}, [2]byte{0x00, 0x64}},
	} {
		p := NewPayload(DefaultIdentity())
		p.Encode(c.s)
		b := p.Block(CompanyID)
		if got := [2]byte{b[20], b[21]}; got != c.temp {
			t.Fatalf("%s: block[20:22] = % X, want % X", c.name, got, c.temp)
		}
		if got := [2]byte{b[22], b[23]}; got != c.humi {
			t.Fatalf("%s: block[22:24] = % X, want % X", c.name, got, c.humi)
		}
		if b[0] != 0x59 || b[1] != 0x00 {
			t.Fatalf("%s: company = % X", c.name, b[0:2])
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	p := NewPayload(DefaultIdentity())
	for _, s := range []types.PhysicalSample{
		{CentiC: -4000, RHPercent: 0},
		{CentiC: -1, RHPercent: 1},
		{CentiC: 0, RHPercent: 50},
		{CentiC: 2345, RHPercent: 41},
		{CentiC: 12500, RHPercent: 100},
	} {
		p.Encode(s)
		b := p.Block(CompanyID)
		got, err := DecodeBlock(b[:], CompanyID)
		if err != nil {
			t.Fatalf("DecodeBlock: %v", err)
		}
		if got != s {
			t.Fatalf("round trip %+v -> %+v", s, got)
		}
		got, err = DecodeInfo(p[:])
		if err != nil || got != s {
			t.Fatalf("DecodeInfo = %+v, %v; want %+v", got, err, s)
		}
	}
}

func TestEncodeOnlyTouchesLiveFields(t *testing.T) {
	p := NewPayload(DefaultIdentity())
	before := p.Block(CompanyID)

	s := types.PhysicalSample{CentiC: 2222, RHPercent: 33}
	p.Encode(s)
	first := p.Block(CompanyID)
	p.Encode(s)
	second := p.Block(CompanyID)
	if first != second {
		t.Fatal("encoding the same sample twice must be byte-identical")
	}

	for i := 0; i < 50; i++ {
		p.Encode(types.PhysicalSample{CentiC: int16(i*97 - 4000), RHPercent: int16(i % 101)})
		after := p.Block(CompanyID)
		constant := 0
		for j := range after {
			if j >= BlockOffTemp && j < BlockOffHumidity+2 {
				continue
			}
			if after[j] != before[j] {
				t.Fatalf("byte %d changed: % X -> % X", j, before[j], after[j])
			}
			constant++
		}
		if constant != 21 {
			t.Fatalf("constant bytes = %d, want 21", constant)
		}
	}
}

func TestDecodeRejects(t *testing.T) {
	p := NewPayload(DefaultIdentity())
	b := p.Block(CompanyID)

	if _, err := DecodeBlock(b[:10], CompanyID); err != ErrShort {
		t.Fatalf("short: %v", err)
	}
	if _, err := DecodeBlock(b[:], 0xFFFF); err != ErrCompany {
		t.Fatalf("company: %v", err)
	}
	bad := p
	bad[0] = 0x4C
	if _, err := DecodeInfo(bad[:]); err != ErrNotOurs {
		t.Fatalf("type: %v", err)
	}
	if u, err := UUID(p[:]); err != nil || u != DefaultUUID {
		t.Fatalf("UUID = % X, %v", u, err)
	}
}
