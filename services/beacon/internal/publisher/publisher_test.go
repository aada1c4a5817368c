package publisher

import (
	"bytes"
	"errors"
	"testing"

	"tempbeacon-go/advdata"
	"tempbeacon-go/errcode"
	"tempbeacon-go/internal/sim"
	"tempbeacon-go/radio"
	"tempbeacon-go/types"
)

func TestPublishEncodesConfiguresStarts(t *testing.T) {
	r := sim.NewRadio()
	pb := New(r, DefaultConfig())
	p := advdata.NewPayload(advdata.DefaultIdentity())
	p.Encode(types.PhysicalSample{CentiC: 2150, RHPercent: 45})

	if err := pb.Publish(&p); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if pb.Handle() == radio.HandleNotSet {
		t.Fatal("handle not allocated")
	}
	if got := len(pb.Encoded()); got != 3+4+advdata.InfoLength {
		t.Fatalf("encoded length = %d", got)
	}
	if got := r.Params(); got != radio.OneShot() {
		t.Fatalf("params = %+v", got)
	}

	air := r.OnAir()
	if len(air) != 1 {
		t.Fatalf("on air = %d", len(air))
	}
	ad, err := radio.Parse(air[0])
	if err != nil {
		t.Fatal(err)
	}
	if ad.Flags != radio.FlagBREDRNotSupported || ad.CompanyID != advdata.CompanyID {
		t.Fatalf("ad = %+v", ad)
	}
	block := p.Block(advdata.CompanyID)
	if !bytes.Equal(ad.ManufacturerBlock(), block[:]) {
		t.Fatalf("block = % X\nwant  % X", ad.ManufacturerBlock(), block)
	}
}

func TestPublishReencodesAfterMutation(t *testing.T) {
	r := sim.NewRadio()
	pb := New(r, DefaultConfig())
	p := advdata.NewPayload(advdata.DefaultIdentity())

	for _, s := range []types.PhysicalSample{{CentiC: -4000}, {CentiC: 12500, RHPercent: 100}} {
		p.Encode(s)
		if err := pb.Publish(&p); err != nil {
			t.Fatal(err)
		}
	}
	air := r.OnAir()
	if len(air) != 2 || bytes.Equal(air[0], air[1]) {
		t.Fatalf("frames = % X", air)
	}
	got, err := advdata.DecodeBlock(mustParse(t, air[1]).ManufacturerBlock(), advdata.CompanyID)
	if err != nil || got.CentiC != 12500 || got.RHPercent != 100 {
		t.Fatalf("decoded = %+v, %v", got, err)
	}
}

func mustParse(t *testing.T, b []byte) radio.AdvData {
	t.Helper()
	ad, err := radio.Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	return ad
}

func TestPublishFailures(t *testing.T) {
	tests := []struct {
		step sim.Step
		want errcode.Code
	}{
		{sim.StepEncode, errcode.AdvEncode},
		{sim.StepConfigure, errcode.AdvConfigure},
		{sim.StepStart, errcode.AdvStart},
	}
	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			r := sim.NewRadio()
			r.FailAt(tt.step, 0)
			pb := New(r, DefaultConfig())
			p := advdata.NewPayload(advdata.DefaultIdentity())

			err := pb.Publish(&p)
			if errcode.Of(err) != tt.want || !errors.Is(err, sim.ErrInjected) {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if r.Count(sim.StepStart) != 0 {
				t.Fatal("advertising started despite failure")
			}
		})
	}
}

// shortStack rejects every encode as oversized.
type shortStack struct{ *sim.Radio }

func (shortStack) Encode(radio.AdvData, []byte) (int, error) { return 0, radio.ErrDataTooLong }

func TestPublishTooLong(t *testing.T) {
	r := sim.NewRadio()
	pb := New(shortStack{r}, DefaultConfig())
	p := advdata.NewPayload(advdata.DefaultIdentity())
	if err := pb.Publish(&p); errcode.Of(err) != errcode.AdvDataTooLong {
		t.Fatalf("err = %v", err)
	}
	if len(r.Calls()) != 0 {
		t.Fatalf("stack called: %v", r.Calls())
	}
}
