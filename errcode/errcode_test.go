package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("nack")
	for _, c := range []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", BusTimeout, BusTimeout},
		{"wrapped E", &E{C: AdvConfigure, Op: "configure_set", Err: cause}, AdvConfigure},
		{"fmt wrapped E", fmt.Errorf("cycle: %w", Wrap(AdvStart, "start", cause)), AdvStart},
		{"fmt wrapped code", fmt.Errorf("read: %w", BusNACK), BusNACK},
		{"foreign", cause, Error},
	} {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: Of() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestEIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", &E{C: BusTimeout, Op: "read"})
	if !errors.Is(err, BusTimeout) {
		t.Fatal("errors.Is should match the carried code")
	}
	if errors.Is(err, BusNACK) {
		t.Fatal("errors.Is matched the wrong code")
	}
}

func TestEErrorText(t *testing.T) {
	e := &E{C: AdvEncode, Op: "encode", Msg: "30 bytes", Err: errors.New("too long")}
	if got, want := e.Error(), "encode: adv_encode: 30 bytes: too long"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Wrap(AdvEncode, "encode", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}
