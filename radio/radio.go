// Package radio describes the advertising side of a BLE stack: the generic
// AD-structure codec and the three-step configure/start interface the
// broadcast publisher drives.
package radio

import "time"

// AdvType selects the legacy PDU type.
type AdvType uint8

const (
	AdvConnectableUndirected AdvType = iota
	AdvScannableUndirected
	AdvNonConnectableNonScannableUndirected
)

func (t AdvType) String() string {
	switch t {
	case AdvConnectableUndirected:
		return "adv_ind"
	case AdvScannableUndirected:
		return "adv_scan_ind"
	case AdvNonConnectableNonScannableUndirected:
		return "adv_nonconn_ind"
	default:
		return "unknown"
	}
}

// Advertising interval limits, in 0.625 ms units.
const (
	IntervalMin = 0x0020 // 20 ms
	IntervalMax = 0x4000 // 10.24 s
)

// SetHandle identifies an advertising set within a stack.
type SetHandle uint8

// HandleNotSet asks Configure to allocate a new set.
const HandleNotSet SetHandle = 0xFF

// Params are the advertising set parameters.
type Params struct {
	Type AdvType
	// Interval in 0.625 ms units.
	Interval uint32
	// Duration in 10 ms units; 0 advertises until stopped.
	Duration uint16
	// MaxEvents bounds the number of advertising events; 0 is unlimited.
	MaxEvents uint8
}

// OneShot is a single non-connectable event at the maximum interval.
func OneShot() Params {
	return Params{
		Type:      AdvNonConnectableNonScannableUndirected,
		Interval:  IntervalMax,
		Duration:  1,
		MaxEvents: 1,
	}
}

// IntervalDuration converts Interval to a time.Duration.
func (p Params) IntervalDuration() time.Duration {
	return time.Duration(p.Interval) * 625 * time.Microsecond
}

// Window is how long the set stays on air; zero means unbounded.
func (p Params) Window() time.Duration {
	return time.Duration(p.Duration) * 10 * time.Millisecond
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Interval < IntervalMin || p.Interval > IntervalMax {
		return ErrInterval
	}
	if p.Type > AdvNonConnectableNonScannableUndirected {
		return ErrAdvType
	}
	return nil
}

// Stack is the radio collaborator. Implementations must copy data in
// Configure: the caller reuses its buffer on the next cycle.
type Stack interface {
	// Encode serialises ad into dst and returns the number of bytes used.
	Encode(ad AdvData, dst []byte) (int, error)
	// Configure (re)configures set h with encoded data and params. Passing
	// HandleNotSet allocates a set; the returned handle is used from then on.
	Configure(h SetHandle, data []byte, p Params) (SetHandle, error)
	// Start begins advertising set h using the stack configuration tag.
	Start(h SetHandle, tag uint8) error
}
