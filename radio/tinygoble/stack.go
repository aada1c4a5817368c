// Package tinygoble implements radio.Stack on tinygo.org/x/bluetooth. It
// works on MCU targets (SoftDevice, CYW43439) and on Linux hosts (BlueZ).
//
// The bluetooth package has no notion of an advertising duration, so a
// bounded set is emulated by stopping the advertisement once its window has
// elapsed.
package tinygoble

import (
	"sync"
	"time"

	"tempbeacon-go/errcode"
	"tempbeacon-go/radio"

	"tinygo.org/x/bluetooth"
)

// MinWindow is the shortest on-air time used for a bounded set. Host stacks
// need a little while after Start before the first event leaves the radio.
var MinWindow = 100 * time.Millisecond

// Stack drives a single advertising set.
type Stack struct {
	mu      sync.Mutex
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	window  time.Duration
	running bool
	stop    *time.Timer
	gen     uint32 // guards stale window timers
}

// Compile-time check.
var _ radio.Stack = (*Stack)(nil)

// New wraps an enabled adapter.
func New(adapter *bluetooth.Adapter) *Stack {
	return &Stack{
		adapter: adapter,
		adv:     adapter.DefaultAdvertisement(),
	}
}

func (s *Stack) Encode(ad radio.AdvData, dst []byte) (int, error) {
	return radio.Encode(ad, dst)
}

func (s *Stack) Configure(h radio.SetHandle, data []byte, p radio.Params) (radio.SetHandle, error) {
	if h != radio.HandleNotSet && h != 0 {
		return h, errcode.InvalidParams
	}
	if err := p.Validate(); err != nil {
		return h, err
	}
	ad, err := radio.Parse(data)
	if err != nil {
		return h, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reconfiguring a running set is not supported by every backend.
	s.haltLocked()

	opts := bluetooth.AdvertisementOptions{
		AdvertisementType: advType(p.Type),
		Interval:          bluetooth.NewDuration(p.IntervalDuration()),
	}
	if ad.Manufacturer != nil {
		opts.ManufacturerData = []bluetooth.ManufacturerDataElement{
			{CompanyID: ad.CompanyID, Data: ad.Manufacturer},
		}
	}
	if err := s.adv.Configure(opts); err != nil {
		return h, err
	}
	s.window = p.Window()
	if s.window > 0 && s.window < MinWindow {
		s.window = MinWindow
	}
	return 0, nil
}

func (s *Stack) Start(h radio.SetHandle, _ uint8) error {
	if h != 0 {
		return errcode.InvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adv.Start(); err != nil {
		_ = s.adv.Stop()
		return err
	}
	s.running = true
	s.gen++
	if s.window > 0 {
		gen := s.gen
		s.stop = time.AfterFunc(s.window, func() {
			s.mu.Lock()
			if s.gen == gen {
				s.haltLocked()
			}
			s.mu.Unlock()
		})
	}
	return nil
}

// Stop ends any running set.
func (s *Stack) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked()
	return nil
}

func (s *Stack) haltLocked() {
	if s.stop != nil {
		s.stop.Stop()
		s.stop = nil
	}
	if s.running {
		_ = s.adv.Stop()
		s.running = false
	}
}

func advType(t radio.AdvType) bluetooth.AdvertisingType {
	switch t {
	case radio.AdvConnectableUndirected:
		return bluetooth.AdvertisingTypeInd
	case radio.AdvScannableUndirected:
		return bluetooth.AdvertisingTypeScanInd
	default:
		return bluetooth.AdvertisingTypeNonConnInd
	}
}
