// Package publisher turns the beacon payload into a one-shot,
// non-connectable advertisement through a radio.Stack.
package publisher

import (
	"errors"

	"tempbeacon-go/advdata"
	"tempbeacon-go/errcode"
	"tempbeacon-go/radio"
)

// Config describes the advertisement around the payload.
type Config struct {
	CompanyID uint16
	Flags     byte
	Params    radio.Params
	// Tag selects the stack's connection configuration.
	Tag uint8
}

// DefaultConfig is a single non-connectable event at the longest legacy
// interval.
func DefaultConfig() Config {
	return Config{
		CompanyID: advdata.CompanyID,
		Flags:     radio.FlagBREDRNotSupported,
		Params:    radio.OneShot(),
		Tag:       1,
	}
}

// Publisher owns one advertising set. Not safe for concurrent use.
type Publisher struct {
	stack  radio.Stack
	cfg    Config
	handle radio.SetHandle
	buf    [radio.MaxLegacyData]byte
	n      int
}

func New(stack radio.Stack, cfg Config) *Publisher {
	return &Publisher{stack: stack, cfg: cfg, handle: radio.HandleNotSet}
}

// Publish encodes p, reconfigures the set and starts it. Errors carry
// errcode.AdvEncode (or AdvDataTooLong), AdvConfigure or AdvStart.
func (pb *Publisher) Publish(p *advdata.Payload) error {
	ad := radio.AdvData{
		Flags:        pb.cfg.Flags,
		CompanyID:    pb.cfg.CompanyID,
		Manufacturer: p[:],
	}
	n, err := pb.stack.Encode(ad, pb.buf[:])
	if err != nil {
		c := errcode.AdvEncode
		if errors.Is(err, radio.ErrDataTooLong) {
			c = errcode.AdvDataTooLong
		}
		return &errcode.E{C: c, Op: "publisher.encode", Err: err}
	}
	pb.n = n

	h, err := pb.stack.Configure(pb.handle, pb.buf[:n], pb.cfg.Params)
	if err != nil {
		return &errcode.E{C: errcode.AdvConfigure, Op: "publisher.configure_set", Err: err}
	}
	pb.handle = h

	if err := pb.stack.Start(h, pb.cfg.Tag); err != nil {
		return &errcode.E{C: errcode.AdvStart, Op: "publisher.start", Err: err}
	}
	return nil
}

// Encoded returns the advertising data of the last successful encode.
func (pb *Publisher) Encoded() []byte { return pb.buf[:pb.n] }

// Handle is the set handle allocated by the stack.
func (pb *Publisher) Handle() radio.SetHandle { return pb.handle }
