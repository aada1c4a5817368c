// Package advdata holds the beacon info block carried in the manufacturer
// specific data of every advertisement, and its codec.
//
// Beacon info layout (23 bytes):
//
//	[0]      device type (0x02, beacon)
//	[1]      length of the data that follows (0x15)
//	[2:18]   beacon UUID
//	[18:20]  temperature, int16 big-endian, hundredths of °C (major field)
//	[20:22]  humidity, int16 big-endian, %RH (minor field)
//	[22]     measured RSSI at 1 m
//
// On air the block is prefixed by the 16-bit company identifier
// (little-endian), which shifts the live fields to offsets 20 and 22.
//
// Reusing major/minor for sensor values is a convention of this node only;
// generic beacon scanners will report them as identifiers.
package advdata

import (
	"encoding/binary"
	"errors"

	"tempbeacon-go/types"
)

const (
	InfoLength   = 0x17
	DataLength   = 0x15
	DeviceBeacon = 0x02
	MeasuredRSSI = 0xC3 // -61 dBm

	// Nordic Semiconductor ASA.
	CompanyID = 0x0059

	offType     = 0
	offLength   = 1
	offUUID     = 2
	OffTemp     = 18
	OffHumidity = 20
	offRSSI     = 22

	// Manufacturer-specific data: company id + info.
	BlockLength      = 2 + InfoLength
	BlockOffTemp     = 2 + OffTemp
	BlockOffHumidity = 2 + OffHumidity
)

// DefaultUUID is the proprietary beacon UUID.
var DefaultUUID = [16]byte{
	0x01, 0x12, 0x23, 0x34, 0x45, 0x56, 0x67, 0x78,
	0x89, 0x9a, 0xab, 0xbc, 0xcd, 0xde, 0xef, 0xf0,
}

// Identity is the constant part of the beacon info.
type Identity struct {
	UUID         [16]byte
	Major, Minor uint16
	MeasuredRSSI byte
}

// DefaultIdentity returns the stock identity (major 0x0102, minor 0x0304).
func DefaultIdentity() Identity {
	return Identity{UUID: DefaultUUID, Major: 0x0102, Minor: 0x0304, MeasuredRSSI: MeasuredRSSI}
}

var (
	ErrShort   = errors.New("advdata: block too short")
	ErrNotOurs = errors.New("advdata: not a beacon info block")
	ErrCompany = errors.New("advdata: unexpected company id")
)

// Payload is the beacon info block. It is mutated in place by Encode and is
// never reallocated.
type Payload [InfoLength]byte

// NewPayload lays out the constant regions.
func NewPayload(id Identity) Payload {
	var p Payload
	p[offType] = DeviceBeacon
	p[offLength] = DataLength
	copy(p[offUUID:OffTemp], id.UUID[:])
	binary.BigEndian.PutUint16(p[OffTemp:], id.Major)
	binary.BigEndian.PutUint16(p[OffHumidity:], id.Minor)
	p[offRSSI] = id.MeasuredRSSI
	return p
}

// Encode writes the sample into the two live fields only.
func (p *Payload) Encode(s types.PhysicalSample) {
	binary.BigEndian.PutUint16(p[OffTemp:OffTemp+2], uint16(s.CentiC))
	binary.BigEndian.PutUint16(p[OffHumidity:OffHumidity+2], uint16(s.RHPercent))
}

// Block returns a copy of the manufacturer-specific data as seen on air.
func (p *Payload) Block(company uint16) [BlockLength]byte {
	var b [BlockLength]byte
	binary.LittleEndian.PutUint16(b[0:2], company)
	copy(b[2:], p[:])
	return b
}

// DecodeInfo extracts the sample from a beacon info block (no company id).
func DecodeInfo(info []byte) (types.PhysicalSample, error) {
	if len(info) < InfoLength {
		return types.PhysicalSample{}, ErrShort
	}
	if info[offType] != DeviceBeacon || info[offLength] != DataLength {
		return types.PhysicalSample{}, ErrNotOurs
	}
	return types.PhysicalSample{
		CentiC:    int16(binary.BigEndian.Uint16(info[OffTemp:])),
		RHPercent: int16(binary.BigEndian.Uint16(info[OffHumidity:])),
	}, nil
}

// DecodeBlock extracts the sample from a company-prefixed block.
func DecodeBlock(block []byte, company uint16) (types.PhysicalSample, error) {
	if len(block) < BlockLength {
		return types.PhysicalSample{}, ErrShort
	}
	if binary.LittleEndian.Uint16(block[0:2]) != company {
		return types.PhysicalSample{}, ErrCompany
	}
	return DecodeInfo(block[2:])
}

// UUID returns the beacon UUID region of an info block.
func UUID(info []byte) ([16]byte, error) {
	var u [16]byte
	if len(info) < InfoLength {
		return u, ErrShort
	}
	copy(u[:], info[offUUID:OffTemp])
	return u, nil
}

// Prefix is the leading bytes every info block of this node starts with;
// scanners filter on it.
func Prefix() []byte { return []byte{DeviceBeacon, DataLength} }
