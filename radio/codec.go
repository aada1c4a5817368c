package radio

import (
	"encoding/binary"
	"errors"
)

// AD types.
const (
	adFlags        = 0x01
	adManufacturer = 0xFF
)

// Flags bits.
const (
	FlagLELimitedDisc     = 0x01
	FlagLEGeneralDisc     = 0x02
	FlagBREDRNotSupported = 0x04
)

// MaxLegacyData is the legacy advertising data limit.
const MaxLegacyData = 31

var (
	ErrDataTooLong = errors.New("radio: advertising data too long")
	ErrMalformed   = errors.New("radio: malformed advertising data")
	ErrInterval    = errors.New("radio: interval out of range")
	ErrAdvType     = errors.New("radio: unsupported advertising type")
)

// AdvData is the generic advertisement: flags plus one manufacturer block.
// Flags of zero omit the flags structure.
type AdvData struct {
	Flags        byte
	CompanyID    uint16
	Manufacturer []byte
}

// EncodedLen returns the size Encode will produce.
func (ad AdvData) EncodedLen() int {
	n := 0
	if ad.Flags != 0 {
		n += 3
	}
	if ad.Manufacturer != nil {
		n += 4 + len(ad.Manufacturer)
	}
	return n
}

// Encode writes ad as length-type-value structures into dst.
func Encode(ad AdvData, dst []byte) (int, error) {
	n := ad.EncodedLen()
	if n > MaxLegacyData {
		return 0, ErrDataTooLong
	}
	if n > len(dst) {
		return 0, ErrDataTooLong
	}
	i := 0
	if ad.Flags != 0 {
		dst[0], dst[1], dst[2] = 2, adFlags, ad.Flags
		i = 3
	}
	if ad.Manufacturer != nil {
		dst[i] = byte(3 + len(ad.Manufacturer))
		dst[i+1] = adManufacturer
		binary.LittleEndian.PutUint16(dst[i+2:], ad.CompanyID)
		copy(dst[i+4:], ad.Manufacturer)
	}
	return n, nil
}

// Parse decodes advertising data produced by Encode. Unknown structures are
// skipped. The returned Manufacturer slice is a copy.
func Parse(b []byte) (AdvData, error) {
	var ad AdvData
	if len(b) > MaxLegacyData {
		return ad, ErrDataTooLong
	}
	for i := 0; i < len(b); {
		l := int(b[i])
		if l == 0 {
			break
		}
		if i+1+l > len(b) {
			return AdvData{}, ErrMalformed
		}
		typ, body := b[i+1], b[i+2:i+1+l]
		switch typ {
		case adFlags:
			if len(body) != 1 {
				return AdvData{}, ErrMalformed
			}
			ad.Flags = body[0]
		case adManufacturer:
			if len(body) < 2 {
				return AdvData{}, ErrMalformed
			}
			ad.CompanyID = binary.LittleEndian.Uint16(body)
			ad.Manufacturer = append([]byte{}, body[2:]...)
		}
		i += 1 + l
	}
	return ad, nil
}

// ManufacturerBlock returns company id (little-endian) followed by the
// manufacturer data, as a scanner reports it.
func (ad AdvData) ManufacturerBlock() []byte {
	out := make([]byte, 2+len(ad.Manufacturer))
	binary.LittleEndian.PutUint16(out, ad.CompanyID)
	copy(out[2:], ad.Manufacturer)
	return out
}
