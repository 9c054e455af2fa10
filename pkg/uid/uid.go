// Package uid implements the 48-bit RDM unique identifier.
//
// A UID is a 16-bit ESTA manufacturer id followed by a 32-bit device id and is
// written as "mmmm:dddddddd" in hexadecimal.
package uid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Size is the encoded size of a UID in bytes.
const Size = 6

// Reserved identifiers.
const (
	// AllManufacturers is the manufacturer id used by the all-devices broadcast UID.
	AllManufacturers uint16 = 0xFFFF

	// AllDevices is the device id used by broadcast UIDs.
	AllDevices uint32 = 0xFFFFFFFF
)

// ErrInvalidUID indicates a UID string or byte slice could not be parsed.
var ErrInvalidUID = errors.New("invalid UID")

// UID identifies one RDM responder.
type UID struct {
	Manufacturer uint16 `cbor:"1,keyasint"`
	Device       uint32 `cbor:"2,keyasint"`
}

// New returns the UID for the given manufacturer and device ids.
func New(manufacturer uint16, device uint32) UID {
	return UID{Manufacturer: manufacturer, Device: device}
}

// Broadcast returns the UID addressing every device.
func Broadcast() UID {
	return UID{Manufacturer: AllManufacturers, Device: AllDevices}
}

// VendorBroadcast returns the UID addressing every device of one manufacturer.
func VendorBroadcast(manufacturer uint16) UID {
	return UID{Manufacturer: manufacturer, Device: AllDevices}
}

// IsBroadcast reports whether u addresses more than one device.
func (u UID) IsBroadcast() bool {
	return u.Device == AllDevices
}

// String returns the canonical "mmmm:dddddddd" form.
func (u UID) String() string {
	return fmt.Sprintf("%04x:%08x", u.Manufacturer, u.Device)
}

// Bytes returns the 6-byte network order encoding.
func (u UID) Bytes() []byte {
	b := make([]byte, Size)
	binary.BigEndian.PutUint16(b[0:2], u.Manufacturer)
	binary.BigEndian.PutUint32(b[2:6], u.Device)
	return b
}

// FromBytes decodes a 6-byte network order UID.
func FromBytes(b []byte) (UID, error) {
	if len(b) != Size {
		return UID{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidUID, Size, len(b))
	}
	return UID{
		Manufacturer: binary.BigEndian.Uint16(b[0:2]),
		Device:       binary.BigEndian.Uint32(b[2:6]),
	}, nil
}

// Parse parses a UID in "mmmm:dddddddd" form. Hex digits are case-insensitive.
func Parse(s string) (UID, error) {
	manu, dev, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(manu) == 0 || len(manu) > 4 || len(dev) == 0 || len(dev) > 8 {
		return UID{}, fmt.Errorf("%w: %q", ErrInvalidUID, s)
	}
	m, err := strconv.ParseUint(manu, 16, 16)
	if err != nil {
		return UID{}, fmt.Errorf("%w: %q", ErrInvalidUID, s)
	}
	d, err := strconv.ParseUint(dev, 16, 32)
	if err != nil {
		return UID{}, fmt.Errorf("%w: %q", ErrInvalidUID, s)
	}
	return UID{Manufacturer: uint16(m), Device: uint32(d)}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) UID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
