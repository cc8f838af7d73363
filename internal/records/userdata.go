package records

import (
	"encoding/binary"
	"fmt"

	"github.com/d21d3q/gombus/internal/frame"
)

// CI-field values the parser understands (EN 13757-3 Table 2).
const (
	CIVariableDataLong  = 0x72 // variable data response, long header
	CIVariableDataShort = 0x7A // variable data response, short header
	CIApplicationReset  = 0x50
)

// Identification is the fixed 8-byte device block of a long transport-layer
// header.
type Identification struct {
	SerialNumber uint32 // BCD-coded secondary address digits
	Manufacturer uint16
	Version      byte
	Medium       byte
}

// ManufacturerCode renders the packed two-byte manufacturer ID as its
// three-letter FLAG mnemonic.
func (id Identification) ManufacturerCode() string {
	m := id.Manufacturer
	return string([]byte{
		byte((m>>10)&0x1F) + '@',
		byte((m>>5)&0x1F) + '@',
		byte(m&0x1F) + '@',
	})
}

// MediumName returns the EN 13757-3 medium name for the device type byte.
func (id Identification) MediumName() string {
	if name, ok := mediumNames[id.Medium]; ok {
		return name
	}
	return fmt.Sprintf("reserved (0x%02X)", id.Medium)
}

var mediumNames = map[byte]string{
	0x00: "other",
	0x01: "oil",
	0x02: "electricity",
	0x03: "gas",
	0x04: "heat (outlet)",
	0x05: "steam",
	0x06: "warm water",
	0x07: "water",
	0x08: "heat cost allocator",
	0x09: "compressed air",
	0x0A: "cooling load (outlet)",
	0x0B: "cooling load (inlet)",
	0x0C: "heat (inlet)",
	0x0D: "heat / cooling load",
	0x0E: "bus / system",
	0x0F: "unknown",
	0x15: "hot water",
	0x16: "cold water",
	0x17: "dual water",
	0x18: "pressure",
	0x19: "A/D converter",
}

// UserData is one decoded RSP_UD datagram.
type UserData struct {
	Address byte
	C       byte
	CI      byte

	// Identification is present for the long header (CI 0x72) only.
	Identification *Identification

	AccessNumber byte
	Status       byte
	Signature    uint16

	Records           []Record
	MoreRecordsFollow bool
	ManufacturerData  []byte

	// Opaque holds the verbatim payload for CI values the parser does not
	// interpret. Records is empty in that case.
	Opaque []byte
}

// Status byte bits (EN 13757-3 Table 3). Bits 0-1 form a two-bit
// application-error code, bits 5-7 are application specific.
const (
	StatusAppErrorMask  = 0x03
	StatusPowerLow      = 0x04
	StatusPermanentErr  = 0x08
	StatusTemporaryErr  = 0x10
)

var statusFlagDefs = []struct {
	mask byte
	key  string
}{
	{StatusPowerLow, "status_power_low"},
	{StatusPermanentErr, "status_permanent_error"},
	{StatusTemporaryErr, "status_temporary_error"},
	{0x20, "status_mfct_1"},
	{0x40, "status_mfct_2"},
	{0x80, "status_mfct_3"},
}

// StatusFlags expands the status byte into named flags, the same shape the
// application error code is reported in.
func (u *UserData) StatusFlags() map[string]bool {
	flags := make(map[string]bool)
	for _, def := range statusFlagDefs {
		if u.Status&def.mask != 0 {
			flags[def.key] = true
		}
	}
	if code := u.Status & StatusAppErrorMask; code != 0 {
		flags[fmt.Sprintf("status_application_error_%d", code)] = true
	}
	return flags
}

// ParseUserData interprets the payload of a long frame. Variable-data
// responses (CI 0x72 and 0x7A) are fully decoded; any other CI is preserved
// verbatim in Opaque and surfaced to the caller untouched.
func ParseUserData(f frame.Frame) (*UserData, error) {
	if f.Kind != frame.KindLong {
		return nil, fmt.Errorf("user data requires a long frame, got %s", f.Kind)
	}
	u := &UserData{Address: f.A, C: f.C, CI: f.CI}
	r := newReader(f.Payload)

	switch f.CI {
	case CIVariableDataLong:
		hdr, err := r.take(12)
		if err != nil {
			return nil, err
		}
		serial, err := decodeBCD(hdr[0:4])
		if err != nil {
			return nil, fmt.Errorf("identification serial: %w", err)
		}
		id := &Identification{
			Manufacturer: binary.LittleEndian.Uint16(hdr[4:6]),
			Version:      hdr[6],
			Medium:       hdr[7],
		}
		if serial.Valid {
			id.SerialNumber = uint32(serial.Int)
		}
		u.Identification = id
		u.AccessNumber = hdr[8]
		u.Status = hdr[9]
		u.Signature = binary.LittleEndian.Uint16(hdr[10:12])
	case CIVariableDataShort:
		hdr, err := r.take(4)
		if err != nil {
			return nil, err
		}
		u.AccessNumber = hdr[0]
		u.Status = hdr[1]
		u.Signature = binary.LittleEndian.Uint16(hdr[2:4])
	default:
		u.Opaque = append([]byte(nil), f.Payload...)
		return u, nil
	}

	set, err := ParseRecords(r.rest(), SlaveToMaster)
	if err != nil {
		return nil, err
	}
	u.Records = set.Records
	u.MoreRecordsFollow = set.MoreRecordsFollow
	u.ManufacturerData = set.ManufacturerData
	return u, nil
}
