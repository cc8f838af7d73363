package records

import (
	"fmt"
)

// Record is one decoded data record: its DRH (DIB + VIB), the raw value
// bytes and the decoded value.
type Record struct {
	DIB DIB
	VIB VIB

	Data  []byte
	Value Value
}

// Unit returns the unit text for the record, preferring an inline plain-text
// unit.
func (r *Record) Unit() string { return r.VIB.UnitString() }

// Scaled applies the VIB transform and any multiplicative or additive
// correction VIFEs to the decoded value. ok is false for non-numeric or
// invalid values.
func (r *Record) Scaled() (float64, bool) {
	v, ok := r.Value.Numeric()
	if !ok {
		return 0, false
	}
	v = r.VIB.Transform.Apply(v, r.VIB.TransformCode)
	for _, m := range r.VIB.Modifiers {
		if m.Transform.Op != OpNone {
			v = m.Transform.Apply(v, m.Code)
		}
	}
	return v, true
}

// RecordSet is the result of walking a long-frame payload: the records in
// payload order plus the special-function markers found along the way.
type RecordSet struct {
	Records []Record

	// MoreRecordsFollow is set when a DIF 0x1F was seen; the slave holds
	// further records for an FCB-toggled follow-up request.
	MoreRecordsFollow bool

	// ManufacturerData holds the verbatim bytes after a DIF 0x0F up to the
	// checksum. No interpretation is attempted.
	ManufacturerData []byte
}

// ParseRecords walks the payload of a variable-data response, after the
// transport-layer header. It stops at manufacturer-specific data (DIF 0x0F)
// and skips idle fillers (DIF 0x2F). A DIF 0x1F raises the more-records
// flag; any bytes after it are still parsed as records, matching devices
// that place the marker mid-payload.
func ParseRecords(payload []byte, dir Direction) (*RecordSet, error) {
	set := &RecordSet{}
	r := newReader(payload)
	for r.remaining() > 0 {
		head, _ := r.peek()
		switch head {
		case difIdleFiller:
			r.byte()
			continue
		case difManufacturer:
			r.byte()
			set.ManufacturerData = append([]byte(nil), r.rest()...)
			return set, nil
		case difMoreFollow:
			r.byte()
			set.MoreRecordsFollow = true
			continue
		case difGlobalReadout:
			if dir == SlaveToMaster {
				return nil, fmt.Errorf("%w: global readout DIF in response", ErrUnexpectedDIF)
			}
			r.byte()
			continue
		}

		rec, err := parseRecord(r, dir)
		if err != nil {
			return nil, err
		}
		set.Records = append(set.Records, rec)
	}
	return set, nil
}

func parseRecord(r *reader, dir Direction) (Record, error) {
	dib, err := parseDIB(r, dir)
	if err != nil {
		return Record{}, err
	}
	vib, err := parseVIB(r, dir)
	if err != nil {
		return Record{}, err
	}
	if vib.PlainText {
		// Plain-text VIF: an ASCII unit string, length byte first, characters
		// in reverse order (Annex C.2).
		n, err := r.byte()
		if err != nil {
			return Record{}, err
		}
		raw, err := r.take(int(n))
		if err != nil {
			return Record{}, err
		}
		runes := make([]byte, len(raw))
		for i, c := range raw {
			runes[len(raw)-1-i] = c
		}
		vib.PlainTextUnit = string(runes)
	}

	rec := Record{DIB: dib, VIB: vib}
	length, lvar, err := dataFieldLength(dib.DataField)
	if err != nil {
		return Record{}, err
	}

	if lvar {
		code, err := r.byte()
		if err != nil {
			return Record{}, err
		}
		n, err := lvarLength(code)
		if err != nil {
			return Record{}, err
		}
		data, err := r.take(n)
		if err != nil {
			return Record{}, err
		}
		rec.Data = append([]byte{code}, data...)
		rec.Value, err = decodeLVAR(code, data)
		if err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	data, err := r.take(length)
	if err != nil {
		return Record{}, err
	}
	rec.Data = append([]byte(nil), data...)
	rec.Value, err = decodeFixed(dib, vib, data)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// decodeFixed picks the value coder for a fixed-length record from the DIF
// data-field code, constrained by the VIB.
func decodeFixed(dib DIB, vib VIB, data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{Kind: ValueNone, Valid: true}, nil
	}
	if vib.DateType && len(data) == 2 {
		return decodeTypeG(data)
	}
	if vib.DateTimeType {
		switch len(data) {
		case 4:
			return decodeTypeF(data)
		case 6:
			return decodeTypeI(data)
		case 3:
			return decodeTypeJ(data)
		}
	}
	switch dib.DataField {
	case 0x05:
		return decodeFloat32(data)
	case 0x09, 0x0A, 0x0B, 0x0C, 0x0E:
		return decodeBCD(data)
	default:
		if vib.ForceBoolean {
			return decodeBits(data), nil
		}
		if vib.ForceUnsigned {
			return decodeUint(data), nil
		}
		return decodeInt(data), nil
	}
}
