package records

import (
	"fmt"
)

// Modifier is a combinable VIFE attached to a record header: a description
// suffix, a correction transform, an object action or a record error.
type Modifier struct {
	Code        byte
	Description string
	Transform   Transform
	RecordError bool
	Action      bool
}

// VIB is a parsed Value Information Block: the primary VIF resolved through
// any extension tables, plus the combinable VIFE modifiers.
type VIB struct {
	Raw []byte

	Description string
	Unit        string

	// Transform scales the raw value; TransformCode is the byte whose low
	// bits parameterise it.
	Transform     Transform
	TransformCode byte

	PlainText     bool   // unit string follows the VIB inline
	PlainTextUnit string // filled by the record parser

	AnyVIF               bool
	ManufacturerSpecific bool

	DateType     bool
	DateTimeType bool

	ForceUnsigned bool
	ForceBoolean  bool

	Modifiers []Modifier
}

// RecordErrors returns the Table 18 error descriptions carried by the VIFE
// chain, if any.
func (v *VIB) RecordErrors() []string {
	var errs []string
	for _, m := range v.Modifiers {
		if m.RecordError {
			errs = append(errs, m.Description)
		}
	}
	return errs
}

// UnitString returns the plain-text unit when present, the table unit
// otherwise.
func (v *VIB) UnitString() string {
	if v.PlainText {
		return v.PlainTextUnit
	}
	return v.Unit
}

// parseVIB reads a VIF and its VIFE chain from the cursor. The primary byte
// may redirect through extension tables (0xFB, 0xFD, 0xFD 0xFD); every
// further VIFE with the extension bit set on its predecessor is matched in
// the combinable tables.
func parseVIB(r *reader, dir Direction) (VIB, error) {
	vib := VIB{}
	b, err := r.byte()
	if err != nil {
		return vib, err
	}
	vib.Raw = append(vib.Raw, b)

	chain := 0
	table := tablePrimary
	for {
		entry, err := lookupVIF(table, b, dir)
		if err != nil {
			return vib, err
		}
		if entry.kind == entryExtension {
			if b&vifExtensionBit == 0 {
				return vib, fmt.Errorf("extension VIF 0x%02X without following VIFE", b)
			}
			b, err = r.byte()
			if err != nil {
				return vib, err
			}
			vib.Raw = append(vib.Raw, b)
			chain++
			if chain > maxVIFEChain {
				return vib, fmt.Errorf("%w: more than %d VIFEs", ErrVIFEChainTooLong, maxVIFEChain)
			}
			table = entry.ext
			continue
		}

		switch entry.kind {
		case entryValue:
			vib.Description = entry.desc
			vib.Unit = entry.unitFor(b)
			vib.Transform = entry.transform
			vib.TransformCode = b & 0x7F
			vib.ForceUnsigned = entry.forceUnsigned
			vib.ForceBoolean = entry.forceBoolean
			vib.DateType = entry.dateType
			vib.DateTimeType = entry.dateTimeType
		case entryPlainText:
			vib.Description = entry.desc
			vib.PlainText = true
		case entryAny:
			vib.Description = entry.desc
			vib.AnyVIF = true
		case entryManufacturer:
			vib.Description = entry.desc
			vib.ManufacturerSpecific = true
		default:
			return vib, fmt.Errorf("combinable VIFE 0x%02X in primary position", b)
		}
		break
	}

	// After a manufacturer-specific VIF every following VIFE is opaque; keep
	// the raw bytes but skip table lookups.
	if vib.ManufacturerSpecific {
		for b&vifExtensionBit != 0 {
			b, err = r.byte()
			if err != nil {
				return vib, err
			}
			vib.Raw = append(vib.Raw, b)
			chain++
			if chain > maxVIFEChain {
				return vib, fmt.Errorf("%w: more than %d VIFEs", ErrVIFEChainTooLong, maxVIFEChain)
			}
		}
		return vib, nil
	}

	ctable := tableCombinable
	for b&vifExtensionBit != 0 {
		vife, err := r.byte()
		if err != nil {
			return vib, err
		}
		vib.Raw = append(vib.Raw, vife)
		chain++
		if chain > maxVIFEChain {
			return vib, fmt.Errorf("%w: more than %d VIFEs", ErrVIFEChainTooLong, maxVIFEChain)
		}
		entry, err := lookupVIF(ctable, vife, dir)
		if err != nil {
			return vib, err
		}
		b = vife
		if entry.kind == entryExtension {
			if vife&vifExtensionBit == 0 {
				return vib, fmt.Errorf("extension VIFE 0x%02X without following VIFE", vife)
			}
			ctable = entry.ext
			continue
		}
		mod := Modifier{
			Code:        vife & 0x7F,
			Description: entry.desc,
			Transform:   entry.transform,
			RecordError: entry.kind == entryRecordError,
			Action:      entry.kind == entryAction,
		}
		if entry.kind == entryManufacturer {
			// Manufacturer-specific VIFE: the rest of the chain is opaque.
			vib.ManufacturerSpecific = true
			for b&vifExtensionBit != 0 {
				b, err = r.byte()
				if err != nil {
					return vib, err
				}
				vib.Raw = append(vib.Raw, b)
				chain++
				if chain > maxVIFEChain {
					return vib, fmt.Errorf("%w: more than %d VIFEs", ErrVIFEChainTooLong, maxVIFEChain)
				}
			}
			return vib, nil
		}
		if entry.forceUnsigned {
			vib.ForceUnsigned = true
		}
		if entry.forceBoolean {
			vib.ForceBoolean = true
		}
		vib.Modifiers = append(vib.Modifiers, mod)
		ctable = tableCombinable
	}
	return vib, nil
}
