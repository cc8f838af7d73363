package records

import (
	"errors"
	"fmt"
)

const (
	vifExtensionBit = 0x80
	maxVIFEChain    = 10
)

var ErrVIFEChainTooLong = errors.New("VIFE chain exceeds maximum length")

// UnknownVIFError reports a VIF/VIFE byte no table rule covered, with the
// lookup path that was followed to get there.
type UnknownVIFError struct {
	Code byte
	Path string
}

func (e *UnknownVIFError) Error() string {
	return fmt.Sprintf("unknown VIF code 0x%02X in %s table", e.Code, e.Path)
}

// direction bitmask on table entries; most codes are slave-to-master only.
type dirMask uint8

const (
	dirM2S dirMask = 1 << iota
	dirS2M
	dirBoth = dirM2S | dirS2M
)

func (m dirMask) matches(d Direction) bool {
	if d == MasterToSlave {
		return m&dirM2S != 0
	}
	return m&dirS2M != 0
}

type entryKind uint8

const (
	entryValue entryKind = iota
	entryExtension
	entryPlainText
	entryManufacturer
	entryAny
	entryCombinable
	entryAction
	entryRecordError
)

type tableID uint8

const (
	tablePrimary tableID = iota + 1
	tableFirstExt
	tableSecondExt
	tableSecondExtL2
	tableCombinable
	tableCombinableExt
)

func (t tableID) name() string {
	switch t {
	case tablePrimary:
		return "primary"
	case tableFirstExt:
		return "first extension"
	case tableSecondExt:
		return "second extension"
	case tableSecondExtL2:
		return "second extension level 2"
	case tableCombinable:
		return "combinable"
	case tableCombinableExt:
		return "combinable extension"
	default:
		return "unknown"
	}
}

// timeBase selects how range entries with nn/pp low bits name their unit.
type timeBase uint8

const (
	timeNone timeBase = iota
	timeSMHD          // 00=s 01=min 10=h 11=d
	timeHDMY          // 00=h 01=d 10=months 11=years
)

// vifEntry is one row of a VIF table: a code with a match mask and the
// descriptor for every code the mask covers. Tables are small and scanned
// linearly.
type vifEntry struct {
	kind entryKind

	code byte
	mask byte // 0 means the default mask 0x7F (strip extension bit)
	dir  dirMask

	desc      string
	unit      string
	timeUnits timeBase
	transform Transform

	ext tableID // for entryExtension: the table the next byte selects from

	forceUnsigned bool
	forceBoolean  bool
	dateType      bool // value is a type G date
	dateTimeType  bool // value is a type F/I/J timestamp depending on length
}

func (e *vifEntry) matchMask() byte {
	if e.mask == 0 {
		return 0x7F
	}
	return e.mask
}

func lookupVIF(table tableID, code byte, dir Direction) (*vifEntry, error) {
	rows := vifTables[table]
	for i := range rows {
		e := &rows[i]
		d := e.dir
		if d == 0 {
			d = dirBoth
		}
		if d.matches(dir) && code&e.matchMask() == e.code {
			return e, nil
		}
	}
	return nil, &UnknownVIFError{Code: code, Path: table.name()}
}

var timeSMHDNames = [4]string{"s", "min", "h", "d"}
var timeHDMYNames = [4]string{"h", "d", "months", "years"}

func (e *vifEntry) unitFor(code byte) string {
	switch e.timeUnits {
	case timeSMHD:
		return timeSMHDNames[code&0x03]
	case timeHDMY:
		return timeHDMYNames[code&0x03]
	default:
		return e.unit
	}
}

var vifTables map[tableID][]vifEntry

func init() {
	vifTables = map[tableID][]vifEntry{
		tablePrimary:       primaryVIFTable,
		tableFirstExt:      firstExtVIFTable,
		tableSecondExt:     secondExtVIFTable,
		tableSecondExtL2:   secondExtL2VIFTable,
		tableCombinable:    combinableVIFTable,
		tableCombinableExt: combinableExtVIFTable,
	}
}

// primaryVIFTable is Table 10 of EN 13757-3:2018. Range rows carry a mask
// whose cleared low bits hold the decimal exponent applied by the transform.
var primaryVIFTable = []vifEntry{
	// E000 0nnn: energy, 10^(nnn-3) Wh
	{code: 0x00, mask: 0x78, dir: dirS2M, desc: "Energy", unit: "Wh", transform: Pow10(0x07, -3)},
	// E000 1nnn: energy, 10^nnn J
	{code: 0x08, mask: 0x78, dir: dirS2M, desc: "Energy", unit: "J", transform: Pow10(0x07, 0)},
	// E001 0nnn: volume, 10^(nnn-6) m³
	{code: 0x10, mask: 0x78, dir: dirS2M, desc: "Volume", unit: "m³", transform: Pow10(0x07, -6)},
	// E001 1nnn: mass, 10^(nnn-3) kg
	{code: 0x18, mask: 0x78, dir: dirS2M, desc: "Mass", unit: "kg", transform: Pow10(0x07, -3)},
	// E010 00nn: on time, unit from nn
	{code: 0x20, mask: 0x7C, dir: dirS2M, desc: "On time", timeUnits: timeSMHD},
	// E010 01nn: operating time
	{code: 0x24, mask: 0x7C, dir: dirS2M, desc: "Operating time", timeUnits: timeSMHD},
	// E010 1nnn: power, 10^(nnn-3) W
	{code: 0x28, mask: 0x78, dir: dirS2M, desc: "Power", unit: "W", transform: Pow10(0x07, -3)},
	// E011 0nnn: power, 10^nnn J/h
	{code: 0x30, mask: 0x78, dir: dirS2M, desc: "Power", unit: "J/h", transform: Pow10(0x07, 0)},
	// E011 1nnn: volume flow, 10^(nnn-6) m³/h, normalised to m³/s
	{code: 0x38, mask: 0x78, dir: dirS2M, desc: "Volume flow", unit: "m³/s", transform: Pow10Div(0x07, -6, 3600)},
	// E100 0nnn: volume flow, 10^(nnn-7) m³/min, normalised to m³/s
	{code: 0x40, mask: 0x78, dir: dirS2M, desc: "Volume flow", unit: "m³/s", transform: Pow10Div(0x07, -7, 60)},
	// E100 1nnn: volume flow, 10^(nnn-9) m³/s
	{code: 0x48, mask: 0x78, dir: dirS2M, desc: "Volume flow", unit: "m³/s", transform: Pow10(0x07, -9)},
	// E101 0nnn: mass flow, 10^(nnn-3) kg/h, normalised to kg/s
	{code: 0x50, mask: 0x78, dir: dirS2M, desc: "Mass flow", unit: "kg/s", transform: Pow10Div(0x07, -3, 3600)},
	// E101 10nn: flow temperature, 10^(nn-3) °C
	{code: 0x58, mask: 0x7C, dir: dirS2M, desc: "Flow temperature", unit: "°C", transform: Pow10(0x03, -3)},
	// E101 11nn: return temperature
	{code: 0x5C, mask: 0x7C, dir: dirS2M, desc: "Return temperature", unit: "°C", transform: Pow10(0x03, -3)},
	// E110 00nn: temperature difference, 10^(nn-3) K
	{code: 0x60, mask: 0x7C, dir: dirS2M, desc: "Temperature difference", unit: "K", transform: Pow10(0x03, -3)},
	// E110 01nn: external temperature
	{code: 0x64, mask: 0x7C, dir: dirS2M, desc: "External temperature", unit: "°C", transform: Pow10(0x03, -3)},
	// E110 10nn: pressure, 10^(nn-3) bar
	{code: 0x68, mask: 0x7C, dir: dirS2M, desc: "Pressure", unit: "bar", transform: Pow10(0x03, -3)},
	{code: 0x6C, dir: dirS2M, desc: "Date", dateType: true},
	{code: 0x6D, dir: dirS2M, desc: "Date and time", dateTimeType: true},
	{code: 0x6E, dir: dirS2M, desc: "Units for HCA"},
	// E111 00nn: averaging duration
	{code: 0x70, mask: 0x7C, dir: dirS2M, desc: "Averaging duration", timeUnits: timeSMHD},
	// E111 01nn: actuality duration
	{code: 0x74, mask: 0x7C, dir: dirS2M, desc: "Actuality duration", timeUnits: timeSMHD},
	{code: 0x78, dir: dirS2M, desc: "Fabrication no"},
	{code: 0x79, dir: dirS2M, desc: "(Enhanced) identification"},
	{code: 0x7A, dir: dirS2M, desc: "Address", forceUnsigned: true},
	// 0xFB and 0xFD redirect into the extension tables; the mask keeps the
	// extension bit so only the exact byte matches.
	{kind: entryExtension, code: 0xFB, mask: 0xFF, ext: tableFirstExt},
	{kind: entryPlainText, code: 0x7C, dir: dirS2M, desc: "VIF in following string"},
	{kind: entryExtension, code: 0xFD, mask: 0xFF, ext: tableSecondExt},
	{kind: entryAny, code: 0x7E, dir: dirM2S, desc: "Any VIF"},
	{kind: entryManufacturer, code: 0x7F, desc: "Manufacturer specific"},
}

// firstExtVIFTable is Table 14, reached through primary VIF 0xFB. Spec units
// are normalised to base units (MWh to Wh, GJ to J, t to kg).
var firstExtVIFTable = []vifEntry{
	{code: 0x00, mask: 0x7E, dir: dirS2M, desc: "Energy", unit: "Wh", transform: Pow10(0x01, 5)},
	{code: 0x02, mask: 0x7E, dir: dirS2M, desc: "Reactive energy", unit: "VARh", transform: Pow10(0x01, 2)},
	{code: 0x04, mask: 0x7E, dir: dirS2M, desc: "Apparent energy", unit: "VAh", transform: Pow10(0x01, 2)},
	{code: 0x08, mask: 0x7E, dir: dirS2M, desc: "Energy", unit: "J", transform: Pow10(0x01, 8)},
	{code: 0x0C, mask: 0x7C, dir: dirS2M, desc: "Energy", unit: "cal", transform: Pow10(0x03, 5)},
	{code: 0x10, mask: 0x7E, dir: dirS2M, desc: "Volume", unit: "m³", transform: Pow10(0x01, 2)},
	{code: 0x14, mask: 0x7C, dir: dirS2M, desc: "Reactive power", unit: "VAR", transform: Pow10(0x03, 0)},
	{code: 0x18, mask: 0x7E, dir: dirS2M, desc: "Mass", unit: "kg", transform: Pow10(0x01, 5)},
	{code: 0x1A, mask: 0x7E, dir: dirS2M, desc: "Relative humidity", unit: "%", transform: Pow10(0x01, -1)},
	{code: 0x20, dir: dirS2M, desc: "Volume", unit: "ft³", transform: Mul(1)},
	{code: 0x21, dir: dirS2M, desc: "Volume", unit: "ft³", transform: Mul(0.1)},
	{code: 0x28, mask: 0x7E, dir: dirS2M, desc: "Power", unit: "W", transform: Pow10(0x01, 5)},
	{code: 0x2A, dir: dirS2M, desc: "Phase U-U", unit: "°", transform: Mul(0.1)},
	{code: 0x2B, dir: dirS2M, desc: "Phase U-I", unit: "°", transform: Mul(0.1)},
	{code: 0x2C, mask: 0x7C, dir: dirS2M, desc: "Frequency", unit: "Hz", transform: Pow10(0x03, -3)},
	{code: 0x30, mask: 0x7E, dir: dirS2M, desc: "Power", unit: "J/h", transform: Pow10(0x01, 8)},
	{code: 0x34, mask: 0x7C, dir: dirS2M, desc: "Apparent power", unit: "VA", transform: Pow10(0x03, 0)},
	{code: 0x68, desc: "Resulting rating factor, K", transform: Mul(1.0 / 4096)},
	{code: 0x69, desc: "Thermal output rating factor, Kq", transform: Mul(1)},
	{code: 0x6A, desc: "Thermal coupling rating factor overall, Kc", transform: Mul(1.0 / 4096)},
	{code: 0x6B, desc: "Thermal coupling rating factor room side, Kcr", transform: Mul(1.0 / 4096)},
	{code: 0x6C, desc: "Thermal coupling rating factor heater side, Kch", transform: Mul(1.0 / 4096)},
	{code: 0x6D, desc: "Low temperature rating factor, Kt", transform: Mul(1.0 / 4096)},
	{code: 0x6E, desc: "Display output scaling factor, KD", transform: Mul(1.0 / 4096)},
	{code: 0x74, mask: 0x7C, desc: "Temperature limit", unit: "°C", transform: Pow10(0x03, -3)},
	{code: 0x78, mask: 0x78, dir: dirS2M, desc: "Cumulative max power", unit: "W", transform: Pow10(0x07, -3)},
}

// secondExtVIFTable is Table 12, reached through primary VIF 0xFD.
var secondExtVIFTable = []vifEntry{
	{code: 0x00, mask: 0x7C, dir: dirS2M, desc: "Credit", transform: Pow10(0x03, -3)},
	{code: 0x04, mask: 0x7C, dir: dirS2M, desc: "Debit", transform: Pow10(0x03, -3)},
	{code: 0x08, dir: dirS2M, desc: "Unique message identification"},
	{code: 0x09, dir: dirS2M, desc: "Device type"},
	{code: 0x0A, dir: dirS2M, desc: "Manufacturer"},
	{code: 0x0B, dir: dirS2M, desc: "Parameter set identification"},
	{code: 0x0C, dir: dirS2M, desc: "Model/Version"},
	{code: 0x0D, dir: dirS2M, desc: "Hardware version"},
	{code: 0x0E, dir: dirS2M, desc: "Firmware version"},
	{code: 0x0F, dir: dirS2M, desc: "Software version"},
	{code: 0x10, desc: "Customer location"},
	{code: 0x11, desc: "Customer"},
	{code: 0x12, desc: "Access code"},
	{code: 0x13, desc: "Access code"},
	{code: 0x14, desc: "Access code"},
	{code: 0x15, desc: "Access code"},
	{code: 0x16, desc: "Password"},
	{code: 0x17, dir: dirS2M, desc: "Error flags", forceBoolean: true},
	{code: 0x18, desc: "Error mask"},
	{code: 0x19, desc: "Security key"},
	{code: 0x1A, desc: "Digital output", forceBoolean: true},
	{code: 0x1B, dir: dirS2M, desc: "Digital input", forceBoolean: true},
	{code: 0x1C, desc: "Baud rate"},
	{code: 0x1D, desc: "Response delay time (bit-times)"},
	{code: 0x1E, desc: "Retry"},
	{code: 0x1F, desc: "Remote control", forceBoolean: true},
	{code: 0x20, desc: "Storage number"},
	{code: 0x21, desc: "Storage number"},
	{code: 0x22, desc: "Storage block size"},
	{code: 0x23, desc: "Tariff descriptor"},
	{code: 0x24, mask: 0x7C, desc: "Storage interval", timeUnits: timeSMHD},
	{code: 0x28, desc: "Storage interval", unit: "months"},
	{code: 0x29, desc: "Storage interval", unit: "years"},
	{code: 0x2A, desc: "Operator specific data"},
	{code: 0x2B, dir: dirS2M, desc: "Time point second", unit: "s"},
	{code: 0x2C, mask: 0x7C, dir: dirS2M, desc: "Duration since last readout", timeUnits: timeSMHD},
	{code: 0x30, desc: "Start date/time of tariff", dateTimeType: true},
	// E011 00nn with nn = 01..11; 0x30 is the tariff start above.
	{code: 0x30, mask: 0x7C, desc: "Duration of tariff", timeUnits: timeSMHD},
	{code: 0x34, mask: 0x7C, desc: "Period of tariff", timeUnits: timeSMHD},
	{code: 0x38, desc: "Period of tariff", unit: "months"},
	{code: 0x39, desc: "Period of tariff", unit: "years"},
	{code: 0x3A, dir: dirS2M, desc: "Dimensionless"},
	{code: 0x3B, dir: dirS2M, desc: "Data container for wireless M-Bus"},
	{code: 0x3C, mask: 0x7C, desc: "Period of nominal transmissions", timeUnits: timeSMHD},
	// E100 nnnn: voltage, 10^(nnnn-9) V
	{code: 0x40, mask: 0x70, dir: dirS2M, desc: "Voltage", unit: "V", transform: Pow10(0x0F, -9)},
	// E101 nnnn: current, 10^(nnnn-12) A
	{code: 0x50, mask: 0x70, dir: dirS2M, desc: "Current", unit: "A", transform: Pow10(0x0F, -12)},
	{code: 0x60, dir: dirS2M, desc: "Reset counter"},
	{code: 0x61, dir: dirS2M, desc: "Cumulation counter"},
	{code: 0x62, desc: "Control signal"},
	{code: 0x63, dir: dirS2M, desc: "Day of week"},
	{code: 0x64, dir: dirS2M, desc: "Week number"},
	{code: 0x65, desc: "Time point of day change", dateTimeType: true},
	{code: 0x66, desc: "State of parameter activation"},
	{code: 0x67, dir: dirS2M, desc: "Special supplier information"},
	{code: 0x68, mask: 0x7C, dir: dirS2M, desc: "Duration since last cumulation", timeUnits: timeHDMY},
	{code: 0x6C, mask: 0x7C, dir: dirS2M, desc: "Operating time battery", timeUnits: timeHDMY},
	{code: 0x70, dir: dirS2M, desc: "Date and time of battery change", dateTimeType: true},
	{code: 0x71, dir: dirS2M, desc: "RF level", unit: "dBm"},
	{code: 0x72, desc: "Daylight saving"},
	{code: 0x73, desc: "Listening window management"},
	{code: 0x74, dir: dirS2M, desc: "Remaining battery lifetime", unit: "d"},
	{code: 0x75, dir: dirS2M, desc: "Number of times meter was stopped"},
	{code: 0x76, dir: dirS2M, desc: "Data container for manufacturer specific protocol"},
	{kind: entryExtension, code: 0xFD, mask: 0xFF, ext: tableSecondExtL2},
}

// secondExtL2VIFTable is the second level behind 0xFD 0xFD.
var secondExtL2VIFTable = []vifEntry{
	{code: 0x00, desc: "Currently selected application"},
	// E000 001p where p selects months or years.
	{code: 0x02, dir: dirS2M, desc: "Remaining battery lifetime", unit: "months"},
	{code: 0x03, dir: dirS2M, desc: "Remaining battery lifetime", unit: "years"},
}

// combinableVIFTable merges the orthogonal VIFE codes of Table 15 with the
// object actions of Table 17 (master to slave) and the record-error codes of
// Table 18 (slave to master). Actions and errors share code space and are
// told apart by direction.
var combinableVIFTable = []vifEntry{
	// Table 17 actions, master to slave.
	{kind: entryAction, code: 0x00, dir: dirM2S, desc: "Write (replace)"},
	{kind: entryAction, code: 0x01, dir: dirM2S, desc: "Add value"},
	{kind: entryAction, code: 0x02, dir: dirM2S, desc: "Subtract value"},
	{kind: entryAction, code: 0x03, dir: dirM2S, desc: "OR (set bits)"},
	{kind: entryAction, code: 0x04, dir: dirM2S, desc: "AND"},
	{kind: entryAction, code: 0x05, dir: dirM2S, desc: "XOR (toggle bits)"},
	{kind: entryAction, code: 0x06, dir: dirM2S, desc: "AND NOT (clear bits)"},
	{kind: entryAction, code: 0x07, dir: dirM2S, desc: "Clear"},
	{kind: entryAction, code: 0x08, dir: dirM2S, desc: "Add entry"},
	{kind: entryAction, code: 0x09, dir: dirM2S, desc: "Delete entry"},
	{kind: entryAction, code: 0x0A, dir: dirM2S, desc: "Delayed action"},
	{kind: entryAction, code: 0x0B, dir: dirM2S, desc: "Freeze data"},
	{kind: entryAction, code: 0x0C, dir: dirM2S, desc: "Add to readout-list"},
	{kind: entryAction, code: 0x0D, dir: dirM2S, desc: "Delete from readout-list"},
	// Table 18 record errors, slave to master.
	{kind: entryRecordError, code: 0x00, dir: dirS2M, desc: "None"},
	{kind: entryRecordError, code: 0x01, dir: dirS2M, desc: "Too many DIFEs"},
	{kind: entryRecordError, code: 0x02, dir: dirS2M, desc: "Storage number not implemented"},
	{kind: entryRecordError, code: 0x03, dir: dirS2M, desc: "Unit number not implemented"},
	{kind: entryRecordError, code: 0x04, dir: dirS2M, desc: "Tariff number not implemented"},
	{kind: entryRecordError, code: 0x05, dir: dirS2M, desc: "Function not implemented"},
	{kind: entryRecordError, code: 0x06, dir: dirS2M, desc: "Data class not implemented"},
	{kind: entryRecordError, code: 0x07, dir: dirS2M, desc: "Data size not implemented"},
	{kind: entryRecordError, code: 0x0B, dir: dirS2M, desc: "Too many VIFEs"},
	{kind: entryRecordError, code: 0x0C, dir: dirS2M, desc: "Illegal VIF-Group"},
	{kind: entryRecordError, code: 0x0D, dir: dirS2M, desc: "Illegal VIF-Exponent"},
	{kind: entryRecordError, code: 0x0E, dir: dirS2M, desc: "VIF/DIF mismatch"},
	{kind: entryRecordError, code: 0x0F, dir: dirS2M, desc: "Unimplemented action"},
	{kind: entryCombinable, code: 0x12, dir: dirS2M, desc: "Average value"},
	{kind: entryCombinable, code: 0x13, dir: dirS2M, desc: "Inverse compact profile"},
	{kind: entryCombinable, code: 0x14, dir: dirS2M, desc: "Relative deviation"},
	{kind: entryRecordError, code: 0x15, dir: dirS2M, desc: "No data available (undefined value)"},
	{kind: entryRecordError, code: 0x16, dir: dirS2M, desc: "Data overflow"},
	{kind: entryRecordError, code: 0x17, dir: dirS2M, desc: "Data underflow"},
	{kind: entryRecordError, code: 0x18, dir: dirS2M, desc: "Data error"},
	{kind: entryRecordError, code: 0x1C, dir: dirS2M, desc: "Premature end of record"},
	{kind: entryCombinable, code: 0x1D, dir: dirS2M, desc: "Standard conform data content"},
	{kind: entryCombinable, code: 0x1E, dir: dirS2M, desc: "Compact profile with register numbers"},
	{kind: entryCombinable, code: 0x1F, dir: dirS2M, desc: "Compact profile"},
	{kind: entryCombinable, code: 0x20, dir: dirS2M, desc: "per second"},
	{kind: entryCombinable, code: 0x21, dir: dirS2M, desc: "per minute"},
	{kind: entryCombinable, code: 0x22, dir: dirS2M, desc: "per hour"},
	{kind: entryCombinable, code: 0x23, dir: dirS2M, desc: "per day"},
	{kind: entryCombinable, code: 0x24, dir: dirS2M, desc: "per week"},
	{kind: entryCombinable, code: 0x25, dir: dirS2M, desc: "per month"},
	{kind: entryCombinable, code: 0x26, dir: dirS2M, desc: "per year"},
	{kind: entryCombinable, code: 0x27, dir: dirS2M, desc: "per revolution/measurement"},
	// E010 100p / E010 101p: pulse increments with a 1-bit channel number.
	{kind: entryCombinable, code: 0x28, mask: 0x7E, dir: dirS2M, desc: "increment per input pulse"},
	{kind: entryCombinable, code: 0x2A, mask: 0x7E, dir: dirS2M, desc: "increment per output pulse"},
	{kind: entryCombinable, code: 0x2C, dir: dirS2M, desc: "per litre"},
	{kind: entryCombinable, code: 0x2D, dir: dirS2M, desc: "per m³"},
	{kind: entryCombinable, code: 0x2E, dir: dirS2M, desc: "per kg"},
	{kind: entryCombinable, code: 0x2F, dir: dirS2M, desc: "per K"},
	{kind: entryCombinable, code: 0x30, dir: dirS2M, desc: "per kWh"},
	{kind: entryCombinable, code: 0x31, dir: dirS2M, desc: "per GJ"},
	{kind: entryCombinable, code: 0x32, dir: dirS2M, desc: "per kW"},
	{kind: entryCombinable, code: 0x33, dir: dirS2M, desc: "per (K·l)"},
	{kind: entryCombinable, code: 0x34, dir: dirS2M, desc: "per V"},
	{kind: entryCombinable, code: 0x35, dir: dirS2M, desc: "per A"},
	{kind: entryCombinable, code: 0x36, dir: dirS2M, desc: "multiplied by s"},
	{kind: entryCombinable, code: 0x37, dir: dirS2M, desc: "multiplied by s/V"},
	{kind: entryCombinable, code: 0x38, dir: dirS2M, desc: "multiplied by s/A"},
	{kind: entryCombinable, code: 0x39, dir: dirS2M, desc: "start date(/time) of"},
	{kind: entryCombinable, code: 0x3A, dir: dirS2M, desc: "uncorrected unit"},
	{kind: entryCombinable, code: 0x3B, dir: dirS2M, desc: "accumulation only if positive contributions"},
	{kind: entryCombinable, code: 0x3C, dir: dirS2M, desc: "accumulation of abs value only if negative contributions"},
	{kind: entryCombinable, code: 0x3D, dir: dirS2M, desc: "alternate non-metric unit system"},
	{kind: entryCombinable, code: 0x3E, dir: dirS2M, desc: "value at base conditions"},
	{kind: entryCombinable, code: 0x3F, desc: "OBIS-declaration"},
	// E100 u000: limit value, u = lower/upper.
	{kind: entryCombinable, code: 0x40, mask: 0x77, desc: "limit value"},
	{kind: entryCombinable, code: 0x41, mask: 0x77, dir: dirS2M, desc: "number of exceeds of limit"},
	// E100 uf1b: date(/time) of limit exceed.
	{kind: entryCombinable, code: 0x42, mask: 0x73, dir: dirS2M, desc: "date(/time) of limit exceed"},
	// E101 ufnn: duration of limit exceed.
	{kind: entryCombinable, code: 0x50, mask: 0x70, dir: dirS2M, desc: "duration of limit exceed"},
	// E110 0fnn: duration of.
	{kind: entryCombinable, code: 0x60, mask: 0x78, dir: dirS2M, desc: "duration of"},
	// E110 1u00: value during limit exceed.
	{kind: entryCombinable, code: 0x68, mask: 0x7B, dir: dirS2M, desc: "value during limit exceed"},
	{kind: entryCombinable, code: 0x69, dir: dirS2M, desc: "leakage values"},
	{kind: entryCombinable, code: 0x6D, dir: dirS2M, desc: "overflow values"},
	// E110 1f1b: date(/time) of.
	{kind: entryCombinable, code: 0x6A, mask: 0x7A, dir: dirS2M, desc: "date(/time) of"},
	// E111 0nnn: multiplicative correction 10^(nnn-6).
	{kind: entryCombinable, code: 0x70, mask: 0x78, desc: "multiplicative correction", transform: Pow10(0x07, -6)},
	// E111 10nn: additive correction 10^(nn-3).
	{kind: entryCombinable, code: 0x78, mask: 0x7C, desc: "additive correction", transform: Add10(0x03, -3)},
	{kind: entryExtension, code: 0xFC, mask: 0xFF, ext: tableCombinableExt},
	{kind: entryCombinable, code: 0x7D, desc: "multiplicative correction 10³", transform: Mul(1000)},
	{kind: entryCombinable, code: 0x7E, dir: dirS2M, desc: "future value"},
	{kind: entryManufacturer, code: 0x7F, desc: "manufacturer specific"},
}

// combinableExtVIFTable is Table 16, reached through combinable VIFE 0xFC.
var combinableExtVIFTable = []vifEntry{
	{kind: entryCombinable, code: 0x01, dir: dirS2M, desc: "at phase L1"},
	{kind: entryCombinable, code: 0x02, dir: dirS2M, desc: "at phase L2"},
	{kind: entryCombinable, code: 0x03, dir: dirS2M, desc: "at phase L3"},
	{kind: entryCombinable, code: 0x04, dir: dirS2M, desc: "at neutral"},
	{kind: entryCombinable, code: 0x05, dir: dirS2M, desc: "between phase L1 and L2"},
	{kind: entryCombinable, code: 0x06, dir: dirS2M, desc: "between phase L2 and L3"},
	{kind: entryCombinable, code: 0x07, dir: dirS2M, desc: "between phase L3 and L1"},
	{kind: entryCombinable, code: 0x08, dir: dirS2M, desc: "at quadrant Q1"},
	{kind: entryCombinable, code: 0x09, dir: dirS2M, desc: "at quadrant Q2"},
	{kind: entryCombinable, code: 0x0A, dir: dirS2M, desc: "at quadrant Q3"},
	{kind: entryCombinable, code: 0x0B, dir: dirS2M, desc: "at quadrant Q4"},
	{kind: entryCombinable, code: 0x0C, dir: dirS2M, desc: "delta between import and export"},
	{kind: entryCombinable, code: 0x10, dir: dirS2M, desc: "accumulation of absolute value"},
	{kind: entryCombinable, code: 0x11, dir: dirS2M, desc: "data presented with type C", forceUnsigned: true},
	{kind: entryCombinable, code: 0x12, dir: dirS2M, desc: "data presented with type D", forceBoolean: true},
	{kind: entryCombinable, code: 0x14, desc: "direction: communication partner to meter"},
	{kind: entryCombinable, code: 0x15, desc: "direction: meter to communication partner"},
}
