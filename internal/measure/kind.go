// Package measure converts between the raw LSB codes exposed by an LTC3350
// supercapacitor backup controller and physical units.
//
// All arithmetic is integer-only with 64-bit intermediates. The package holds
// no state and every function is safe for concurrent use.
package measure

// Unit labels for physical values. The empty label marks an unconverted
// register value.
const (
	UnitMillivolts = "mV"
	UnitFarads     = "F"
	UnitCelsius    = "C"
	UnitMilliohms  = "mR"
	UnitNone       = ""
)

// Kind is the quantity family a register belongs to. It is chosen from the
// attribute name alone, never from the value.
type Kind int

const (
	// Raw registers are reported and written unconverted.
	Raw Kind = iota
	// VoltageLow covers the per-cell, GPI and shunt channels (183.5 µV/LSB).
	VoltageLow
	// VoltageMid covers the capacitor stack voltage (1.476 mV/LSB).
	VoltageMid
	// VoltageHigh covers VIN and VOUT (2.21 mV/LSB).
	VoltageHigh
	Capacitance
	Temperature
	Resistance
)

// Voltage scale factors in units of 0.1 µV per LSB.
const (
	FactorLow  = 1835
	FactorMid  = 14760
	FactorHigh = 22100
)

// Reference circuit resistors.
const (
	// RT is the capacitance-measurement resistor in ohms.
	RT = 86600
	// RTST is the capacitance test-current resistor in ohms.
	RTST = 121
	// RSNSC is the charge-current sense resistor in milliohms.
	RSNSC = 5
)

var kindNames = map[Kind]string{
	Raw:         "raw",
	VoltageLow:  "voltage_low",
	VoltageMid:  "voltage_mid",
	VoltageHigh: "voltage_high",
	Capacitance: "capacitance",
	Temperature: "temperature",
	Resistance:  "resistance",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Unit returns the label of the physical unit k converts to.
func (k Kind) Unit() string {
	switch k {
	case VoltageLow, VoltageMid, VoltageHigh:
		return UnitMillivolts
	case Capacitance:
		return UnitFarads
	case Temperature:
		return UnitCelsius
	case Resistance:
		return UnitMilliohms
	default:
		return UnitNone
	}
}

// Factor returns the voltage scale factor for the voltage kinds and 0 for
// every other kind.
func (k Kind) Factor() int64 {
	switch k {
	case VoltageLow:
		return FactorLow
	case VoltageMid:
		return FactorMid
	case VoltageHigh:
		return FactorHigh
	default:
		return 0
	}
}

// FromRaw applies the forward conversion law of k.
func (k Kind) FromRaw(raw int64) int64 {
	switch k {
	case VoltageLow, VoltageMid, VoltageHigh:
		return MillivoltsFromRaw(raw, k.Factor())
	case Capacitance:
		return FaradsFromRaw(raw)
	case Temperature:
		return CelsiusFromRaw(raw)
	case Resistance:
		return MilliohmsFromRaw(raw)
	default:
		return raw
	}
}

// ToRaw applies the inverse conversion law of k.
func (k Kind) ToRaw(value int64) int64 {
	switch k {
	case VoltageLow, VoltageMid, VoltageHigh:
		return RawFromMillivolts(value, k.Factor())
	case Capacitance:
		return RawFromFarads(value)
	case Temperature:
		return RawFromCelsius(value)
	case Resistance:
		return RawFromMilliohms(value)
	default:
		return value
	}
}
