package measure

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidUnit is returned when a unit label is not recognized or does not
// apply to the attribute being converted.
var ErrInvalidUnit = errors.New("invalid measurement unit")

// PhysicalValue is a whole-number value paired with its unit label.
type PhysicalValue struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

// String renders v as "<value> <unit>", or just the value for raw registers.
func (v PhysicalValue) String() string {
	if v.Unit == UnitNone {
		return strconv.FormatInt(v.Value, 10)
	}
	return strconv.FormatInt(v.Value, 10) + " " + v.Unit
}

// KnownUnit reports whether unit is one of the recognized labels.
func KnownUnit(unit string) bool {
	switch unit {
	case UnitMillivolts, UnitFarads, UnitCelsius, UnitMilliohms, UnitNone:
		return true
	}
	return false
}

// FormatValue converts a raw code read from the named attribute into its
// physical value. Unclassified attributes come back unchanged with an empty
// unit.
func FormatValue(name string, raw int64) PhysicalValue {
	k := Classify(name)
	return PhysicalValue{Value: k.FromRaw(raw), Unit: k.Unit()}
}

// ToRaw converts a physical value for the named attribute into the raw code
// to write. An empty unit passes value through unchanged. A unit that is not
// recognized, or that belongs to a different quantity than the attribute,
// fails with ErrInvalidUnit.
func ToRaw(name string, value int64, unit string) (int64, error) {
	if !KnownUnit(unit) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	if unit == UnitNone {
		return value, nil
	}
	k := Classify(name)
	if k.Unit() != unit {
		return 0, fmt.Errorf("%w: %q does not apply to %s (%s)", ErrInvalidUnit, unit, name, k)
	}
	return k.ToRaw(value), nil
}
