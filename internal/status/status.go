// Package status decodes the LTC3350 alarm register, monitor status and
// charger status words against fixed bit tables.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCondition is returned when a condition name is not defined for a
// word kind.
var ErrUnknownCondition = errors.New("unknown condition")

// WordKind selects one of the three status words.
type WordKind int

const (
	MonitorStatus WordKind = iota
	AlarmRegister
	ChargerStatus
)

// WordKinds lists every word kind in report order.
var WordKinds = []WordKind{MonitorStatus, AlarmRegister, ChargerStatus}

func (k WordKind) String() string {
	switch k {
	case MonitorStatus:
		return "monitor"
	case AlarmRegister:
		return "alarm"
	case ChargerStatus:
		return "charger"
	default:
		return "unknown"
	}
}

// Attribute returns the register name holding the word.
func (k WordKind) Attribute() string {
	switch k {
	case MonitorStatus:
		return AttrMonitorStatus
	case AlarmRegister:
		return AttrAlarmRegister
	case ChargerStatus:
		return AttrChargerStatus
	default:
		return ""
	}
}

// ParseWordKind accepts either the kind name ("alarm") or its register name
// ("alarm_reg").
func ParseWordKind(s string) (WordKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range WordKinds {
		if s == k.String() || s == k.Attribute() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown status word %q: valid words are monitor, alarm, charger", s)
}

// KindForAttribute reports which word kind an attribute name holds.
func KindForAttribute(attr string) (WordKind, bool) {
	for _, k := range WordKinds {
		if k.Attribute() == attr {
			return k, true
		}
	}
	return 0, false
}

// Related names the two attributes an alarm should be reported with.
type Related struct {
	Measurement      string `json:"measurement"`
	Threshold        string `json:"threshold"`
	MeasurementLabel string `json:"measurement_label"`
	ThresholdLabel   string `json:"threshold_label"`
}

// Bit is one entry of a bit table.
type Bit struct {
	Index       int
	Name        string
	Description string
	Related     *Related
}

// Condition is one decoded, active bit.
type Condition struct {
	Bit         int      `json:"bit"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Related     *Related `json:"related,omitempty"`
}

// Table returns the bit table for k in ascending bit order. The returned
// slice must not be modified.
func Table(k WordKind) []Bit {
	switch k {
	case MonitorStatus:
		return monitorTable
	case AlarmRegister:
		return alarmTable
	case ChargerStatus:
		return chargerTable
	default:
		return nil
	}
}

// Decode returns the conditions of k whose bit is set in word, in ascending
// bit order. Bits without a table entry are ignored. The conditions share no
// memory with the bit tables.
func Decode(k WordKind, word int64) []Condition {
	var out []Condition
	for _, b := range Table(k) {
		if word&(1<<uint(b.Index)) == 0 {
			continue
		}
		c := Condition{
			Bit:         b.Index,
			Name:        b.Name,
			Description: b.Description,
		}
		if b.Related != nil {
			r := *b.Related
			c.Related = &r
		}
		out = append(out, c)
	}
	return out
}

// DefinedMask returns the word with every defined bit of k set.
func DefinedMask(k WordKind) int64 {
	var m int64
	for _, b := range Table(k) {
		m |= 1 << uint(b.Index)
	}
	return m
}

// Encode builds a word of kind k with the named condition bits set. It is
// used to compose alarm mask values.
func Encode(k WordKind, names []string) (int64, error) {
	var word int64
	for _, name := range names {
		idx, ok := lookup(k, name)
		if !ok {
			return 0, fmt.Errorf("%w: %q is not a %s condition", ErrUnknownCondition, name, k)
		}
		word |= 1 << uint(idx)
	}
	return word, nil
}

func lookup(k WordKind, name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, b := range Table(k) {
		if b.Name == name {
			return b.Index, true
		}
	}
	return 0, false
}
