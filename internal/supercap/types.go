package supercap

import (
	"github.com/jamesprial/supercap-mcp/internal/measure"
	"github.com/jamesprial/supercap-mcp/internal/status"
)

// Reading is one attribute value, raw and converted. When the attribute could
// not be read Error is set and the numeric fields are zero.
type Reading struct {
	Attribute string                `json:"attribute"`
	Kind      string                `json:"kind"`
	Raw       int64                 `json:"raw"`
	Value     measure.PhysicalValue `json:"value"`
	Error     string                `json:"error,omitempty"`
}

// OK reports whether the attribute was read successfully.
func (r Reading) OK() bool {
	return r.Error == ""
}

// Text renders the converted value for display, or "?" when r is nil or
// could not be read.
func (r *Reading) Text() string {
	if r == nil || !r.OK() {
		return "?"
	}
	return r.Value.String()
}

// ActiveCondition is a decoded status bit together with the current values of
// its related attributes, if it has any.
type ActiveCondition struct {
	status.Condition
	Measurement *Reading `json:"measurement,omitempty"`
	Threshold   *Reading `json:"threshold,omitempty"`
}

// WordReport is the decoded state of one status word.
type WordReport struct {
	Word       string            `json:"word"`
	Attribute  string            `json:"attribute"`
	Raw        int64             `json:"raw"`
	Conditions []ActiveCondition `json:"conditions"`
	Error      string            `json:"error,omitempty"`
}

// Report is the decoded state of all three status words. Warnings list
// attributes that could not be read; the report is still usable.
type Report struct {
	Monitor  WordReport `json:"monitor"`
	Alarms   WordReport `json:"alarms"`
	Charger  WordReport `json:"charger"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Words returns the three word reports in monitor, alarm, charger order.
func (r Report) Words() []WordReport {
	return []WordReport{r.Monitor, r.Alarms, r.Charger}
}

// SensorReading is a live measurement with the thresholds bounding it.
type SensorReading struct {
	Sensor      string   `json:"sensor"`
	Measurement Reading  `json:"measurement"`
	Max         *Reading `json:"max,omitempty"`
	Min         *Reading `json:"min,omitempty"`
}

// WriteResult describes a completed write.
type WriteResult struct {
	Attribute string `json:"attribute"`
	Requested int64  `json:"requested"`
	Unit      string `json:"unit"`
	Raw       int64  `json:"raw"`
}
