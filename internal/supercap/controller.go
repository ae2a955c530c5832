// Package supercap is the operator view of an LTC3350 supercapacitor
// controller, built over a hwmon attribute store.
package supercap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jamesprial/supercap-mcp/internal/hwmon"
	"github.com/jamesprial/supercap-mcp/internal/measure"
	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/sirupsen/logrus"
)

// ErrWriteDenied is returned when the attribute filter refuses a write.
var ErrWriteDenied = errors.New("write denied")

const measPrefix = "meas_"

// Controller reads and writes controller attributes through a Store. It holds
// no device state of its own and is safe for concurrent use when the Store is.
type Controller struct {
	store  hwmon.Store
	filter *safety.Filter
	log    logrus.FieldLogger
}

// NewController returns a Controller. A nil filter permits every write; a nil
// log discards output.
func NewController(store hwmon.Store, filter *safety.Filter, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Controller{store: store, filter: filter, log: log}
}

// Store returns the underlying attribute store.
func (c *Controller) Store() hwmon.Store {
	return c.store
}

// Read returns one attribute, raw and converted.
func (c *Controller) Read(ctx context.Context, name string) (Reading, error) {
	raw, err := c.store.ReadRaw(ctx, name)
	if err != nil {
		return Reading{}, err
	}
	return newReading(name, raw), nil
}

func newReading(name string, raw int64) Reading {
	return Reading{
		Attribute: name,
		Kind:      measure.Classify(name).String(),
		Raw:       raw,
		Value:     measure.FormatValue(name, raw),
	}
}

// readOrError never fails; a read error is carried in Reading.Error.
func (c *Controller) readOrError(ctx context.Context, name string) Reading {
	r, err := c.Read(ctx, name)
	if err != nil {
		return Reading{Attribute: name, Kind: measure.Classify(name).String(), Error: err.Error()}
	}
	return r
}

// Show returns every attribute of the device. Attributes that cannot be read
// are included with Error set.
func (c *Controller) Show(ctx context.Context) ([]Reading, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	out := make([]Reading, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := c.readOrError(ctx, name)
		if !r.OK() {
			c.log.WithField("attribute", name).Warnf("read failed: %s", r.Error)
		}
		out = append(out, r)
	}
	return out, nil
}

// Write converts value from unit to a raw code for name and stores it. An
// empty unit writes value unchanged.
func (c *Controller) Write(ctx context.Context, name string, value int64, unit string) (WriteResult, error) {
	if err := c.filter.Check(name); err != nil {
		return WriteResult{}, fmt.Errorf("%w: %v", ErrWriteDenied, err)
	}
	raw, err := measure.ToRaw(name, value, unit)
	if err != nil {
		return WriteResult{}, err
	}
	if err := c.store.Write(ctx, name, strconv.FormatInt(raw, 10)); err != nil {
		return WriteResult{}, err
	}
	c.log.WithFields(logrus.Fields{
		"attribute": name,
		"value":     value,
		"unit":      unit,
		"raw":       raw,
	}).Info("attribute written")
	return WriteResult{Attribute: name, Requested: value, Unit: unit, Raw: raw}, nil
}

// ClearAlarms acknowledges every active alarm by writing the current alarm
// register back to the clear register. It returns the cleared word.
func (c *Controller) ClearAlarms(ctx context.Context) (int64, error) {
	if err := c.filter.Check(status.AttrClearAlarms); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteDenied, err)
	}
	active, err := c.store.ReadRaw(ctx, status.AttrAlarmRegister)
	if err != nil {
		return 0, fmt.Errorf("read alarm register: %w", err)
	}
	if err := c.store.Write(ctx, status.AttrClearAlarms, strconv.FormatInt(active, 10)); err != nil {
		return 0, fmt.Errorf("clear alarms: %w", err)
	}
	c.log.WithField("alarms", active).Info("alarms cleared")
	return active, nil
}

// MaskAlarms enables exactly the named alarm conditions. An empty list
// disables every alarm.
func (c *Controller) MaskAlarms(ctx context.Context, names []string) (int64, error) {
	if err := c.filter.Check(status.AttrMaskAlarms); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteDenied, err)
	}
	mask, err := status.Encode(status.AlarmRegister, names)
	if err != nil {
		return 0, err
	}
	if err := c.store.Write(ctx, status.AttrMaskAlarms, strconv.FormatInt(mask, 10)); err != nil {
		return 0, fmt.Errorf("mask alarms: %w", err)
	}
	c.log.WithFields(logrus.Fields{"mask": mask, "alarms": strings.Join(names, ",")}).Info("alarm mask written")
	return mask, nil
}

// Word reads and decodes a single status word. Related attributes of active
// conditions are read as well; failures there are reported in the returned
// warnings, not as an error.
func (c *Controller) Word(ctx context.Context, kind status.WordKind) (WordReport, []string, error) {
	attr := kind.Attribute()
	raw, err := c.store.ReadRaw(ctx, attr)
	if err != nil {
		return WordReport{Word: kind.String(), Attribute: attr, Error: err.Error()}, nil, err
	}
	report, warnings := c.DecodeWord(ctx, kind, raw)
	return report, warnings, nil
}

// DecodeWord decodes raw as a word of kind and reads the related attributes of
// its active conditions. Unreadable related attributes produce warnings.
func (c *Controller) DecodeWord(ctx context.Context, kind status.WordKind, raw int64) (WordReport, []string) {
	report := WordReport{
		Word:       kind.String(),
		Attribute:  kind.Attribute(),
		Raw:        raw,
		Conditions: []ActiveCondition{},
	}
	var warnings []string
	for _, cond := range status.Decode(kind, raw) {
		ac := ActiveCondition{Condition: cond}
		if cond.Related != nil {
			m := c.readOrError(ctx, cond.Related.Measurement)
			th := c.readOrError(ctx, cond.Related.Threshold)
			for _, r := range []Reading{m, th} {
				if !r.OK() {
					warnings = append(warnings, fmt.Sprintf("%s: %s may be wrong: %s", cond.Name, r.Attribute, r.Error))
				}
			}
			ac.Measurement = &m
			ac.Threshold = &th
		}
		report.Conditions = append(report.Conditions, ac)
	}
	return report, warnings
}

// Report decodes the monitor, alarm and charger words. A word that cannot be
// read is reported with Error set and a warning; Report fails only when none
// of the words could be read.
func (c *Controller) Report(ctx context.Context) (Report, error) {
	var rep Report
	failed := 0
	for _, kind := range status.WordKinds {
		wr, warnings, err := c.Word(ctx, kind)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Report{}, ctxErr
			}
			failed++
			warnings = append(warnings, fmt.Sprintf("%s status value may be wrong: %v", kind, err))
		}
		rep.Warnings = append(rep.Warnings, warnings...)
		switch kind {
		case status.MonitorStatus:
			rep.Monitor = wr
		case status.AlarmRegister:
			rep.Alarms = wr
		case status.ChargerStatus:
			rep.Charger = wr
		}
	}
	for _, w := range rep.Warnings {
		c.log.Warn(w)
	}
	if failed == len(status.WordKinds) {
		return rep, errors.New("no status word could be read")
	}
	return rep, nil
}

// sensorBounds maps a measurement (without its meas_ prefix) to the threshold
// attributes above and below it.
var sensorBounds = map[string][2]string{
	"vcap1": {"cap_ov_lvl", "cap_uv_lvl"},
	"vcap2": {"cap_ov_lvl", "cap_uv_lvl"},
	"vcap3": {"cap_ov_lvl", "cap_uv_lvl"},
	"vcap4": {"cap_ov_lvl", "cap_uv_lvl"},
	"dtemp": {"dtemp_hot_lvl", "dtemp_cold_lvl"},
	"gpi":   {"gpi_ov_lvl", "gpi_uv_lvl"},
	"vin":   {"vin_ov_lvl", "vin_uv_lvl"},
	"vcap":  {"vcap_ov_lvl", "vcap_uv_lvl"},
	"vout":  {"vout_ov_lvl", "vout_uv_lvl"},
	"iin":   {"iin_oc_lvl", ""},
	"ichg":  {"", "ichg_uc_lvl"},
	"esr":   {"esr_hi_lvl", ""},
	"cap":   {"", "cap_lo_lvl"},
}

// Sensors returns every meas_ attribute that has threshold attributes, each
// with its thresholds. Thresholds missing from the device are omitted.
func (c *Controller) Sensors(ctx context.Context) ([]SensorReading, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	var out []SensorReading
	for _, name := range names {
		sensor, ok := strings.CutPrefix(name, measPrefix)
		if !ok {
			continue
		}
		bounds, ok := sensorBounds[sensor]
		if !ok {
			continue
		}
		sr := SensorReading{Sensor: sensor, Measurement: c.readOrError(ctx, name)}
		sr.Max = c.optionalReading(ctx, present, bounds[0])
		sr.Min = c.optionalReading(ctx, present, bounds[1])
		out = append(out, sr)
	}
	return out, nil
}

func (c *Controller) optionalReading(ctx context.Context, present map[string]struct{}, name string) *Reading {
	if name == "" {
		return nil
	}
	if _, ok := present[name]; !ok {
		return nil
	}
	r := c.readOrError(ctx, name)
	return &r
}
