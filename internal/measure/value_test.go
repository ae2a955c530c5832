package measure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Classify_Cases(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"meas_vcap1", VoltageLow},
		{"vcap4", VoltageLow},
		{"meas_gpi", VoltageLow},
		{"gpi_uv_lvl", VoltageLow},
		{"vshunt", VoltageLow},
		{"cap_ov_lvl", VoltageLow},
		{"cap_uv_lvl", VoltageLow},
		{"vcap", VoltageMid},
		{"meas_vcap", VoltageMid},
		{"vcap_uv_lvl", VoltageMid},
		{"vcap_ov_lvl", VoltageMid},
		{"meas_vin", VoltageHigh},
		{"vin_ov_lvl", VoltageHigh},
		{"meas_vout", VoltageHigh},
		{"vout_uv_lvl", VoltageHigh},
		{"meas_cap", Capacitance},
		{"cap_lo_lvl", Capacitance},
		{"cap_esr_per", Raw},
		{"cap_esr_something", Raw},
		{"meas_dtemp", Temperature},
		{"dtemp_hot_lvl", Temperature},
		{"meas_esr", Resistance},
		{"esr_hi_lvl", Resistance},
		{"alarm_reg", Raw},
		{"mon_status", Raw},
		{"chrg_status", Raw},
		{"msk_alarms", Raw},
		{"clr_alarms", Raw},
		{"meas_iin", Raw},
		{"meas_ichg", Raw},
		{"", Raw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name), "Classify(%q)", tt.name)
		})
	}
}

func Test_Classify_CellPrefixBeatsStackPrefix(t *testing.T) {
	// "meas_vcap2" also starts with "meas_vcap".
	assert.Equal(t, VoltageLow, Classify("meas_vcap2"))
	assert.Equal(t, int64(FactorLow), Classify("meas_vcap2").Factor())
}

func Test_Kind_Unit(t *testing.T) {
	assert.Equal(t, UnitMillivolts, VoltageMid.Unit())
	assert.Equal(t, UnitFarads, Capacitance.Unit())
	assert.Equal(t, UnitCelsius, Temperature.Unit())
	assert.Equal(t, UnitMilliohms, Resistance.Unit())
	assert.Equal(t, UnitNone, Raw.Unit())
	assert.Equal(t, "voltage_high", VoltageHigh.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func Test_FormatValue_Cases(t *testing.T) {
	tests := []struct {
		attr string
		raw  int64
		want PhysicalValue
	}{
		{"meas_vin", 1000, PhysicalValue{Value: 2210, Unit: "mV"}},
		{"meas_vcap", 1000, PhysicalValue{Value: 1476, Unit: "mV"}},
		{"meas_vcap1", 10000, PhysicalValue{Value: 1835, Unit: "mV"}},
		{"meas_cap", 1000, PhysicalValue{Value: 240, Unit: "F"}},
		{"meas_dtemp", 10050, PhysicalValue{Value: 30, Unit: "C"}},
		{"meas_esr", 640, PhysicalValue{Value: 50, Unit: "mR"}},
		{"alarm_reg", 3, PhysicalValue{Value: 3, Unit: ""}},
		{"some_future_register", -17, PhysicalValue{Value: -17, Unit: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.attr, tt.raw))
		})
	}
}

func Test_PhysicalValue_String(t *testing.T) {
	assert.Equal(t, "2210 mV", PhysicalValue{Value: 2210, Unit: "mV"}.String())
	assert.Equal(t, "-3", PhysicalValue{Value: -3}.String())
}

func Test_ToRaw_Cases(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		value   int64
		unit    string
		want    int64
		wantErr bool
	}{
		{name: "high voltage", attr: "meas_vin", value: 2210, unit: "mV", want: 1000},
		{name: "mid voltage threshold", attr: "vcap_ov_lvl", value: 1476, unit: "mV", want: 1000},
		{name: "temperature", attr: "dtemp_hot_lvl", value: 30, unit: "C", want: 10050},
		{name: "capacitance", attr: "cap_lo_lvl", value: 240, unit: "F", want: 998},
		{name: "resistance", attr: "esr_hi_lvl", value: 50, unit: "mR", want: 640},
		{name: "empty unit passes through", attr: "msk_alarms", value: 65535, unit: "", want: 65535},
		{name: "empty unit on converted attribute passes through", attr: "vin_uv_lvl", value: 4000, unit: "", want: 4000},
		{name: "unknown unit", attr: "vin_something", value: 5, unit: "Z", wantErr: true},
		{name: "unit of another quantity", attr: "meas_vin", value: 5, unit: "F", wantErr: true},
		{name: "unit on raw attribute", attr: "alarm_reg", value: 5, unit: "mV", wantErr: true},
		{name: "unit labels are case sensitive", attr: "meas_vin", value: 5, unit: "mv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRaw(tt.attr, tt.value, tt.unit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidUnit), "error %v should wrap ErrInvalidUnit", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_ToRaw_InvertsFormatValue(t *testing.T) {
	tests := []struct {
		attr string
		raw  int64
	}{
		{"meas_vin", 1000},
		{"vout_ov_lvl", 3000},
		{"meas_vcap", 5000},
		{"cap_uv_lvl", 2000},
		{"dtemp_cold_lvl", 9050},
		{"esr_hi_lvl", 640},
		{"msk_alarms", 12345},
	}
	for _, tt := range tests {
		v := FormatValue(tt.attr, tt.raw)
		got, err := ToRaw(tt.attr, v.Value, v.Unit)
		require.NoError(t, err, tt.attr)
		assert.Equal(t, tt.raw, got, "%s: %d -> %s", tt.attr, tt.raw, v)
	}
}
