package status

// Register names of the three status words and the alarm control registers.
const (
	AttrAlarmRegister = "alarm_reg"
	AttrMonitorStatus = "mon_status"
	AttrChargerStatus = "chrg_status"
	AttrClearAlarms   = "clr_alarms"
	AttrMaskAlarms    = "msk_alarms"
)

var monitorTable = []Bit{
	{Index: 0, Name: "capesr_active", Description: "Capacitance/ESR measurement is in progress."},
	{Index: 1, Name: "capesr_scheduled", Description: "Waiting programmed time to begin a capacitance/ESR measurement."},
	{Index: 2, Name: "capesr_pending", Description: "Waiting for satisfactory conditions to begin a capacitance/ESR measurement."},
	{Index: 3, Name: "cap_done", Description: "Capacitance measurement has completed."},
	{Index: 4, Name: "esr_done", Description: "ESR measurement has completed."},
	{Index: 5, Name: "cap_failed", Description: "The last attempted capacitance measurement was unable to complete."},
	{Index: 6, Name: "esr_failed", Description: "The last attempted ESR measurement was unable to complete."},
	{Index: 8, Name: "power_failed", Description: "The device is no longer connected to power outlet."},
	{Index: 9, Name: "power_returned", Description: "The device is connected to power outlet."},
}

var alarmTable = []Bit{
	{Index: 0, Name: "cap_uv", Description: "Capacitor undervoltage alarm",
		Related: &Related{Measurement: "meas_cap", Threshold: "cap_uv_lvl", MeasurementLabel: "Measured capacitance", ThresholdLabel: "Capacitor undervoltage level"}},
	{Index: 1, Name: "cap_ov", Description: "Capacitor overvoltage alarm",
		Related: &Related{Measurement: "meas_cap", Threshold: "cap_ov_lvl", MeasurementLabel: "Measured capacitance", ThresholdLabel: "Capacitor overvoltage level"}},
	{Index: 2, Name: "gpi_uv", Description: "General purpose input undervoltage alarm",
		Related: &Related{Measurement: "meas_gpi", Threshold: "gpi_uv_lvl", MeasurementLabel: "Measured GPI pin voltage", ThresholdLabel: "General purpose input undervoltage level"}},
	{Index: 3, Name: "gpi_ov", Description: "General purpose input overvoltage alarm",
		Related: &Related{Measurement: "meas_gpi", Threshold: "gpi_ov_lvl", MeasurementLabel: "Measured GPI pin voltage", ThresholdLabel: "General purpose input overvoltage level"}},
	{Index: 4, Name: "vin_uv", Description: "Input undervoltage alarm",
		Related: &Related{Measurement: "meas_vin", Threshold: "vin_uv_lvl", MeasurementLabel: "Measured VIN voltage", ThresholdLabel: "VIN undervoltage level"}},
	{Index: 5, Name: "vin_ov", Description: "Input overvoltage alarm",
		Related: &Related{Measurement: "meas_vin", Threshold: "vin_ov_lvl", MeasurementLabel: "Measured VIN voltage", ThresholdLabel: "VIN overvoltage level"}},
	{Index: 6, Name: "vcap_uv", Description: "Capacitor stack undervoltage alarm",
		Related: &Related{Measurement: "meas_vcap", Threshold: "vcap_uv_lvl", MeasurementLabel: "Measured VCAP voltage", ThresholdLabel: "VCAP undervoltage level"}},
	{Index: 7, Name: "vcap_ov", Description: "Capacitor stack overvoltage alarm",
		Related: &Related{Measurement: "meas_vcap", Threshold: "vcap_ov_lvl", MeasurementLabel: "Measured VCAP voltage", ThresholdLabel: "VCAP overvoltage level"}},
	{Index: 8, Name: "vout_uv", Description: "Output undervoltage alarm",
		Related: &Related{Measurement: "meas_vout", Threshold: "vout_uv_lvl", MeasurementLabel: "Measured VOUT voltage", ThresholdLabel: "VOUT undervoltage level"}},
	{Index: 9, Name: "vout_ov", Description: "Output overvoltage alarm",
		Related: &Related{Measurement: "meas_vout", Threshold: "vout_ov_lvl", MeasurementLabel: "Measured VOUT voltage", ThresholdLabel: "VOUT overvoltage level"}},
	{Index: 10, Name: "iin_oc", Description: "Input overcurrent alarm",
		Related: &Related{Measurement: "meas_iin", Threshold: "iin_oc_lvl", MeasurementLabel: "Measured IIN current", ThresholdLabel: "Input overcurrent level"}},
	{Index: 11, Name: "ichg_uc", Description: "Charge undercurrent alarm",
		Related: &Related{Measurement: "meas_ichg", Threshold: "ichg_uc_lvl", MeasurementLabel: "Measured ICHG current", ThresholdLabel: "Charge undercurrent level"}},
	{Index: 12, Name: "dtemp_cold", Description: "Die temperature cold alarm",
		Related: &Related{Measurement: "meas_dtemp", Threshold: "dtemp_cold_lvl", MeasurementLabel: "Measured die temperature", ThresholdLabel: "Die temperature cold level"}},
	{Index: 13, Name: "dtemp_hot", Description: "Die temperature hot alarm",
		Related: &Related{Measurement: "meas_dtemp", Threshold: "dtemp_hot_lvl", MeasurementLabel: "Measured die temperature", ThresholdLabel: "Die temperature hot level"}},
	{Index: 14, Name: "esr_hi", Description: "Stack ESR high alarm",
		Related: &Related{Measurement: "meas_esr", Threshold: "esr_hi_lvl", MeasurementLabel: "Measured ESR", ThresholdLabel: "ESR high level"}},
	{Index: 15, Name: "cap_lo", Description: "Stack capacitance low alarm",
		Related: &Related{Measurement: "meas_cap", Threshold: "cap_lo_lvl", MeasurementLabel: "Measured capacitance", ThresholdLabel: "Capacitance low level"}},
}

var chargerTable = []Bit{
	{Index: 0, Name: "stepdown", Description: "The synchronous controller is in step-down mode (charging)"},
	{Index: 1, Name: "stepup", Description: "The synchronous controller is in step-up mode (backup)"},
	{Index: 2, Name: "cv", Description: "The charger is in constant voltage mode"},
	{Index: 3, Name: "uvlo", Description: "The charger is in undervoltage lockout"},
	{Index: 4, Name: "input_ilim", Description: "The charger is in input current limit"},
	{Index: 5, Name: "cappg", Description: "The capacitor voltage is above power good threshold"},
	{Index: 6, Name: "shnt", Description: "The capacitor manager is shunting"},
	{Index: 7, Name: "bal", Description: "The capacitor manager is balancing"},
	{Index: 8, Name: "dis", Description: "The charger is temporarily disabled for capacitance measurement"},
	{Index: 9, Name: "ci", Description: "The charger is in constant current mode"},
	{Index: 11, Name: "pfo", Description: "Input voltage is below PFI threshold"},
}
