// internal/schema/battery.go
package schema

import "github.com/tamzrod/solaredge-bridge/internal/calc"

// SunSpec storage device types. SolarEdge batteries do not report one,
// the Modbus client tags their blocks with DIDBattery.
const (
	DIDBattery        = 802
	DIDLithiumIonBank = 803
)

// Battery field ids.
const (
	BatteryStatus = iota + 1
	BatteryStatusInternal
	BatteryEventLog
	BatteryEventLogInternal
	BatteryRatedEnergy
	BatteryMaxChargeContPower
	BatteryMaxDischargeContPower
	BatteryMaxChargePeakPower
	BatteryMaxDischargePeakPower
	BatteryAverageTemp
	BatteryMaxTemp
	BatteryInstantVoltage
	BatteryInstantCurrent
	BatteryInstantPower
	BatteryLifeExportEnergy
	BatteryLifeImportEnergy
	BatteryMaxEnergy
	BatteryAvailableEnergy
	BatterySOH
	BatterySOE
)

var batteryRows = []Row{
	field(BatteryStatus, "Status", textDevice(), "status", "", FormatValue).lookup(BatteryStatusMap),
	field(BatteryStatusInternal, "Internal Status", textDevice(), "status_internal", "", FormatValue),
	field(BatteryEventLog, "Event Log", textDevice(), "event_log", "", FormatValue),
	field(BatteryEventLogInternal, "Internal Event Log", textDevice(), "event_log_internal", "", FormatValue),
	field(BatteryRatedEnergy, "Rated Energy", customDevice("Wh"), "rated_energy", "", FormatFixed2),
	field(BatteryMaxChargeContPower, "Max Charge Continuous Power", usageDevice(), "maximum_charge_continuous_power", "", FormatFixed2),
	field(BatteryMaxDischargeContPower, "Max Discharge Continuous Power", usageDevice(), "maximum_discharge_continuous_power", "", FormatFixed2),
	field(BatteryMaxChargePeakPower, "Max Charge Peak Power", usageDevice(), "maximum_charge_peak_power", "", FormatFixed2),
	field(BatteryMaxDischargePeakPower, "Max Discharge Peak Power", usageDevice(), "maximum_discharge_peak_power", "", FormatFixed2),
	field(BatteryAverageTemp, "Average Temperature", tempDevice(), "average_temperature", "", FormatFixed2).with(calc.Average),
	field(BatteryMaxTemp, "Max Temperature", tempDevice(), "maximum_temperature", "", FormatFixed2).with(calc.Maximum),
	field(BatteryInstantVoltage, "Voltage", voltageDevice(), "instantaneous_voltage", "", FormatFixed2).with(calc.Average),
	field(BatteryInstantCurrent, "Current", currentDevice(), "instantaneous_current", "", FormatFixed2).with(calc.Average),
	field(BatteryInstantPower, "Power", usageDevice(), "instantaneous_power", "", FormatFixed2).with(calc.Average),
	field(BatteryLifeExportEnergy, "Total Exported Energy", kwhDevice(0x04), "lifetime_export_energy_counter", "", FormatPair).prepend(BatteryInstantPower),
	field(BatteryLifeImportEnergy, "Total Imported Energy", kwhDevice(0x00), "lifetime_import_energy_counter", "", FormatPair).prependCalc(calc.Delta),
	field(BatteryMaxEnergy, "Max Energy", customDevice("Wh"), "maximum_energy", "", FormatFixed2),
	field(BatteryAvailableEnergy, "Available Energy", customDevice("Wh"), "available_energy", "", FormatFixed2).above(1, 0),
	field(BatterySOH, "State of Health", percentDevice(), "soh", "", FormatFixed2),
	field(BatterySOE, "State of Energy", percentDevice(), "soe", "", FormatFixed2).with(calc.Average),
}

var (
	Battery = pick("battery", batteryRows, span(BatteryStatus, BatterySOE)...)

	// OtherBattery is the fallback for storage that reports an unexpected device type.
	OtherBattery = pick("other-battery", batteryRows, span(BatteryStatus, BatterySOE)...)
)
