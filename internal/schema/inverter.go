// internal/schema/inverter.go
package schema

import "github.com/tamzrod/solaredge-bridge/internal/calc"

// SunSpec inverter device types.
const (
	DIDSinglePhaseInverter = 101
	DIDSplitPhaseInverter  = 102
	DIDThreePhaseInverter  = 103
)

// Inverter field ids. Stable across releases: they are registry ids.
const (
	InverterStatus = iota + 1
	InverterVendorStatus
	InverterCurrent
	InverterL1Current
	InverterL2Current
	InverterL3Current
	InverterL1Voltage
	InverterL2Voltage
	InverterL3Voltage
	InverterL1NVoltage
	InverterL2NVoltage
	InverterL3NVoltage
	InverterPowerAC
	InverterFrequency
	InverterPowerApparent
	InverterPowerReactive
	InverterPowerFactor
	InverterEnergyTotal
	InverterCurrentDC
	InverterVoltageDC
	InverterPowerDC
	InverterTemperature
	InverterRRCRState
	InverterActivePowerLimit
	InverterCosPhi
)

var inverterRows = []Row{
	field(InverterStatus, "Status", textDevice(), "status", "", FormatValue).lookup(InverterStatusMap),
	field(InverterVendorStatus, "Vendor Status", textDevice(), "vendor_status", "", FormatValue),
	field(InverterCurrent, "Current", currentDevice(), "current", "current_scale", FormatFixed2).with(calc.Average),
	field(InverterL1Current, "L1 Current", currentDevice(), "l1_current", "current_scale", FormatFixed2).with(calc.Average),
	field(InverterL2Current, "L2 Current", currentDevice(), "l2_current", "current_scale", FormatFixed2).with(calc.Average),
	field(InverterL3Current, "L3 Current", currentDevice(), "l3_current", "current_scale", FormatFixed2).with(calc.Average),
	field(InverterL1Voltage, "L1 Voltage", voltageDevice(), "l1_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterL2Voltage, "L2 Voltage", voltageDevice(), "l2_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterL3Voltage, "L3 Voltage", voltageDevice(), "l3_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterL1NVoltage, "L1-N Voltage", voltageDevice(), "l1n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterL2NVoltage, "L2-N Voltage", voltageDevice(), "l2n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterL3NVoltage, "L3-N Voltage", voltageDevice(), "l3n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
	field(InverterPowerAC, "Power", usageDevice(), "power_ac", "power_ac_scale", FormatFixed2).with(calc.Average),
	field(InverterFrequency, "Frequency", customDevice("Hz"), "frequency", "frequency_scale", FormatFixed2).with(calc.Average),
	field(InverterPowerApparent, "Power (Apparent)", customDevice("VA"), "power_apparent", "power_apparent_scale", FormatFixed2).with(calc.Average),
	field(InverterPowerReactive, "Power (Reactive)", customDevice("VAr"), "power_reactive", "power_reactive_scale", FormatFixed2).with(calc.Average),
	field(InverterPowerFactor, "Power Factor", percentDevice(), "power_factor", "power_factor_scale", FormatFixed2).with(calc.Average),
	field(InverterEnergyTotal, "Total Energy", kwhDevice(0x04), "energy_total", "energy_total_scale", FormatPair).prepend(InverterPowerAC),
	field(InverterCurrentDC, "DC Current", currentDevice(), "current_dc", "current_dc_scale", FormatFixed2).with(calc.Average),
	field(InverterVoltageDC, "DC Voltage", voltageDevice(), "voltage_dc", "voltage_dc_scale", FormatFixed2).with(calc.Average),
	field(InverterPowerDC, "DC Power", usageDevice(), "power_dc", "power_dc_scale", FormatFixed2).with(calc.Average),
	field(InverterTemperature, "Temperature", tempDevice(), "temperature", "temperature_scale", FormatFixed2).with(calc.Maximum),
	field(InverterRRCRState, "RRCR State", textDevice(), "rrcr_state", "", FormatValue),
	field(InverterActivePowerLimit, "Active Power Limit", percentDevice(), "active_power_limit", "", FormatFixed2).with(calc.Average),
	field(InverterCosPhi, "cos-phi", textDevice(), "cosphi", "", FormatValue),
}

var (
	SinglePhaseInverter = pick("single-phase-inverter", inverterRows,
		InverterStatus,
		InverterVendorStatus,
		InverterCurrent,
		InverterL1Current,
		InverterL1Voltage,
		InverterL1NVoltage,
		InverterPowerAC,
		InverterFrequency,
		InverterPowerApparent,
		InverterPowerReactive,
		InverterPowerFactor,
		InverterEnergyTotal,
		InverterCurrentDC,
		InverterVoltageDC,
		InverterPowerDC,
		InverterTemperature,
		InverterRRCRState,
		InverterActivePowerLimit,
		InverterCosPhi,
	)

	ThreePhaseInverter = pick("three-phase-inverter", inverterRows, span(InverterStatus, InverterCosPhi)...)

	// OtherInverter lists every known inverter field; the device may not report all of them.
	OtherInverter = pick("other-inverter", inverterRows, span(InverterStatus, InverterCosPhi)...)
)
