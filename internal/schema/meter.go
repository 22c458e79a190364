// internal/schema/meter.go
package schema

import (
	"fmt"

	"github.com/tamzrod/solaredge-bridge/internal/calc"
)

// SunSpec meter device types.
const (
	DIDSinglePhaseMeter     = 201
	DIDSplitPhaseMeter      = 202
	DIDWyeThreePhaseMeter   = 203
	DIDDeltaThreePhaseMeter = 204
)

// Meter field ids.
const (
	MeterCurrent = iota + 1
	MeterL1Current
	MeterL2Current
	MeterL3Current
	MeterLNVoltage
	MeterL1NVoltage
	MeterL2NVoltage
	MeterL3NVoltage
	MeterLLVoltage
	MeterL12Voltage
	MeterL23Voltage
	MeterL31Voltage
	MeterFrequency
	MeterPower
	MeterL1Power
	MeterL2Power
	MeterL3Power
	MeterPowerApparent
	MeterL1PowerApparent
	MeterL2PowerApparent
	MeterL3PowerApparent
	MeterPowerReactive
	MeterL1PowerReactive
	MeterL2PowerReactive
	MeterL3PowerReactive
	MeterPowerFactor
	MeterL1PowerFactor
	MeterL2PowerFactor
	MeterL3PowerFactor
	MeterExportEnergyActive
	MeterL1ExportEnergyActive
	MeterL2ExportEnergyActive
	MeterL3ExportEnergyActive
	MeterImportEnergyActive
	MeterL1ImportEnergyActive
	MeterL2ImportEnergyActive
	MeterL3ImportEnergyActive
	MeterExportEnergyApparent
	MeterL1ExportEnergyApparent
	MeterL2ExportEnergyApparent
	MeterL3ExportEnergyApparent
	MeterImportEnergyApparent
	MeterL1ImportEnergyApparent
	MeterL2ImportEnergyApparent
	MeterL3ImportEnergyApparent
	MeterImportEnergyReactiveQ1
	MeterL1ImportEnergyReactiveQ1
	MeterL2ImportEnergyReactiveQ1
	MeterL3ImportEnergyReactiveQ1
	MeterImportEnergyReactiveQ2
	MeterL1ImportEnergyReactiveQ2
	MeterL2ImportEnergyReactiveQ2
	MeterL3ImportEnergyReactiveQ2
	MeterExportEnergyReactiveQ3
	MeterL1ExportEnergyReactiveQ3
	MeterL2ExportEnergyReactiveQ3
	MeterL3ExportEnergyReactiveQ3
	MeterExportEnergyReactiveQ4
	MeterL1ExportEnergyReactiveQ4
	MeterL2ExportEnergyReactiveQ4
	MeterL3ExportEnergyReactiveQ4
)

var meterRows = concat(
	[]Row{
		field(MeterCurrent, "Current", currentDevice(), "current", "current_scale", FormatFixed2).with(calc.Average),
		field(MeterL1Current, "L1 Current", currentDevice(), "l1_current", "current_scale", FormatFixed2).with(calc.Average),
		field(MeterL2Current, "L2 Current", currentDevice(), "l2_current", "current_scale", FormatFixed2).with(calc.Average),
		field(MeterL3Current, "L3 Current", currentDevice(), "l3_current", "current_scale", FormatFixed2).with(calc.Average),
		field(MeterLNVoltage, "LN Voltage", voltageDevice(), "voltage_ln", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL1NVoltage, "L1-N Voltage", voltageDevice(), "l1n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL2NVoltage, "L2-N Voltage", voltageDevice(), "l2n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL3NVoltage, "L3-N Voltage", voltageDevice(), "l3n_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterLLVoltage, "LL Voltage", voltageDevice(), "voltage_ll", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL12Voltage, "L1-2 Voltage", voltageDevice(), "l12_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL23Voltage, "L2-3 Voltage", voltageDevice(), "l23_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterL31Voltage, "L3-1 Voltage", voltageDevice(), "l31_voltage", "voltage_scale", FormatFixed2).with(calc.Average),
		field(MeterFrequency, "Frequency", customDevice("Hz"), "frequency", "frequency_scale", FormatFixed2).with(calc.Average),
		field(MeterPower, "Power", usageDevice(), "power", "power_scale", FormatFixed2).with(calc.Average),
		field(MeterL1Power, "L1 Power", usageDevice(), "l1_power", "power_scale", FormatFixed2).with(calc.Average),
		field(MeterL2Power, "L2 Power", usageDevice(), "l2_power", "power_scale", FormatFixed2).with(calc.Average),
		field(MeterL3Power, "L3 Power", usageDevice(), "l3_power", "power_scale", FormatFixed2).with(calc.Average),
		field(MeterPowerApparent, "Power (Apparent)", customDevice("VA"), "power_apparent", "power_apparent_scale", FormatFixed2).with(calc.Average),
		field(MeterL1PowerApparent, "L1 Power (Apparent)", customDevice("VA"), "l1_power_apparent", "power_apparent_scale", FormatFixed2).with(calc.Average),
		field(MeterL2PowerApparent, "L2 Power (Apparent)", customDevice("VA"), "l2_power_apparent", "power_apparent_scale", FormatFixed2).with(calc.Average),
		field(MeterL3PowerApparent, "L3 Power (Apparent)", customDevice("VA"), "l3_power_apparent", "power_apparent_scale", FormatFixed2).with(calc.Average),
		field(MeterPowerReactive, "Power (Reactive)", customDevice("VAr"), "power_reactive", "power_reactive_scale", FormatFixed2).with(calc.Average),
		field(MeterL1PowerReactive, "L1 Power (Reactive)", customDevice("VAr"), "l1_power_reactive", "power_reactive_scale", FormatFixed2).with(calc.Average),
		field(MeterL2PowerReactive, "L2 Power (Reactive)", customDevice("VAr"), "l2_power_reactive", "power_reactive_scale", FormatFixed2).with(calc.Average),
		field(MeterL3PowerReactive, "L3 Power (Reactive)", customDevice("VAr"), "l3_power_reactive", "power_reactive_scale", FormatFixed2).with(calc.Average),
		field(MeterPowerFactor, "Power Factor", percentDevice(), "power_factor", "power_factor_scale", FormatFixed2).with(calc.Average),
		field(MeterL1PowerFactor, "L1 Power Factor", percentDevice(), "l1_power_factor", "power_factor_scale", FormatFixed2).with(calc.Average),
		field(MeterL2PowerFactor, "L2 Power Factor", percentDevice(), "l2_power_factor", "power_factor_scale", FormatFixed2).with(calc.Average),
		field(MeterL3PowerFactor, "L3 Power Factor", percentDevice(), "l3_power_factor", "power_factor_scale", FormatFixed2).with(calc.Average),

		field(MeterExportEnergyActive, "Total Exported Energy (Active)", kwhDevice(0x04), "export_energy_active", "energy_active_scale", FormatPair).appendCalc(calc.Delta),
		field(MeterL1ExportEnergyActive, "L1 Exported Energy (Active)", kwhDevice(0x04), "l1_export_energy_active", "energy_active_scale", FormatCounter),
		field(MeterL2ExportEnergyActive, "L2 Exported Energy (Active)", kwhDevice(0x04), "l2_export_energy_active", "energy_active_scale", FormatCounter),
		field(MeterL3ExportEnergyActive, "L3 Exported Energy (Active)", kwhDevice(0x04), "l3_export_energy_active", "energy_active_scale", FormatCounter),
		field(MeterImportEnergyActive, "Total Imported Energy (Active)", kwhDevice(0x00), "import_energy_active", "energy_active_scale", FormatPair).appendCalc(calc.Delta),
		field(MeterL1ImportEnergyActive, "L1 Imported Energy (Active)", counterDevice(), "l1_import_energy_active", "energy_active_scale", FormatCounter),
		field(MeterL2ImportEnergyActive, "L2 Imported Energy (Active)", counterDevice(), "l2_import_energy_active", "energy_active_scale", FormatCounter),
		field(MeterL3ImportEnergyActive, "L3 Imported Energy (Active)", counterDevice(), "l3_import_energy_active", "energy_active_scale", FormatCounter),
	},
	energyGroup(MeterExportEnergyApparent, "Exported Energy (Apparent)", "export_energy_apparent", "energy_apparent_scale", "VAh"),
	energyGroup(MeterImportEnergyApparent, "Imported Energy (Apparent)", "import_energy_apparent", "energy_apparent_scale", "VAh"),
	energyGroup(MeterImportEnergyReactiveQ1, "Imported Energy (Reactive Q1)", "import_energy_reactive_q1", "energy_reactive_scale", "VArh"),
	energyGroup(MeterImportEnergyReactiveQ2, "Imported Energy (Reactive Q2)", "import_energy_reactive_q2", "energy_reactive_scale", "VArh"),
	energyGroup(MeterExportEnergyReactiveQ3, "Exported Energy (Reactive Q3)", "export_energy_reactive_q3", "energy_reactive_scale", "VArh"),
	energyGroup(MeterExportEnergyReactiveQ4, "Exported Energy (Reactive Q4)", "export_energy_reactive_q4", "energy_reactive_scale", "VArh"),
)

// energyGroup builds a total row followed by its three per-phase rows.
func energyGroup(first int, label, source, scale, unit string) []Row {
	rows := []Row{
		field(first, "Total "+label, customDevice(unit), source, scale, FormatValue),
	}
	for phase := 1; phase <= 3; phase++ {
		rows = append(rows, field(
			first+phase,
			fmt.Sprintf("L%d %s", phase, label),
			customDevice(unit),
			fmt.Sprintf("l%d_%s", phase, source),
			scale,
			FormatValue,
		))
	}
	return rows
}

func concat(groups ...[]Row) []Row {
	var out []Row
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	SinglePhaseMeter = pick("single-phase-meter", meterRows,
		MeterCurrent,
		MeterL1Current,
		MeterLNVoltage,
		MeterL1NVoltage,
		MeterFrequency,
		MeterPower,
		MeterL1Power,
		MeterPowerApparent,
		MeterL1PowerApparent,
		MeterPowerReactive,
		MeterL1PowerReactive,
		MeterPowerFactor,
		MeterL1PowerFactor,
		MeterExportEnergyActive,
		MeterL1ExportEnergyActive,
		MeterImportEnergyActive,
		MeterL1ImportEnergyActive,
	)

	WyeThreePhaseMeter = pick("wye-three-phase-meter", meterRows, span(MeterCurrent, MeterL3ImportEnergyActive)...)

	// OtherMeter lists every known meter field.
	OtherMeter = pick("other-meter", meterRows, span(MeterCurrent, MeterL3ExportEnergyReactiveQ4)...)
)
