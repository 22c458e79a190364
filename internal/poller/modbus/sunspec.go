// internal/poller/modbus/sunspec.go
package modbus

import "github.com/tamzrod/solaredge-bridge/internal/schema"

// ---- inverter ----

const (
	commonBase   = 40000
	sunSpecID0   = 0x5375 // "Su"
	sunSpecID1   = 0x6E53 // "nS"
	inverterBase = 69     // model header offset from commonBase
	inverterQty  = 109

	powerControlBase = 0xF000
	powerControlQty  = 4
)

// Offsets are relative to the inverter model header (the DID register).
var inverterFields = []field{
	{schema.DeviceTypeKey, 0, u16},
	{"c_sunspec_length", 1, u16},
	{"current", 2, u16},
	{"l1_current", 3, u16},
	{"l2_current", 4, u16},
	{"l3_current", 5, u16},
	{"current_scale", 6, s16},
	{"l1_voltage", 7, u16},
	{"l2_voltage", 8, u16},
	{"l3_voltage", 9, u16},
	{"l1n_voltage", 10, u16},
	{"l2n_voltage", 11, u16},
	{"l3n_voltage", 12, u16},
	{"voltage_scale", 13, s16},
	{"power_ac", 14, s16},
	{"power_ac_scale", 15, s16},
	{"frequency", 16, u16},
	{"frequency_scale", 17, s16},
	{"power_apparent", 18, s16},
	{"power_apparent_scale", 19, s16},
	{"power_reactive", 20, s16},
	{"power_reactive_scale", 21, s16},
	{"power_factor", 22, s16},
	{"power_factor_scale", 23, s16},
	{"energy_total", 24, u32},
	{"energy_total_scale", 26, s16},
	{"current_dc", 27, u16},
	{"current_dc_scale", 28, s16},
	{"voltage_dc", 29, u16},
	{"voltage_dc_scale", 30, s16},
	{"power_dc", 31, s16},
	{"power_dc_scale", 32, s16},
	{"temperature", 34, s16},
	{"temperature_scale", 37, s16},
	{"status", 38, u16},
	{"vendor_status", 39, u16},
}

var powerControlFields = []field{
	{"rrcr_state", 0, u16},
	{"active_power_limit", 1, u16},
	{"cosphi", 2, f32sw},
}

// ---- meters ----

// Meter common blocks. The meter model header follows 67 registers later.
var meterBases = []uint16{40121, 40295, 40469}

const (
	meterModelOffset = 67
	meterQty         = 105
)

var meterFields = join(
	[]field{
		{schema.DeviceTypeKey, 0, u16},
		{"c_sunspec_length", 1, u16},
	},
	phased("current", 2, s16, 1),
	[]field{
		{"current_scale", 6, s16},
		{"voltage_ln", 7, s16},
		{"l1n_voltage", 8, s16},
		{"l2n_voltage", 9, s16},
		{"l3n_voltage", 10, s16},
		{"voltage_ll", 11, s16},
		{"l12_voltage", 12, s16},
		{"l23_voltage", 13, s16},
		{"l31_voltage", 14, s16},
		{"voltage_scale", 15, s16},
		{"frequency", 16, s16},
		{"frequency_scale", 17, s16},
	},
	phased("power", 18, s16, 1),
	[]field{{"power_scale", 22, s16}},
	phased("power_apparent", 23, s16, 1),
	[]field{{"power_apparent_scale", 27, s16}},
	phased("power_reactive", 28, s16, 1),
	[]field{{"power_reactive_scale", 32, s16}},
	phased("power_factor", 33, s16, 1),
	[]field{{"power_factor_scale", 37, s16}},
	phased("export_energy_active", 38, u32, 2),
	phased("import_energy_active", 46, u32, 2),
	[]field{{"energy_active_scale", 54, s16}},
	phased("export_energy_apparent", 55, u32, 2),
	phased("import_energy_apparent", 63, u32, 2),
	[]field{{"energy_apparent_scale", 71, s16}},
	phased("import_energy_reactive_q1", 72, u32, 2),
	phased("import_energy_reactive_q2", 80, u32, 2),
	phased("export_energy_reactive_q3", 88, u32, 2),
	phased("export_energy_reactive_q4", 96, u32, 2),
	[]field{{"energy_reactive_scale", 104, s16}},
)

// ---- batteries ----

// Battery blocks. SolarEdge batteries carry no SunSpec DID; they are
// tagged as DIDBattery so the classifier treats them uniformly.
var batteryBases = []uint16{0xE100, 0xE200}

const (
	batteryDataOffset = 0x40
	batteryQty        = 0x53
)

// Offsets are relative to batteryDataOffset.
var batteryFields = []field{
	{"c_device_id", 0x00, u16},
	{"rated_energy", 0x02, f32sw},
	{"maximum_charge_continuous_power", 0x04, f32sw},
	{"maximum_discharge_continuous_power", 0x06, f32sw},
	{"maximum_charge_peak_power", 0x08, f32sw},
	{"maximum_discharge_peak_power", 0x0A, f32sw},
	{"average_temperature", 0x2C, f32sw},
	{"maximum_temperature", 0x2E, f32sw},
	{"instantaneous_voltage", 0x30, f32sw},
	{"instantaneous_current", 0x32, f32sw},
	{"instantaneous_power", 0x34, f32sw},
	{"lifetime_export_energy_counter", 0x36, u64sw},
	{"lifetime_import_energy_counter", 0x3A, u64sw},
	{"maximum_energy", 0x3E, f32sw},
	{"available_energy", 0x40, f32sw},
	{"soh", 0x42, f32sw},
	{"soe", 0x44, f32sw},
	{"status", 0x46, u32sw},
	{"status_internal", 0x48, u32sw},
	{"event_log", 0x4A, u16},
	{"event_log_internal", 0x52, u16},
}

// absent reports an unpopulated device slot.
func absent(id uint16) bool {
	return id == 0 || id == 0xFFFF
}
