// internal/schema/lookup.go
package schema

// InverterStatusMap is the SolarEdge I_Status enumeration.
var InverterStatusMap = []string{
	"Undefined",
	"Off",
	"Sleeping",
	"Grid Monitoring",
	"Producing",
	"Producing (Throttled)",
	"Shutting Down",
	"Fault",
	"Standby",
}

// BatteryStatusMap is the SolarEdge storage status enumeration.
var BatteryStatusMap = []string{
	"Off",
	"Standby",
	"Initializing",
	"Charging",
	"Discharging",
	"Fault",
	"Preserve Charge",
	"Idle",
	"Undefined",
	"Undefined",
	"Power Saving",
}
