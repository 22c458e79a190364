// internal/unit/unit.go
package unit

import "github.com/tamzrod/solaredge-bridge/internal/schema"

// Kind is the role of a physical unit in the installation.
type Kind int

const (
	Inverter Kind = iota
	Meter
	Battery
)

func (k Kind) String() string {
	switch k {
	case Inverter:
		return "inverter"
	case Meter:
		return "meter"
	case Battery:
		return "battery"
	default:
		return "unknown"
	}
}

// InverterName is the name under which the primary unit is tracked.
const InverterName = "Inverter"

// Unit is one discovered piece of hardware.
// Offset and Schema are assigned once during discovery.
type Unit struct {
	Name   string
	Kind   Kind
	DID    int
	Offset int
	Schema *schema.Schema
}

// ID returns the registry id of a field of this unit.
func (u *Unit) ID(fieldID int) int {
	return fieldID + u.Offset
}
