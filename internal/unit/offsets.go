// internal/unit/offsets.go
package unit

import (
	"errors"
	"fmt"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

// ErrTooManyMeters is returned when more meters are found than the layout reserves.
var ErrTooManyMeters = errors.New("unit: more meters than reserved id space")

// Layout is the per-kind stride of the registry id space.
type Layout struct {
	InverterStride int
	MeterStride    int
	BatteryStride  int
	ReservedMeters int
}

// DefaultLayout derives strides from the highest field id of each kind.
func DefaultLayout() Layout {
	return Layout{
		InverterStride: schema.MaxFieldID(schema.SinglePhaseInverter, schema.ThreePhaseInverter, schema.OtherInverter),
		MeterStride:    schema.MaxFieldID(schema.SinglePhaseMeter, schema.WyeThreePhaseMeter, schema.OtherMeter),
		BatteryStride:  schema.MaxFieldID(schema.Battery, schema.OtherBattery),
		ReservedMeters: 3,
	}
}

// MeterOffset returns the offset of the i-th meter (0-based).
func (l Layout) MeterOffset(i int) int {
	return l.InverterStride + i*l.MeterStride
}

// BatteryOffset returns the offset of the i-th battery (0-based).
// Batteries start after the reserved meter block, however many meters exist.
func (l Layout) BatteryOffset(i int) int {
	return l.InverterStride + l.ReservedMeters*l.MeterStride + i*l.BatteryStride
}

// Allocate assigns offsets in discovery order: the inverter gets 0,
// meters and batteries are numbered in the order they appear in units.
func (l Layout) Allocate(units []*Unit) error {
	meters, batteries := 0, 0

	for _, u := range units {
		switch u.Kind {
		case Inverter:
			u.Offset = 0

		case Meter:
			if meters >= l.ReservedMeters {
				return fmt.Errorf("%w: %s is meter %d of %d", ErrTooManyMeters, u.Name, meters+1, l.ReservedMeters)
			}
			u.Offset = l.MeterOffset(meters)
			meters++

		case Battery:
			u.Offset = l.BatteryOffset(batteries)
			batteries++

		default:
			return fmt.Errorf("unit: %s has unknown kind %d", u.Name, u.Kind)
		}
	}

	return nil
}
