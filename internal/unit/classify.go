// internal/unit/classify.go
package unit

import "github.com/tamzrod/solaredge-bridge/internal/schema"

// Match is the outcome of classifying one device type.
type Match struct {
	Schema *schema.Schema

	// Fallback is set when the device type is not one of the known variants.
	Fallback bool
	// Unknown is set when the device type is outside the SunSpec range of the kind.
	Unknown bool
}

type family struct {
	known    map[int]*schema.Schema
	fallback *schema.Schema
	lo, hi   int
}

var families = map[Kind]family{
	Inverter: {
		known: map[int]*schema.Schema{
			schema.DIDSinglePhaseInverter: schema.SinglePhaseInverter,
			schema.DIDThreePhaseInverter:  schema.ThreePhaseInverter,
		},
		fallback: schema.OtherInverter,
		lo:       schema.DIDSinglePhaseInverter,
		hi:       schema.DIDThreePhaseInverter,
	},
	Meter: {
		known: map[int]*schema.Schema{
			schema.DIDSinglePhaseMeter:   schema.SinglePhaseMeter,
			schema.DIDWyeThreePhaseMeter: schema.WyeThreePhaseMeter,
		},
		fallback: schema.OtherMeter,
		lo:       schema.DIDSinglePhaseMeter,
		hi:       schema.DIDDeltaThreePhaseMeter,
	},
	Battery: {
		known: map[int]*schema.Schema{
			schema.DIDBattery: schema.Battery,
		},
		fallback: schema.OtherBattery,
		lo:       schema.DIDBattery,
		hi:       schema.DIDLithiumIonBank,
	},
}

// Classify selects the schema for a device type.
// Every kind follows the same policy: an unrecognized device type gets the
// kind's catch-all schema and is never skipped.
func Classify(kind Kind, did int) Match {
	f, ok := families[kind]
	if !ok {
		return Match{}
	}

	if s, ok := f.known[did]; ok {
		return Match{Schema: s}
	}

	return Match{
		Schema:   f.fallback,
		Fallback: true,
		Unknown:  did < f.lo || did > f.hi,
	}
}
