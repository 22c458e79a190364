// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
	"github.com/tamzrod/solaredge-bridge/internal/unit"
	"github.com/tamzrod/solaredge-bridge/internal/writer"
)

// Client abstracts the SunSpec installation the poller talks to.
// One connection is shared by the inverter and its sub-units.
type Client interface {
	Connect() error
	Close() error
	Connected() bool

	// ReadAll reads the inverter's full value map.
	ReadAll() (schema.Values, error)

	Meters() (map[string]schema.Reader, error)
	Batteries() (map[string]schema.Reader, error)
}

// SubUnit is a meter or battery behind the inverter.
type SubUnit = schema.Reader

// UnitResult is the outcome of publishing one unit during a tick.
type UnitResult struct {
	Name  string
	Kind  unit.Kind
	Stats writer.Stats
	Err   error // resolve or registry failure; the link stays up
}

// TickResult is a snapshot produced by one heartbeat.
type TickResult struct {
	At         time.Time
	State      State
	RetryAfter time.Time

	// Skipped is set when the retry deadline kept the tick from contacting the inverter.
	Skipped bool
	// Discovered is set on the tick that classified the installation.
	Discovered bool

	Units []UnitResult
	Err   error // transport failure; the link went down
}

// Totals sums the publish stats of all units.
func (r TickResult) Totals() writer.Stats {
	var total writer.Stats
	for _, u := range r.Units {
		total.Add(u.Stats)
	}
	return total
}

// UnitErr returns the first unit-level error of the tick.
func (r TickResult) UnitErr() error {
	for _, u := range r.Units {
		if u.Err != nil {
			return u.Err
		}
	}
	return nil
}
