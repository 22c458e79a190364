// internal/status/snapshot.go
package status

import "time"

// Snapshot is the engine state exposed to the outside.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	State          string
	LastError      string
	LastErrorCode  uint16
	SecondsInError uint16
	RetryAfter     time.Time

	Units      []UnitStatus
	Considered int
	Updated    int
	At         time.Time
}

// UnitStatus is the outcome of the last publish of one unit.
type UnitStatus struct {
	Name       string
	Kind       string
	Considered int
	Updated    int
	Error      string
}
