// internal/status/encode.go
package status

import (
	"encoding/json"
	"time"
)

type wireUnit struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Considered int    `json:"considered"`
	Updated    int    `json:"updated"`
	Error      string `json:"error,omitempty"`
}

type wireSnapshot struct {
	Health         uint16     `json:"health"`
	HealthName     string     `json:"health_name"`
	State          string     `json:"state"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorCode  uint16     `json:"last_error_code"`
	SecondsInError uint16     `json:"seconds_in_error"`
	RetryAfter     *time.Time `json:"retry_after,omitempty"`
	Units          []wireUnit `json:"units"`
	Considered     int        `json:"considered"`
	Updated        int        `json:"updated"`
	At             *time.Time `json:"at,omitempty"`
}

// Encode converts a Snapshot into its JSON document.
// No IO. No side effects.
func Encode(s Snapshot) ([]byte, error) {
	w := wireSnapshot{
		Health:         s.Health,
		HealthName:     HealthName(s.Health),
		State:          s.State,
		LastError:      s.LastError,
		LastErrorCode:  s.LastErrorCode,
		SecondsInError: s.SecondsInError,
		Units:          make([]wireUnit, 0, len(s.Units)),
		Considered:     s.Considered,
		Updated:        s.Updated,
	}
	if !s.RetryAfter.IsZero() {
		w.RetryAfter = &s.RetryAfter
	}
	if !s.At.IsZero() {
		w.At = &s.At
	}
	for _, u := range s.Units {
		w.Units = append(w.Units, wireUnit(u))
	}
	return json.Marshal(w)
}
