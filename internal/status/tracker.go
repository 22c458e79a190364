// internal/status/tracker.go
package status

import (
	"errors"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"

	"github.com/tamzrod/solaredge-bridge/internal/poller"
	"github.com/tamzrod/solaredge-bridge/internal/resolve"
)

// Tracker folds tick results into a Snapshot.
// It is safe for concurrent use: the runner writes, the HTTP API reads.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown, State: poller.Disconnected.String()}}
}

// Observe applies one tick result and reports whether anything
// observable changed.
func (t *Tracker) Observe(res poller.TickResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.snap
	before := health{s.Health, s.LastErrorCode, s.SecondsInError, s.State}

	s.At = res.At
	s.State = res.State.String()
	s.RetryAfter = time.Time{}
	if res.State == poller.Disconnected {
		s.RetryAfter = res.RetryAfter
	}

	switch {
	case res.Skipped:
		// still waiting for the retry deadline; keep the error state

	case res.Err != nil:
		s.Health = HealthError
		s.LastError = res.Err.Error()
		s.LastErrorCode = errorCode(res.Err)

	case res.UnitErr() != nil:
		err := res.UnitErr()
		s.Health = HealthStale
		s.LastError = err.Error()
		s.LastErrorCode = errorCode(err)

	default:
		// Recovery / OK
		s.Health = HealthOK
		s.LastError = ""
		s.LastErrorCode = CodeNone
		s.SecondsInError = 0
	}

	if len(res.Units) > 0 {
		s.Units = s.Units[:0]
		for _, u := range res.Units {
			us := UnitStatus{
				Name:       u.Name,
				Kind:       u.Kind.String(),
				Considered: u.Stats.Considered,
				Updated:    u.Stats.Updated,
			}
			if u.Err != nil {
				us.Error = u.Err.Error()
			}
			s.Units = append(s.Units, us)
		}
	}

	total := res.Totals()
	s.Considered = total.Considered
	s.Updated = total.Updated

	return before != health{s.Health, s.LastErrorCode, s.SecondsInError, s.State}
}

// TickSecond advances the error duration while not OK.
// It returns false when nothing changed.
func (t *Tracker) TickSecond() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK || t.snap.Health == HealthUnknown {
		return false
	}
	if t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snap
	s.Units = append([]UnitStatus(nil), t.snap.Units...)
	return s
}

type health struct {
	code    uint16
	errCode uint16
	seconds uint16
	state   string
}

// errorCode extracts a uint16 code from an error.
// Modbus exceptions keep their exception code.
func errorCode(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	var mbErr *mb.ModbusError
	if errors.As(err, &mbErr) {
		return uint16(mbErr.ExceptionCode)
	}

	switch {
	case errors.Is(err, poller.ErrEmptyResponse):
		return CodeEmptyResponse
	case errors.Is(err, resolve.ErrMissingField):
		return CodeSchema
	case errors.Is(err, poller.ErrUnreachable):
		return CodeUnreachable
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return CodeGeneric
}
