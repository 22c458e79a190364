// internal/poller/link.go
package poller

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is the connection state of the link to the installation.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// link gates contact attempts behind a retry deadline.
// The delay between attempts is constant.
type link struct {
	state      State
	retryAfter time.Time
	backoff    backoff.BackOff
}

func newLink(delay time.Duration) *link {
	return &link{
		state:   Disconnected,
		backoff: backoff.NewConstantBackOff(delay),
	}
}

// ready reports whether a contact attempt is allowed at now.
func (l *link) ready(now time.Time) bool {
	return !now.Before(l.retryAfter)
}

func (l *link) up() {
	l.state = Connected
	l.backoff.Reset()
}

func (l *link) down(now time.Time) {
	l.state = Disconnected
	l.retryAfter = now.Add(l.backoff.NextBackOff())
}
