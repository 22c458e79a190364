// internal/registry/mqtt/status.go
package mqtt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/solaredge-bridge/internal/status"
)

// StatusWriter is the delivery-only contract for engine status.
// It receives a snapshot and publishes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

var _ StatusWriter = (*Mirror)(nil)

// StatusTopic carries the full encoded snapshot.
func (m *Mirror) StatusTopic() string { return m.opts.Topic + "/engine/state" }

// HealthTopic carries the health name alone.
func (m *Mirror) HealthTopic() string { return m.opts.Topic + "/engine/health" }

// WriteStatus publishes the snapshot when it differs from the last one
// delivered. Any publish failure forces a full re-assert on the next call.
func (m *Mirror) WriteStatus(s status.Snapshot) error {
	payload, err := status.Encode(s)
	if err != nil {
		return fmt.Errorf("mqtt: status encode: %w", err)
	}

	m.mu.Lock()
	full := m.statusDirty
	sameState := !full && m.lastStatus == string(payload)
	sameHealth := !full && m.lastHealth == s.Health && m.healthSent
	m.mu.Unlock()

	if sameState && sameHealth {
		return nil
	}

	var errs []string

	if !sameHealth {
		if err := m.publish(m.HealthTopic(), status.HealthName(s.Health)); err != nil {
			errs = append(errs, fmt.Sprintf("health: %v", err))
		}
	}
	if !sameState {
		if err := m.publish(m.StatusTopic(), string(payload)); err != nil {
			errs = append(errs, fmt.Sprintf("state: %v", err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(errs) > 0 {
		// partial delivery leaves the retained pair inconsistent
		m.statusDirty = true
		return errors.New("mqtt: status " + strings.Join(errs, " | "))
	}

	m.statusDirty = false
	m.lastStatus = string(payload)
	m.lastHealth = s.Health
	m.healthSent = true
	return nil
}
