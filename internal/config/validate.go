// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	var errs []error

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	inv := cfg.Inverter
	switch strings.ToLower(inv.Transport) {
	case "", "tcp":
		if inv.Endpoint == "" {
			errs = append(errs, errors.New("inverter.endpoint is required for tcp"))
		} else if _, _, err := net.SplitHostPort(inv.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("inverter.endpoint %q: %w", inv.Endpoint, err))
		}
	case "rtu":
		if inv.Device == "" {
			errs = append(errs, errors.New("inverter.device is required for rtu"))
		}
		if inv.Probe {
			errs = append(errs, errors.New("inverter.probe needs a network endpoint"))
		}
	default:
		errs = append(errs, fmt.Errorf("inverter.transport %q: must be tcp or rtu", inv.Transport))
	}

	if inv.BaudRate < 0 {
		errs = append(errs, errors.New("inverter.baud_rate must be >= 0"))
	}
	if inv.TimeoutMs < 0 {
		errs = append(errs, errors.New("inverter.timeout_ms must be >= 0"))
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.IntervalSec < 0 {
		errs = append(errs, errors.New("poll.interval_sec must be >= 0"))
	}
	if cfg.Poll.RetryDelaySec < 0 {
		errs = append(errs, errors.New("poll.retry_delay_sec must be >= 0"))
	}

	// ------------------------------------------------------------
	// SINKS
	// ------------------------------------------------------------

	if cfg.HTTP.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Listen); err != nil {
			errs = append(errs, fmt.Errorf("http.listen %q: %w", cfg.HTTP.Listen, err))
		}
	}
	if cfg.MQTT.Broker == "" && (cfg.MQTT.Username != "" || cfg.MQTT.Password != "") {
		errs = append(errs, errors.New("mqtt credentials set without mqtt.broker"))
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
