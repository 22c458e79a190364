// internal/config/normalize.go
package config

import (
	"strings"
	"time"
)

const (
	DefaultIntervalSec     = 10
	DefaultRetryDelaySec   = 120
	DefaultTimeoutMs       = 3000
	DefaultUnitID          = 1
	DefaultBaudRate        = 9600
	DefaultTopic           = "solaredge"
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultLogLevel        = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	inv := &cfg.Inverter
	inv.Transport = strings.ToLower(inv.Transport)
	if inv.Transport == "" {
		inv.Transport = "tcp"
	}
	if inv.UnitID == 0 {
		inv.UnitID = DefaultUnitID
	}
	if inv.TimeoutMs == 0 {
		inv.TimeoutMs = DefaultTimeoutMs
	}
	if inv.Transport == "rtu" && inv.BaudRate == 0 {
		inv.BaudRate = DefaultBaudRate
	}

	p := &cfg.Poll
	if p.IntervalSec == 0 {
		p.IntervalSec = DefaultIntervalSec
	}
	if p.RetryDelaySec == 0 {
		p.RetryDelaySec = DefaultRetryDelaySec
	}
	if p.Math == nil {
		p.Math = boolPtr(true)
	}
	if p.AddDevices == nil {
		p.AddDevices = boolPtr(true)
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultTopic
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = DefaultDiscoveryPrefix
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// ---- accessors (valid after Normalize) ----

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

func (p PollConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySec) * time.Second
}

func (i InverterConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutMs) * time.Millisecond
}

func boolPtr(b bool) *bool { return &b }
