// internal/config/config.go
package config

type Config struct {
	Inverter InverterConfig `yaml:"inverter" toml:"inverter"`
	Poll     PollConfig     `yaml:"poll" toml:"poll"`
	Registry RegistryConfig `yaml:"registry" toml:"registry"`
	MQTT     MQTTConfig     `yaml:"mqtt" toml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http" toml:"http"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// ---- SOURCE ----

type InverterConfig struct {
	Transport string `yaml:"transport" toml:"transport"` // tcp | rtu
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`   // host:port (tcp)
	Device    string `yaml:"device" toml:"device"`       // serial port (rtu)
	BaudRate  int    `yaml:"baud_rate" toml:"baud_rate"`
	UnitID    uint8  `yaml:"unit_id" toml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`

	// Probe pings the inverter before every connect attempt (tcp only).
	Probe bool `yaml:"probe" toml:"probe"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalSec   int  `yaml:"interval_sec" toml:"interval_sec"`
	RetryDelaySec int  `yaml:"retry_delay_sec" toml:"retry_delay_sec"`
	ScanMeters    bool `yaml:"scan_meters" toml:"scan_meters"`
	ScanBatteries bool `yaml:"scan_batteries" toml:"scan_batteries"`

	// Defaults to true when omitted.
	Math       *bool `yaml:"math" toml:"math"`
	AddDevices *bool `yaml:"add_devices" toml:"add_devices"`
}

// ---- SINKS ----

type RegistryConfig struct {
	Path string `yaml:"path" toml:"path"` // empty keeps the registry in memory
}

type MQTTConfig struct {
	Broker          string `yaml:"broker" toml:"broker"` // empty disables the mirror
	Topic           string `yaml:"topic" toml:"topic"`
	DiscoveryPrefix string `yaml:"discovery_prefix" toml:"discovery_prefix"`
	ClientID        string `yaml:"client_id" toml:"client_id"`
	Username        string `yaml:"username" toml:"username"`
	Password        string `yaml:"password" toml:"password"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen" toml:"listen"` // empty disables the server
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}
