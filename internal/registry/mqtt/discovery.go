// internal/registry/mqtt/discovery.go
package mqtt

import (
	"strings"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

// HassAutoconfig is a Home Assistant MQTT discovery payload.
type HassAutoconfig struct {
	DeviceClass       string               `json:"dev_cla,omitempty"`
	UnitOfMeasurement string               `json:"unit_of_meas,omitempty"`
	Name              string               `json:"name"`
	StatusTopic       string               `json:"stat_t"`
	AvailabilityTopic string               `json:"avty_t"`
	UniqueID          string               `json:"uniq_id"`
	StateClass        string               `json:"stat_cla,omitempty"`
	ValueTemplate     string               `json:"val_tpl,omitempty"`
	Device            HassAutoconfigDevice `json:"dev"`
}

type HassAutoconfigDevice struct {
	IDs  string `json:"ids"`
	Name string `json:"name"`
}

// sensor describes how a registry descriptor shows up in Home Assistant.
type sensor struct {
	class    string
	unit     string
	state    string
	template string
}

// lastPart selects the last ';'-separated element of compound values.
const lastPart = "{{ value.split(';')[-1] }}"

func sensorFor(d registry.Descriptor) sensor {
	switch {
	case d.Type == 0xF8 && d.Subtype == 0x01:
		return sensor{class: "power", unit: "W", state: "measurement"}
	case d.Type != 0xF3:
		return sensor{}
	}

	switch d.Subtype {
	case 0x17:
		return sensor{class: "current", unit: "A", state: "measurement"}
	case 0x08:
		return sensor{class: "voltage", unit: "V", state: "measurement"}
	case 0x06:
		return sensor{unit: "%", state: "measurement"}
	case 0x05:
		return sensor{class: "temperature", unit: "°C", state: "measurement"}
	case 0x1D:
		return sensor{class: "energy", unit: "Wh", state: "total_increasing", template: lastPart}
	case 0x21:
		return sensor{state: "total_increasing", template: lastPart}
	case 0x1F:
		unit := strings.TrimPrefix(d.Options["Custom"], "1;")
		s := sensor{unit: unit, state: "measurement"}
		switch unit {
		case "Hz":
			s.class = "frequency"
		case "VA":
			s.class = "apparent_power"
		case "VAr", "var":
			s.class = "reactive_power"
		case "Wh":
			s.class = "energy"
			s.state = "total"
		case "VAh", "VArh":
			s.state = "total_increasing"
		}
		return s
	default:
		return sensor{}
	}
}
