// internal/poller/builder.go
package poller

import (
	"github.com/tamzrod/solaredge-bridge/internal/calc"
	cfg "github.com/tamzrod/solaredge-bridge/internal/config"
	pmodbus "github.com/tamzrod/solaredge-bridge/internal/poller/modbus"
	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/resolve"
	"github.com/tamzrod/solaredge-bridge/internal/writer"
)

// Build wires the Modbus client, calculator store, resolver and writer
// into a Poller. The config must be normalized.
// The client is not connected here; the first Tick does that.
func Build(c *cfg.Config, reg registry.Registry) (*Poller, func() error, error) {
	client, err := pmodbus.New(pmodbus.Config{
		Transport: c.Inverter.Transport,
		Endpoint:  c.Inverter.Endpoint,
		Device:    c.Inverter.Device,
		BaudRate:  c.Inverter.BaudRate,
		UnitID:    c.Inverter.UnitID,
		Timeout:   c.Inverter.Timeout(),
	})
	if err != nil {
		return nil, nil, err
	}

	interval := c.Poll.Interval()
	store := calc.NewStore(calc.CapacityFor(interval))
	res := resolve.New(store, *c.Poll.Math)
	w := writer.New(reg, res, *c.Poll.AddDevices)

	endpoint := c.Inverter.Endpoint
	if c.Inverter.Transport == "rtu" {
		endpoint = c.Inverter.Device
	}

	var opts []Option
	if c.Inverter.Probe {
		opts = append(opts, WithProbe(Ping(c.Inverter.Endpoint, c.Inverter.Timeout())))
	}

	p, err := New(
		Config{
			Endpoint:      endpoint,
			Interval:      interval,
			RetryDelay:    c.Poll.RetryDelay(),
			ScanMeters:    c.Poll.ScanMeters,
			ScanBatteries: c.Poll.ScanBatteries,
		},
		client,
		w,
		opts...,
	)
	if err != nil {
		return nil, nil, err
	}

	return p, client.Close, nil
}
