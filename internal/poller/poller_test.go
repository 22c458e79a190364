// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/solaredge-bridge/internal/calc"
	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/resolve"
	"github.com/tamzrod/solaredge-bridge/internal/schema"
	"github.com/tamzrod/solaredge-bridge/internal/unit"
	"github.com/tamzrod/solaredge-bridge/internal/writer"
)

type fakeSub struct {
	values schema.Values
	err    error
}

func (f *fakeSub) ReadAll() (schema.Values, error) { return f.values, f.err }

type fakeClient struct {
	connectErr error
	readErr    error
	values     schema.Values

	meters    map[string]schema.Reader
	batteries map[string]schema.Reader

	connected bool
	connects  int
	closes    int
}

func (f *fakeClient) Connect() error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Close() error {
	f.closes++
	f.connected = false
	return nil
}

func (f *fakeClient) Connected() bool { return f.connected }

func (f *fakeClient) ReadAll() (schema.Values, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.values, nil
}

func (f *fakeClient) Meters() (map[string]schema.Reader, error)    { return f.meters, nil }
func (f *fakeClient) Batteries() (map[string]schema.Reader, error) { return f.batteries, nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// flakyRegistry fails the first n creates.
type flakyRegistry struct {
	*registry.Memory
	failCreates int
}

func (f *flakyRegistry) Create(id int, name string, d registry.Descriptor) error {
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("disk full")
	}
	return f.Memory.Create(id, name, d)
}

// valuesFor fills every source and scale key a schema reads.
func valuesFor(s *schema.Schema, did int, v float64) schema.Values {
	values := schema.Values{schema.DeviceTypeKey: float64(did)}
	for _, row := range s.Rows {
		values[row.Source] = v
		if row.Scale != "" {
			values[row.Scale] = 0
		}
	}
	return values
}

type harness struct {
	p      *Poller
	client *fakeClient
	clock  *fakeClock
	reg    *registry.Memory
}

func newHarness(t *testing.T, cfg Config, reg registry.Registry, opts ...Option) *harness {
	t.Helper()

	mem := registry.NewMemory()
	if reg == nil {
		reg = mem
	} else if f, ok := reg.(*flakyRegistry); ok {
		mem = f.Memory
	}

	client := &fakeClient{values: valuesFor(schema.OtherInverter, schema.DIDSinglePhaseInverter, 4)}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Minute
	}

	w := writer.New(reg, resolve.New(calc.NewStore(calc.CapacityFor(cfg.Interval)), true), true)
	p, err := New(cfg, client, w, append([]Option{WithClock(clock.now)}, opts...)...)
	require.NoError(t, err)

	return &harness{p: p, client: client, clock: clock, reg: mem}
}

func (h *harness) entries(t *testing.T) int {
	t.Helper()
	list, err := h.reg.List()
	require.NoError(t, err)
	return len(list)
}

// ---- tests ----

func TestNew_Validation(t *testing.T) {
	w := writer.New(registry.NewMemory(), resolve.New(calc.NewStore(1), true), true)
	c := &fakeClient{}

	_, err := New(Config{RetryDelay: time.Minute}, c, w)
	assert.Error(t, err)
	_, err = New(Config{Interval: time.Second}, c, w)
	assert.Error(t, err)
	_, err = New(Config{Interval: time.Second, RetryDelay: time.Minute}, nil, w)
	assert.Error(t, err)
	_, err = New(Config{Interval: time.Second, RetryDelay: time.Minute}, c, nil)
	assert.Error(t, err)
}

func TestTick_ConnectsAndDiscovers(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.p.Tick()
	require.NoError(t, res.Err)
	assert.Equal(t, Connected, res.State)
	assert.True(t, res.Discovered)
	assert.Empty(t, res.Units, "discovery tick does not publish")
	assert.Equal(t, len(schema.SinglePhaseInverter.Rows), h.entries(t))

	u, ok := h.p.Unit(unit.InverterName)
	require.True(t, ok)
	assert.Equal(t, schema.SinglePhaseInverter, u.Schema)
	assert.Equal(t, 0, u.Offset)

	res = h.p.Tick()
	require.NoError(t, res.Err)
	require.Len(t, res.Units, 1)
	total := res.Totals()
	assert.Equal(t, len(schema.SinglePhaseInverter.Rows), total.Considered)
	assert.Equal(t, total.Considered, total.Updated)

	e, err := h.reg.Get(schema.InverterStatus)
	require.NoError(t, err)
	assert.Equal(t, "Producing", e.Value)

	// same values again: nothing to write
	res = h.p.Tick()
	assert.Zero(t, res.Totals().Updated)
	assert.Equal(t, 1, h.client.connects)
}

func TestTick_RetryGate(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.client.connectErr = errors.New("connection refused")
	start := h.clock.t

	res := h.p.Tick()
	require.Error(t, res.Err)
	assert.Equal(t, Disconnected, res.State)
	assert.Equal(t, start.Add(2*time.Minute), res.RetryAfter)
	assert.Equal(t, 1, h.client.connects)

	h.clock.advance(time.Minute)
	res = h.p.Tick()
	assert.True(t, res.Skipped)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, h.client.connects, "no attempt before the deadline")

	h.client.connectErr = nil
	h.clock.advance(time.Minute)
	res = h.p.Tick()
	require.NoError(t, res.Err)
	assert.Equal(t, Connected, res.State)
	assert.Equal(t, 2, h.client.connects)
}

func TestTick_EmptyResponseIsTransportFailure(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.client.values = schema.Values{}

	res := h.p.Tick()
	assert.ErrorIs(t, res.Err, ErrEmptyResponse)
	assert.Equal(t, Disconnected, res.State)
	assert.Equal(t, 1, h.client.closes)
	assert.False(t, res.RetryAfter.IsZero())
	assert.Zero(t, h.entries(t))
}

func TestTick_UnknownInverterFallsBack(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.client.values[schema.DeviceTypeKey] = 999

	res := h.p.Tick()
	require.NoError(t, res.Err)

	u, ok := h.p.Unit(unit.InverterName)
	require.True(t, ok)
	assert.Equal(t, schema.OtherInverter, u.Schema)
	assert.NotEmpty(t, u.Schema.Rows)
	assert.Equal(t, len(schema.OtherInverter.Rows), h.entries(t))
}

func TestTick_ReadFailureDisconnects(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.p.Tick().Err)

	h.client.readErr = errors.New("i/o timeout")
	res := h.p.Tick()
	require.Error(t, res.Err)
	assert.Equal(t, Disconnected, res.State)
	assert.Equal(t, h.clock.t.Add(2*time.Minute), res.RetryAfter)

	h.client.readErr = nil
	h.clock.advance(30 * time.Second)
	assert.True(t, h.p.Tick().Skipped)

	h.clock.advance(2 * time.Minute)
	res = h.p.Tick()
	require.NoError(t, res.Err)
	assert.Equal(t, Connected, res.State)
	assert.False(t, res.Discovered, "units survive a reconnect")
	assert.Len(t, h.p.Units(), 1)

	res = h.p.Tick()
	require.NoError(t, res.Err)
	assert.Len(t, res.Units, 1)
}

func TestTick_SchemaMismatchKeepsLink(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.p.Tick().Err)

	delete(h.client.values, "power_ac")
	res := h.p.Tick()

	assert.NoError(t, res.Err)
	assert.Equal(t, Connected, res.State)
	require.Len(t, res.Units, 1)
	assert.ErrorIs(t, res.Units[0].Err, resolve.ErrMissingField)
	assert.ErrorIs(t, res.UnitErr(), resolve.ErrMissingField)
	assert.Zero(t, h.client.closes)
}

func TestTick_DiscoversSubUnits(t *testing.T) {
	h := newHarness(t, Config{ScanMeters: true, ScanBatteries: true}, nil)
	h.client.meters = map[string]schema.Reader{
		"Meter2": &fakeSub{values: valuesFor(schema.OtherMeter, schema.DIDWyeThreePhaseMeter, 1)},
		"Meter1": &fakeSub{values: valuesFor(schema.OtherMeter, schema.DIDSinglePhaseMeter, 1)},
	}
	h.client.batteries = map[string]schema.Reader{
		"Battery1": &fakeSub{values: valuesFor(schema.OtherBattery, schema.DIDBattery, 1)},
	}

	res := h.p.Tick()
	require.NoError(t, res.Err)
	require.True(t, res.Discovered)

	units := h.p.Units()
	require.Len(t, units, 4)

	l := unit.DefaultLayout()
	assert.Equal(t, "Meter1", units[1].Name)
	assert.Equal(t, schema.SinglePhaseMeter, units[1].Schema)
	assert.Equal(t, l.MeterOffset(0), units[1].Offset)
	assert.Equal(t, "Meter2", units[2].Name)
	assert.Equal(t, schema.WyeThreePhaseMeter, units[2].Schema)
	assert.Equal(t, l.MeterOffset(1), units[2].Offset)
	assert.Equal(t, "Battery1", units[3].Name)
	assert.Equal(t, l.BatteryOffset(0), units[3].Offset)

	res = h.p.Tick()
	require.NoError(t, res.Err)
	require.Len(t, res.Units, 4)
	for _, u := range res.Units {
		assert.NoError(t, u.Err, u.Name)
	}
}

func TestTick_TooManyMetersAreCapped(t *testing.T) {
	h := newHarness(t, Config{ScanMeters: true}, nil)
	h.client.meters = map[string]schema.Reader{}
	for _, name := range []string{"Meter1", "Meter2", "Meter3", "Meter4"} {
		h.client.meters[name] = &fakeSub{values: valuesFor(schema.OtherMeter, schema.DIDSinglePhaseMeter, 1)}
	}

	res := h.p.Tick()
	require.NoError(t, res.Err)
	assert.Len(t, h.p.Units(), 4)
	_, ok := h.p.Unit("Meter4")
	assert.False(t, ok)
}

func TestTick_SubUnitReadFailureDisconnects(t *testing.T) {
	h := newHarness(t, Config{ScanMeters: true}, nil)
	sub := &fakeSub{values: valuesFor(schema.OtherMeter, schema.DIDSinglePhaseMeter, 1)}
	h.client.meters = map[string]schema.Reader{"Meter1": sub}
	require.NoError(t, h.p.Tick().Err)

	sub.err = errors.New("exception 2")
	res := h.p.Tick()
	require.Error(t, res.Err)
	assert.Equal(t, Disconnected, res.State)
	require.Len(t, res.Units, 1, "inverter published before the meter failed")
}

func TestTick_ProbeFailureSkipsConnect(t *testing.T) {
	h := newHarness(t, Config{}, nil, WithProbe(func() error { return ErrUnreachable }))

	res := h.p.Tick()
	assert.ErrorIs(t, res.Err, ErrUnreachable)
	assert.Zero(t, h.client.connects)
	assert.Equal(t, Disconnected, res.State)
}

func TestTick_ReconcileFailureRetriesDiscovery(t *testing.T) {
	reg := &flakyRegistry{Memory: registry.NewMemory(), failCreates: 1}
	h := newHarness(t, Config{}, reg)

	res := h.p.Tick()
	require.Error(t, res.Err)
	assert.Equal(t, Connected, res.State)
	assert.False(t, res.Discovered)
	assert.Empty(t, h.p.Units())

	res = h.p.Tick()
	require.NoError(t, res.Err)
	assert.True(t, res.Discovered)
	assert.Equal(t, len(schema.SinglePhaseInverter.Rows), h.entries(t))
	assert.Equal(t, 1, h.client.connects)
}

func TestRun_EmitsTicks(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan TickResult)
	done := make(chan struct{})
	go func() {
		h.p.Run(ctx, out)
		close(done)
	}()

	first := <-out
	assert.True(t, first.Discovered)
	second := <-out
	assert.Len(t, second.Units, 1)

	cancel()
	<-done
}
