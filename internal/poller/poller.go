// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/solaredge-bridge/internal/resolve"
	"github.com/tamzrod/solaredge-bridge/internal/schema"
	"github.com/tamzrod/solaredge-bridge/internal/unit"
	"github.com/tamzrod/solaredge-bridge/internal/writer"
)

// ErrEmptyResponse is returned when a read succeeds but yields no values.
// It is handled like a transport failure.
var ErrEmptyResponse = errors.New("poller: empty response")

// Config is the minimal runtime config the poller needs.
type Config struct {
	Endpoint      string // for logs only
	Interval      time.Duration
	RetryDelay    time.Duration
	ScanMeters    bool
	ScanBatteries bool
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithProbe installs a reachability check run before every connect attempt.
func WithProbe(probe func() error) Option {
	return func(p *Poller) { p.probe = probe }
}

// WithLayout replaces the default registry id layout.
func WithLayout(l unit.Layout) Option {
	return func(p *Poller) { p.layout = l }
}

// Poller is the engine: one instance per installation.
// Every Tick runs to completion under a single mutex.
type Poller struct {
	mu sync.Mutex

	cfg    Config
	client Client
	writer *writer.Writer
	layout unit.Layout
	link   *link
	probe  func() error
	now    func() time.Time

	// set once by discovery, immutable afterwards
	units []*unit.Unit
	subs  map[string]SubUnit
}

// New creates a poller with immutable config.
func New(cfg Config, client Client, w *writer.Writer, opts ...Option) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.RetryDelay <= 0 {
		return nil, errors.New("poller: retry delay must be > 0")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if w == nil {
		return nil, errors.New("poller: writer required")
	}

	p := &Poller{
		cfg:    cfg,
		client: client,
		writer: w,
		layout: unit.DefaultLayout(),
		link:   newLink(cfg.RetryDelay),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Tick performs exactly one heartbeat.
//
// Disconnected: contact the inverter when the retry deadline allows it,
// then run discovery if it never completed.
// Connected: read and publish every discovered unit.
func (p *Poller) Tick() TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	res := TickResult{At: now}

	switch {
	case p.link.state == Disconnected:
		if values, ok := p.contact(now, &res); ok && p.units == nil {
			p.discover(now, values, &res)
		}

	case p.units == nil:
		// connected, but discovery failed on the registry side last time
		values, err := p.readInverter()
		if err != nil {
			p.fail(now, fmt.Errorf("poller: read inverter: %w", err), &res)
			break
		}
		p.discover(now, values, &res)

	default:
		p.poll(now, &res)
	}

	res.State = p.link.state
	res.RetryAfter = p.link.retryAfter
	return res
}

// State returns the link state and the current retry deadline.
func (p *Poller) State() (State, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.link.state, p.link.retryAfter
}

// Units returns a copy of the discovered units in discovery order.
func (p *Poller) Units() []unit.Unit {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]unit.Unit, 0, len(p.units))
	for _, u := range p.units {
		out = append(out, *u)
	}
	return out
}

// Unit looks up a discovered unit by name.
func (p *Poller) Unit(name string) (unit.Unit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.units {
		if u.Name == name {
			return *u, true
		}
	}
	return unit.Unit{}, false
}

// ---- contact ----

func (p *Poller) contact(now time.Time, res *TickResult) (schema.Values, bool) {
	if !p.link.ready(now) {
		res.Skipped = true
		log.WithField("retry_after", p.link.retryAfter.Format(time.DateTime)).
			Debug("retrying to communicate with inverter later")
		return nil, false
	}

	if p.probe != nil {
		if err := p.probe(); err != nil {
			p.fail(now, fmt.Errorf("poller: probe: %w", err), res)
			return nil, false
		}
	}

	if err := p.client.Connect(); err != nil {
		p.fail(now, fmt.Errorf("poller: connect: %w", err), res)
		return nil, false
	}

	values, err := p.readInverter()
	if err != nil {
		p.fail(now, fmt.Errorf("poller: read inverter: %w", err), res)
		return nil, false
	}

	p.link.up()
	log.WithField("endpoint", p.cfg.Endpoint).Info("connection established")
	return values, true
}

func (p *Poller) readInverter() (schema.Values, error) {
	values, err := p.client.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyResponse
	}
	return values, nil
}

// fail drops the connection and re-arms the retry deadline.
func (p *Poller) fail(now time.Time, err error, res *TickResult) {
	if cerr := p.client.Close(); cerr != nil {
		log.WithError(cerr).Debug("close after failure")
	}
	p.link.down(now)
	res.Err = err

	log.WithError(err).WithFields(log.Fields{
		"endpoint":    p.cfg.Endpoint,
		"retry_after": p.link.retryAfter.Format(time.DateTime),
	}).Warn("communication with inverter failed")
}

// ---- discovery ----

func (p *Poller) discover(now time.Time, values schema.Values, res *TickResult) {
	units := []*unit.Unit{classify(unit.InverterName, unit.Inverter, values)}
	subs := make(map[string]SubUnit)

	if p.cfg.ScanMeters {
		found, err := p.client.Meters()
		if err != nil {
			p.fail(now, fmt.Errorf("poller: scan meters: %w", err), res)
			return
		}
		meters, err := p.scan(unit.Meter, found, subs)
		if err != nil {
			p.fail(now, err, res)
			return
		}
		if len(meters) > p.layout.ReservedMeters {
			log.WithField("found", len(meters)).
				Warnf("only the first %d meters are supported", p.layout.ReservedMeters)
			meters = meters[:p.layout.ReservedMeters]
		}
		units = append(units, meters...)
	}

	if p.cfg.ScanBatteries {
		found, err := p.client.Batteries()
		if err != nil {
			p.fail(now, fmt.Errorf("poller: scan batteries: %w", err), res)
			return
		}
		batteries, err := p.scan(unit.Battery, found, subs)
		if err != nil {
			p.fail(now, err, res)
			return
		}
		units = append(units, batteries...)
	}

	if err := p.layout.Allocate(units); err != nil {
		res.Err = fmt.Errorf("poller: allocate: %w", err)
		log.WithError(err).Error("offset allocation failed")
		return
	}

	for _, u := range units {
		stats, err := p.writer.Reconcile(u.Name, u.Schema, u.Offset)
		if err != nil {
			// units stay uncommitted; the next tick tries again
			res.Err = fmt.Errorf("poller: reconcile %s: %w", u.Name, err)
			log.WithError(err).WithField("unit", u.Name).Error("registry reconcile failed")
			return
		}
		log.WithFields(log.Fields{
			"unit":    u.Name,
			"schema":  u.Schema.Name,
			"offset":  u.Offset,
			"created": stats.Created,
			"updated": stats.Updated,
			"missing": stats.Missing,
		}).Info("unit ready")
	}

	p.units = units
	p.subs = subs
	res.Discovered = true
}

// scan reads every sub-unit once to learn its device type.
// Names are visited in sorted order so offsets are stable across restarts.
func (p *Poller) scan(kind unit.Kind, found map[string]schema.Reader, subs map[string]SubUnit) ([]*unit.Unit, error) {
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*unit.Unit, 0, len(names))
	for _, name := range names {
		values, err := found[name].ReadAll()
		if err != nil {
			return nil, fmt.Errorf("poller: read %s: %w", name, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("poller: read %s: %w", name, ErrEmptyResponse)
		}
		out = append(out, classify(name, kind, values))
		subs[name] = found[name]
	}
	return out, nil
}

func classify(name string, kind unit.Kind, values schema.Values) *unit.Unit {
	did := int(values[schema.DeviceTypeKey])
	m := unit.Classify(kind, did)

	entry := log.WithFields(log.Fields{
		"unit":   name,
		"kind":   kind,
		"did":    did,
		"schema": m.Schema.Name,
	})
	switch {
	case m.Unknown:
		entry.Warn("unknown device type, using fallback schema")
	case m.Fallback:
		entry.Info("unsupported device type, using fallback schema")
	default:
		entry.Info("device type recognized")
	}

	return &unit.Unit{
		Name:   name,
		Kind:   kind,
		DID:    did,
		Schema: m.Schema,
	}
}

// ---- heartbeat ----

func (p *Poller) poll(now time.Time, res *TickResult) {
	for _, u := range p.units {
		values, err := p.read(u)
		if err != nil {
			p.fail(now, fmt.Errorf("poller: read %s: %w", u.Name, err), res)
			return
		}

		stats, err := p.writer.Publish(u.Schema, u.Offset, values)
		res.Units = append(res.Units, UnitResult{
			Name:  u.Name,
			Kind:  u.Kind,
			Stats: stats,
			Err:   err,
		})

		entry := log.WithFields(log.Fields{"unit": u.Name, "schema": u.Schema.Name})
		switch {
		case errors.Is(err, resolve.ErrMissingField):
			entry.WithError(err).Error("schema mismatch")
		case err != nil:
			entry.WithError(err).Error("publish failed")
		default:
			entry.Debugf("updated %d values out of %d", stats.Updated, stats.Considered)
		}
	}
}

func (p *Poller) read(u *unit.Unit) (schema.Values, error) {
	if u.Kind == unit.Inverter {
		return p.readInverter()
	}

	sub, ok := p.subs[u.Name]
	if !ok {
		return nil, fmt.Errorf("poller: no reader for %s", u.Name)
	}
	values, err := sub.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyResponse
	}
	return values, nil
}
