// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/solaredge-bridge/internal/poller"
	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

const namespace = "solaredge"

// Outcome labels of the ticks counter.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
	OutcomeSkipped = "skipped"
)

// Metrics owns a private prometheus registry.
// It implements registry.Listener for entry values.
type Metrics struct {
	Registry *prometheus.Registry

	ticks      *prometheus.CounterVec
	linkUp     prometheus.Gauge
	retryAfter prometheus.Gauge
	considered *prometheus.GaugeVec
	updated    *prometheus.CounterVec
	unitErrors *prometheus.CounterVec
	entries    prometheus.Counter
	values     *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Heartbeats by outcome.",
		}, []string{"outcome"}),
		linkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_up",
			Help:      "1 when the inverter link is connected.",
		}),
		retryAfter: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retry_after_timestamp_seconds",
			Help:      "Earliest next contact attempt while disconnected, 0 when connected.",
		}),
		considered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unit_values_considered",
			Help:      "Rows resolved for a unit in the last heartbeat.",
		}, []string{"unit"}),
		updated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_values_updated_total",
			Help:      "Registry values written per unit.",
		}, []string{"unit"}),
		unitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_errors_total",
			Help:      "Publish failures per unit.",
		}, []string{"unit"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_created_total",
			Help:      "Registry entries created.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entry_value",
			Help:      "Last numeric value of a registry entry.",
		}, []string{"id"}),
	}

	m.Registry.MustRegister(
		m.ticks, m.linkUp, m.retryAfter,
		m.considered, m.updated, m.unitErrors,
		m.entries, m.values,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one heartbeat.
func (m *Metrics) Observe(res poller.TickResult) {
	switch {
	case res.Skipped:
		m.ticks.WithLabelValues(OutcomeSkipped).Inc()
	case res.Err != nil:
		m.ticks.WithLabelValues(OutcomeError).Inc()
	case res.UnitErr() != nil:
		m.ticks.WithLabelValues(OutcomeStale).Inc()
	default:
		m.ticks.WithLabelValues(OutcomeOK).Inc()
	}

	if res.State == poller.Connected {
		m.linkUp.Set(1)
		m.retryAfter.Set(0)
	} else {
		m.linkUp.Set(0)
		m.retryAfter.Set(float64(res.RetryAfter.Unix()))
	}

	for _, u := range res.Units {
		m.considered.WithLabelValues(u.Name).Set(float64(u.Stats.Considered))
		m.updated.WithLabelValues(u.Name).Add(float64(u.Stats.Updated))
		if u.Err != nil {
			m.unitErrors.WithLabelValues(u.Name).Inc()
		}
	}
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ---- registry.Listener ----

func (m *Metrics) EntryCreated(int, string, registry.Descriptor) {
	m.entries.Inc()
}

// EntryUpdated exports the numeric part of a stored value.
// Compound values export their last element; text is ignored.
func (m *Metrics) EntryUpdated(id int, _ registry.Descriptor, value string) {
	if i := strings.LastIndexByte(value, ';'); i >= 0 {
		value = value[i+1:]
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return
	}
	m.values.WithLabelValues(strconv.Itoa(id)).Set(f)
}
