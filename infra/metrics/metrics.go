package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mbobook/domain/orderbook"
)

// Metrics groups the collectors of the feed service on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ApplyLatency    prometheus.Histogram
	EventsApplied   *prometheus.CounterVec
	ApplyErrors     *prometheus.CounterVec
	ModifyFallbacks prometheus.Counter
	QuotesPublished prometheus.Counter
	QuotesFailed    prometheus.Counter
	Books           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ApplyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mbo_apply_latency_seconds",
			Help:    "Time spent applying one MBO record to the market",
			Buckets: prometheus.ExponentialBuckets(100e-9, 2, 16),
		}),
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbo_events_applied_total",
			Help: "MBO records applied by action",
		}, []string{"action"}),
		ApplyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbo_apply_errors_total",
			Help: "MBO records rejected by error kind",
		}, []string{"kind"}),
		ModifyFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbo_modify_fallbacks_total",
			Help: "Modify records for unknown orders applied as adds",
		}),
		QuotesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbo_quotes_published_total",
			Help: "Aggregated quotes handed to quote sinks",
		}),
		QuotesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbo_quotes_failed_total",
			Help: "Aggregated quotes a sink refused",
		}),
		Books: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mbo_books",
			Help: "Books tracked by the market",
		}),
	}

	m.Registry.MustRegister(
		m.ApplyLatency, m.EventsApplied, m.ApplyErrors, m.ModifyFallbacks,
		m.QuotesPublished, m.QuotesFailed, m.Books,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveApply(action string, d time.Duration, err error) {
	m.ApplyLatency.Observe(d.Seconds())
	if err != nil {
		m.ApplyErrors.WithLabelValues(ErrorKind(err)).Inc()
		return
	}
	m.EventsApplied.WithLabelValues(action).Inc()
}

// ErrorKind maps an apply error onto a metric label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, orderbook.ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, orderbook.ErrLookupMiss):
		return "lookup_miss"
	case errors.Is(err, orderbook.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
