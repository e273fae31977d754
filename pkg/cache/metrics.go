package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "serializer"
	subsystem = "fragment_cache"
)

// Metrics holds prometheus counters for fragment cache lookups
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

// NewMetrics creates unregistered fragment cache metrics
func NewMetrics() *Metrics {
	return &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hits_total",
			Help:      "Fragments served from the cache store.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "misses_total",
			Help:      "Fragments rendered and written to the cache store.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Fragment cache lookups that failed.",
		}),
	}
}

// MustRegister registers the metrics with the given Prometheus registry
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.hits, m.misses, m.errors)
}

func (m *Metrics) observe(hit bool, err error) {
	switch {
	case err != nil:
		m.errors.Inc()
	case hit:
		m.hits.Inc()
	default:
		m.misses.Inc()
	}
}
