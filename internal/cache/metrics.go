package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by every
// cache. A nil *Metrics records nothing.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	loadErrors    *prometheus.CounterVec
	loadSeconds   *prometheus.HistogramVec
}

// NewMetrics registers the cache collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outboundview",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookups served from a live entry.",
		}, []string{"cache"}),
		misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outboundview",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Lookups that required a load.",
		}, []string{"cache"}),
		invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outboundview",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Calls to InvalidateAll.",
		}, []string{"cache"}),
		loadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outboundview",
			Subsystem: "cache",
			Name:      "load_errors_total",
			Help:      "Loads that returned an error.",
		}, []string{"cache"}),
		loadSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "outboundview",
			Subsystem: "cache",
			Name:      "load_duration_seconds",
			Help:      "Time spent in loads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cache"}),
	}
}

func (m *Metrics) hit(name string) {
	if m != nil {
		m.hits.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) miss(name string) {
	if m != nil {
		m.misses.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) invalidate(name string) {
	if m != nil {
		m.invalidations.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) observe(name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.loadSeconds.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.loadErrors.WithLabelValues(name).Inc()
	}
}
