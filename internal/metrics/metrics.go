// Package metrics exposes frontdesk runtime counters via Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oakhurst-labs/frontdesk/internal/breaker"
)

// Metrics holds all collectors. Construct one per process (or per test)
// with its own registry; nothing here is a package-level singleton.
type Metrics struct {
	TurnDuration    prometheus.Histogram
	AITimeouts      prometheus.Counter
	AIFallbacks     prometheus.Counter
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Bookings        prometheus.Counter
	Conflicts       prometheus.Counter
	ActiveSessions  prometheus.Gauge
	ReapedSessions  prometheus.Counter
	breakerState    *prometheus.GaugeVec
}

// New registers all collectors on reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frontdesk_turn_duration_seconds",
			Help:    "Time to produce a response for one speech turn.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 2, 5},
		}),
		AITimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_ai_timeouts_total",
			Help: "AI completions abandoned for exceeding the turn budget.",
		}),
		AIFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_ai_fallbacks_total",
			Help: "Turns answered by the template engine instead of the AI.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_availability_cache_hits_total",
			Help: "Availability reads served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_availability_cache_misses_total",
			Help: "Availability reads that went to the calendar.",
		}),
		Bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_bookings_total",
			Help: "Appointments committed to the calendar.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_booking_conflicts_total",
			Help: "Booking attempts rejected because the slot was taken.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frontdesk_active_sessions",
			Help: "Live call sessions.",
		}),
		ReapedSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_reaped_sessions_total",
			Help: "Sessions evicted by the idle reaper.",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frontdesk_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open).",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.TurnDuration, m.AITimeouts, m.AIFallbacks,
		m.CacheHits, m.CacheMisses,
		m.Bookings, m.Conflicts,
		m.ActiveSessions, m.ReapedSessions,
		m.breakerState,
	)
	return m
}

// ObserveBreaker records the current state of a breaker.
func (m *Metrics) ObserveBreaker(s breaker.Snapshot) {
	var v float64
	switch s.State {
	case breaker.HalfOpen:
		v = 1
	case breaker.Open:
		v = 2
	}
	m.breakerState.WithLabelValues(s.Name).Set(v)
}
