package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records metadata for polling loops (event feed, plan watch).
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// NewPollerMetrics registers the poll-loop metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_cycle_duration_seconds",
		Help:    "Duration of poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"loop"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_success",
		Help: "Successful poll cycles.",
	}, []string{"loop"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_failure",
		Help: "Failed poll cycles.",
	}, []string{"loop"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_events_ingested",
		Help: "Events applied to the status projections.",
	}, []string{"loop"})
	reg.MustRegister(duration, success, failure, events)
	return &PollerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		events:   events,
	}
}

// ObserveDuration records the duration of one cycle for the named loop.
func (p *PollerMetrics) ObserveDuration(loop string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(loop)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named loop.
func (p *PollerMetrics) IncSuccess(loop string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(loop)).Inc()
}

// IncFailure increments the failure counter for the named loop.
func (p *PollerMetrics) IncFailure(loop string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(loop)).Inc()
}

// AddEvents counts events applied during a cycle.
func (p *PollerMetrics) AddEvents(loop string, n int) {
	if p == nil || p.events == nil || n <= 0 {
		return
	}
	p.events.WithLabelValues(normalizeLabel(loop)).Add(float64(n))
}

func normalizeLabel(loop string) string {
	if loop == "" {
		return "unknown"
	}
	return loop
}
