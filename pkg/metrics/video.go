package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const OutcomeSuccess = "success"

// VideoJobMetrics records dream video generation runs.
type VideoJobMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	polls    prometheus.Histogram
}

// NewVideoJobMetrics registers the video job metrics on the provided registerer.
func NewVideoJobMetrics(reg prometheus.Registerer) *VideoJobMetrics {
	if reg == nil {
		return &VideoJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "video_job_duration_seconds",
		Help:    "End-to-end duration of dream video generation.",
		Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 240, 300, 360},
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "video_job_total",
		Help: "Dream video generation runs by outcome.",
	}, []string{"outcome"})
	polls := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_job_poll_attempts",
		Help:    "Operation polls made per submitted video job.",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 45, 60},
	})
	reg.MustRegister(duration, outcomes, polls)
	return &VideoJobMetrics{
		duration: duration,
		outcomes: outcomes,
		polls:    polls,
	}
}

// Observe records one finished run. outcome is OutcomeSuccess or an error code.
func (m *VideoJobMetrics) Observe(outcome string, duration time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObservePolls records how many polls a submitted job needed.
func (m *VideoJobMetrics) ObservePolls(attempts int) {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.Observe(float64(attempts))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
