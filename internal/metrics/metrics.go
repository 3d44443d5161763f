package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the report pipeline.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	ModerationCalls  *prometheus.CounterVec
	ModerationTime   prometheus.Histogram
}

// New registers pipeline metrics on the given registerer. Production code
// passes prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roadwatch",
				Subsystem: "reports",
				Name:      "submissions_total",
				Help:      "Report submissions by final outcome",
			},
			[]string{"outcome"}, // approved, rejected, validation_error, duplicate, banned, error
		),
		ModerationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roadwatch",
				Subsystem: "moderation",
				Name:      "calls_total",
				Help:      "AI moderation calls by result",
			},
			[]string{"result"}, // ok, unparseable, ai_error
		),
		ModerationTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "roadwatch",
				Subsystem: "moderation",
				Name:      "call_duration_seconds",
				Help:      "Wall-clock duration of the external moderation call",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}
