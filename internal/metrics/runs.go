package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Runs records pipeline run outcomes. It satisfies engine.RunObserver.
type Runs struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRuns registers and returns the pipeline run collectors.
func NewRuns() *Runs {
	r := &Runs{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedline_runs_total",
			Help: "Pipeline runs by terminal status",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedline_run_duration_seconds",
			Help:    "Pipeline run duration from start to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"status"}),
	}
	prometheus.MustRegister(r.total, r.duration)
	return r
}

func (r *Runs) ObserveRun(status string, duration time.Duration) {
	r.total.WithLabelValues(status).Inc()
	r.duration.WithLabelValues(status).Observe(duration.Seconds())
}
