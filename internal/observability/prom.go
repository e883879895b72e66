package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcome labels for the results counter.
const (
	ResultCompleted = "completed"
	ResultRetried   = "retried"
	ResultDead      = "dead"
	ResultReaped    = "reaped"
)

// Prom holds the engine's Prometheus collectors. The registry is private to
// the pool and exposed read-only by the dashboard's /metrics endpoint.
type Prom struct {
	Registry *prometheus.Registry

	JobResults   *prometheus.CounterVec
	JobsInFlight prometheus.Gauge
	JobDuration  prometheus.Histogram
}

// NewProm creates and registers the engine collectors on a fresh registry.
func NewProm() *Prom {
	reg := prometheus.NewRegistry()

	p := &Prom{
		Registry: reg,
		JobResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "queuectl",
				Subsystem: "jobs",
				Name:      "results_total",
				Help:      "Job outcomes by result.",
			},
			[]string{"result"}, // result=completed|retried|dead|reaped
		),
		JobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "queuectl",
				Subsystem: "jobs",
				Name:      "in_flight",
				Help:      "Current number of executing jobs across workers (per process).",
			},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "queuectl",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Job execution duration.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
		),
	}

	reg.MustRegister(p.JobResults, p.JobsInFlight, p.JobDuration)

	return p
}

// ObserveExecution records one finished execution attempt.
func (p *Prom) ObserveExecution(d time.Duration, result string) {
	p.JobDuration.Observe(d.Seconds())
	p.JobResults.WithLabelValues(result).Inc()
}
