// Package metrics records explanation runs as Prometheus metrics and exports
// them in the node_exporter textfile format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so that several recorders (one per test,
// say) never collide.
type Recorder struct {
	reg *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	points      *prometheus.CounterVec
	dimensions  *prometheus.CounterVec
	confidence  *prometheus.HistogramVec
}

// New returns a Recorder with all metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpexplain_runs_total",
				Help: "Explanation runs by method and outcome",
			},
			[]string{"method", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mpexplain_run_duration_seconds",
				Help:    "Wall time of explanation runs",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"method"},
		),
		points: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpexplain_points_explained_total",
				Help: "Points that received an explanation",
			},
			[]string{"method"},
		),
		dimensions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpexplain_reported_dimension_total",
				Help: "Points per reported attribute or dimensionality",
			},
			[]string{"method", "dimension"},
		),
		confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mpexplain_confidence",
				Help:    "Distribution of per-point confidence",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"method"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveRun records one run and its outcome.
func (r *Recorder) ObserveRun(method string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(method, status).Inc()
	r.runDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePoint records the explanation of a single point.
func (r *Recorder) ObservePoint(method string, dimension int, confidence float64) {
	r.points.WithLabelValues(method).Inc()
	r.dimensions.WithLabelValues(method, strconv.Itoa(dimension)).Inc()
	r.confidence.WithLabelValues(method).Observe(confidence)
}

// WriteFile writes every metric to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
