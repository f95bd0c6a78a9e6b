// Package metrics exports benchmark runs as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/peterstace/sdknn/internal/bench"
)

// Recorder observes benchmark runs into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	QueriesTotal  *prometheus.CounterVec
	PrunesTotal   *prometheus.CounterVec
	ReheapsTotal  *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec
	ResultScore   *prometheus.GaugeVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdknn_queries_total",
			Help: "Total number of benchmarked queries",
		}, []string{"algorithm"}),
		PrunesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdknn_prunes_total",
			Help: "Total number of dominated branches discarded",
		}, []string{"algorithm"}),
		ReheapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdknn_reheaps_total",
			Help: "Total number of leaves re-queued with a lower score",
		}, []string{"algorithm"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdknn_phase_duration_seconds",
			Help:    "Duration of the preprocess, query and retrieve phases",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 14),
		}, []string{"algorithm", "phase"}),
		ResultScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sdknn_result_score",
			Help: "Score of the most recent result",
		}, []string{"algorithm"}),
	}
	r.registry.MustRegister(r.QueriesTotal, r.PrunesTotal, r.ReheapsTotal, r.PhaseDuration, r.ResultScore)
	return r
}

// Observe records one per-query line.
func (r *Recorder) Observe(s bench.Stats) {
	alg := s.Algorithm
	r.QueriesTotal.WithLabelValues(alg).Inc()
	r.PrunesTotal.WithLabelValues(alg).Add(float64(s.Prunes))
	r.ReheapsTotal.WithLabelValues(alg).Add(float64(s.Reheaps))
	for phase, us := range map[string]int64{
		"preprocess": s.Preprocess,
		"query":      s.QueryTime,
		"retrieve":   s.Retrieve,
	} {
		r.PhaseDuration.WithLabelValues(alg, phase).Observe((time.Duration(us) * time.Microsecond).Seconds())
	}
	r.ResultScore.WithLabelValues(alg).Set(s.Score)
}

// WriteTextfile writes the metrics in the format read by the node exporter
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, r.registry), "write metrics %s", path)
}
