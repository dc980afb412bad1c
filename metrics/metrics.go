// Package metrics exports benchmark timings through a private Prometheus registry.
package metrics

import (
	"persistbench/benchmark/result"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes a run: every repetition goes into a histogram, every finished
// result sets the per-backend average and the improvement gauge.
type Metrics struct {
	Registry           *prometheus.Registry
	RepetitionDuration *prometheus.HistogramVec
	OperationAverage   *prometheus.GaugeVec
	Improvement        *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	repetitionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persistbench_repetition_duration_seconds",
		Help:    "Duration of a single timed repetition in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"backend", "operation"})

	operationAverage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "persistbench_operation_average_seconds",
		Help: "Average repetition duration of an operation in seconds.",
	}, []string{"backend", "operation"})

	improvement := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "persistbench_operation_improvement_percent",
		Help: "How much faster the fastest backend is than the slowest, in percent.",
	}, []string{"operation"})

	reg.MustRegister(repetitionDuration, operationAverage, improvement)

	return &Metrics{
		Registry:           reg,
		RepetitionDuration: repetitionDuration,
		OperationAverage:   operationAverage,
		Improvement:        improvement,
	}
}

func (m *Metrics) ObserveRepetition(backend string, operation string, seconds float64) {
	m.RepetitionDuration.WithLabelValues(backend, operation).Observe(seconds)
}

func (m *Metrics) ObserveResult(r *result.Result) {
	for _, backend := range r.Backends {
		m.OperationAverage.WithLabelValues(backend, r.Operation).Set(r.Average(backend))
	}
	m.Improvement.WithLabelValues(r.Operation).Set(r.Improvement())
}

// WriteTextfile writes every metric in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
