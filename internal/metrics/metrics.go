// ABOUTME: Prometheus metrics for pipeline runs, steps and classifier outcomes
// ABOUTME: Registered on a caller-supplied registry and served by the HTTP API
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics implements the pipeline's Recorder
type PipelineMetrics struct {
	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	Retries         prometheus.Histogram
	StepDuration    *prometheus.HistogramVec
	StepOutcomes    *prometheus.CounterVec
	Classifications *prometheus.CounterVec
}

// NewPipelineMetrics creates pipeline metrics registered with the given registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electionrag_runs_total",
			Help: "Completed pipeline runs by terminal reason",
		}, []string{"reason"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "electionrag_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		Retries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "electionrag_run_retries",
			Help:    "Retry budget units consumed per run",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electionrag_step_duration_seconds",
			Help:    "Time spent in each pipeline step",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		StepOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electionrag_step_outcomes_total",
			Help: "Pipeline steps by outcome",
		}, []string{"step", "outcome"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electionrag_classifications_total",
			Help: "Classifier decisions by schema and label",
		}, []string{"schema", "label"}),
	}
}

// ObserveStep records one executed step
func (m *PipelineMetrics) ObserveStep(step, outcome string, d time.Duration) {
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	m.StepOutcomes.WithLabelValues(step, outcome).Inc()
}

// ObserveClassification records one classifier decision
func (m *PipelineMetrics) ObserveClassification(schema, label string) {
	m.Classifications.WithLabelValues(schema, label).Inc()
}

// ObserveRun records a finished run
func (m *PipelineMetrics) ObserveRun(reason string, retries int, d time.Duration) {
	m.Runs.WithLabelValues(reason).Inc()
	m.Retries.Observe(float64(retries))
	m.RunDuration.Observe(d.Seconds())
}
