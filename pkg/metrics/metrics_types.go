package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics of a detection run. Every Record/Update method
// is a no-op on a nil *Registry, so components can take an optional registry.
type Registry struct {
	// Graph Metrics
	GraphVerticesTotal *prometheus.GaugeVec
	GraphEdgesTotal    *prometheus.GaugeVec

	// Sampling Metrics
	SampledEdgesTotal      *prometheus.CounterVec
	NegativeDrawsTotal     prometheus.Counter
	NegativeRejectsTotal   prometheus.Counter
	SamplingExhaustedTotal prometheus.Counter

	// Feature Metrics
	FeatureRowsTotal          *prometheus.CounterVec
	FeatureExtractionDuration prometheus.Histogram

	// Classifier Metrics
	ClassifierFitDuration    prometheus.Histogram
	ClassifierFitErrorsTotal prometheus.Counter
	ClassifierValidation     *prometheus.GaugeVec

	// Scoring Metrics
	CommunitiesScoredTotal *prometheus.CounterVec
	ScoringUndefinedTotal  *prometheus.CounterVec

	// Stage Metrics
	StageDuration  *prometheus.HistogramVec
	StageRunsTotal *prometheus.CounterVec

	// System Metrics
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initGraphMetrics()
	r.initSamplingMetrics()
	r.initFeatureMetrics()
	r.initClassifierMetrics()
	r.initScoringMetrics()
	r.initStageMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
