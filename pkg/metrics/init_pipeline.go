package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphVerticesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anomaly_graph_vertices",
			Help: "Number of vertices per graph and partition",
		},
		[]string{"graph", "partite"},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anomaly_graph_edges",
			Help: "Number of edges per graph",
		},
		[]string{"graph"},
	)
}

func (r *Registry) initSamplingMetrics() {
	r.SampledEdgesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_sampled_edges_total",
			Help: "Edges returned by the sampler",
		},
		[]string{"polarity"},
	)

	r.NegativeDrawsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_negative_draws_total",
			Help: "Candidate pairs drawn by negative sampling",
		},
	)

	r.NegativeRejectsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_negative_rejects_total",
			Help: "Candidate pairs rejected as existing or already chosen",
		},
	)

	r.SamplingExhaustedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_sampling_exhausted_total",
			Help: "Negative sampling calls that hit the attempt cap",
		},
	)
}

func (r *Registry) initFeatureMetrics() {
	r.FeatureRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_feature_rows_total",
			Help: "Feature rows extracted",
		},
		[]string{"label"},
	)

	r.FeatureExtractionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anomaly_feature_extraction_seconds",
			Help:    "Per-edge topological feature extraction time",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)
}

func (r *Registry) initClassifierMetrics() {
	r.ClassifierFitDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anomaly_classifier_fit_seconds",
			Help:    "Link prediction classifier fit duration",
			Buckets: []float64{0.01, 0.1, 1.0, 10.0, 60.0},
		},
	)

	r.ClassifierFitErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_classifier_fit_errors_total",
			Help: "Classifier fit failures",
		},
	)

	r.ClassifierValidation = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anomaly_classifier_validation_score",
			Help: "Validation scores of the last fitted classifier",
		},
		[]string{"score"},
	)
}

func (r *Registry) initScoringMetrics() {
	r.CommunitiesScoredTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_communities_scored_total",
			Help: "Communities scored per measure",
		},
		[]string{"measure"},
	)

	r.ScoringUndefinedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_scoring_undefined_total",
			Help: "Communities whose score was undefined (empty community)",
		},
		[]string{"measure"},
	)
}

func (r *Registry) initStageMetrics() {
	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anomaly_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0, 60.0, 600.0},
		},
		[]string{"stage"},
	)

	r.StageRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_stage_runs_total",
			Help: "Pipeline stage executions by outcome",
		},
		[]string{"stage", "status"},
	)
}
