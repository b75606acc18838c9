package metrics

import (
	"time"
)

// Polarity labels for sampled edges and feature rows.
const (
	Positive  = "positive"
	Negative  = "negative"
	Unlabeled = "unlabeled"
)

// RecordGraph records the size of a built graph.
func (r *Registry) RecordGraph(name string, partiteCounts map[string]int, edges int) {
	if r == nil {
		return
	}
	for partite, n := range partiteCounts {
		r.GraphVerticesTotal.WithLabelValues(name, partite).Set(float64(n))
	}
	r.GraphEdgesTotal.WithLabelValues(name).Set(float64(edges))
}

// RecordSampled records edges returned by the sampler.
func (r *Registry) RecordSampled(polarity string, n int) {
	if r == nil {
		return
	}
	r.SampledEdgesTotal.WithLabelValues(polarity).Add(float64(n))
}

// RecordNegativeDraws records the draws and rejections of one negative
// sampling call, and whether it ran out of attempts.
func (r *Registry) RecordNegativeDraws(draws, rejects int, exhausted bool) {
	if r == nil {
		return
	}
	r.NegativeDrawsTotal.Add(float64(draws))
	r.NegativeRejectsTotal.Add(float64(rejects))
	if exhausted {
		r.SamplingExhaustedTotal.Inc()
	}
}

// RecordFeatureRow records one extracted feature row.
func (r *Registry) RecordFeatureRow(label string, duration time.Duration) {
	if r == nil {
		return
	}
	r.FeatureRowsTotal.WithLabelValues(label).Inc()
	r.FeatureExtractionDuration.Observe(duration.Seconds())
}

// RecordClassifierFit records a classifier fit.
func (r *Registry) RecordClassifierFit(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.ClassifierFitDuration.Observe(duration.Seconds())
	if err != nil {
		r.ClassifierFitErrorsTotal.Inc()
	}
}

// SetValidationScores publishes the validation scores of the last fit.
func (r *Registry) SetValidationScores(scores map[string]float64) {
	if r == nil {
		return
	}
	for name, v := range scores {
		r.ClassifierValidation.WithLabelValues(name).Set(v)
	}
}

// RecordCommunityScored records one community scored by a measure.
func (r *Registry) RecordCommunityScored(measure string, undefined bool) {
	if r == nil {
		return
	}
	r.CommunitiesScoredTotal.WithLabelValues(measure).Inc()
	if undefined {
		r.ScoringUndefinedTotal.WithLabelValues(measure).Inc()
	}
}

// RecordStage records a pipeline stage with its outcome.
func (r *Registry) RecordStage(stage string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	r.StageRunsTotal.WithLabelValues(stage, status).Inc()
}
