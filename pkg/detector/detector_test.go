package detector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
	"github.com/dd0wney/cluso-anomaly/pkg/config"
	"github.com/dd0wney/cluso-anomaly/pkg/linkpred"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metafeatures"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

// degreeClassifier ignores training and scores an edge by the community
// vertex degree d as d/(d+1).
type degreeClassifier struct {
	fail error
}

func (c *degreeClassifier) Fit(ctx context.Context, X [][]float64, y []int) error {
	return c.fail
}

func (c *degreeClassifier) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = row[0] / (row[0] + 1)
	}
	return out, nil
}

func trainMap() bipartite.PartitionMap {
	pm := bipartite.PartitionMap{}
	for c := 0; c < 4; c++ {
		var members []string
		for k := 0; k < 5; k++ {
			members = append(members, fmt.Sprintf("u%02d", c*5+k))
		}
		pm[fmt.Sprintf("train%d", c)] = members
	}
	return pm
}

func testMap() bipartite.PartitionMap {
	return bipartite.PartitionMap{
		"a":     {"m1", "m2", "m3"},
		"b":     {"m4"},
		"empty": {},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Sampling.Seed = 1
	cfg.Features.Workers = 2
	return cfg
}

func stageRuns(t *testing.T, r *metrics.Registry, stage, status string) float64 {
	t.Helper()
	c, err := r.StageRunsTotal.GetMetricWithLabelValues(stage, status)
	require.NoError(t, err)
	return counterValue(t, c)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

func TestDetect(t *testing.T) {
	reg := metrics.NewRegistry()
	d, err := New(testConfig(),
		WithClassifier(func() linkpred.Classifier { return &degreeClassifier{} }),
		WithLogger(logging.NewNopLogger()),
		WithMetrics(reg))
	require.NoError(t, err)

	res, err := d.Detect(context.Background(), trainMap(), testMap())
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 40, res.TrainRows, "20 positive and 20 negative training rows")
	assert.Equal(t, 4, res.TestRows)

	// The empty community has no incident edge, so it has no record.
	require.Len(t, res.Records, 2)
	assert.InDelta(t, 2.0/3.0, res.Records["a"].ProbMean, 1e-12)
	assert.Equal(t, 0.0, res.Records["b"].ProbMean)
	assert.Equal(t, 1.0, res.Records["a"].ProbStd)

	require.Len(t, res.Ranking.Columns, len(metafeatures.ColumnNames))
	col, ok := res.Ranking.Column(metafeatures.ProbMean)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, col.Communities())

	for _, stage := range []string{StageBuild, StageSample, StageFeatures, StageFit, StagePredict, StageAggregate, StageRank} {
		assert.Equal(t, 1.0, stageRuns(t, reg, stage, "success"), stage)
	}
}

func TestDetectClassifierFailure(t *testing.T) {
	reg := metrics.NewRegistry()
	boom := errors.New("solver diverged")
	d, err := New(testConfig(),
		WithClassifier(func() linkpred.Classifier { return &degreeClassifier{fail: boom} }),
		WithLogger(logging.NewNopLogger()),
		WithMetrics(reg))
	require.NoError(t, err)

	_, err = d.Detect(context.Background(), trainMap(), testMap())
	assert.ErrorIs(t, err, linkpred.ErrClassifier)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, stageRuns(t, reg, StageFit, "error"))
}

func TestDetectInvalidPartitions(t *testing.T) {
	d, err := New(testConfig(), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	overlap := bipartite.PartitionMap{"c1": {"c1"}}
	_, err = d.Detect(context.Background(), overlap, testMap())
	assert.ErrorIs(t, err, bipartite.ErrPartitionOverlap)
}

func TestDetectWithLogisticRegression(t *testing.T) {
	d, err := New(testConfig(), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	res, err := d.Detect(context.Background(), trainMap(), testMap())
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.True(t, res.HasValidation)
	for _, r := range res.Records {
		assert.True(t, r.ProbMean >= 0 && r.ProbMean <= 1)
	}
}

func TestDetectFromCheckpoint(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cp := checkpoint.New(store, checkpoint.WithCompression(true), checkpoint.WithLogger(logging.NewNopLogger()))
	factory := func() linkpred.Classifier { return &degreeClassifier{} }

	d, err := New(testConfig(), WithClassifier(factory), WithCheckpoint(cp), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	first, err := d.Detect(context.Background(), trainMap(), testMap())
	require.NoError(t, err)

	resumed, err := New(testConfig(), WithClassifier(factory), WithCheckpoint(cp), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	second, err := resumed.DetectFromCheckpoint(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.TrainRows, second.TrainRows)
}

func TestDetectFromCheckpointWithoutCheckpoint(t *testing.T) {
	d, err := New(testConfig(), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	_, err = d.DetectFromCheckpoint(context.Background())
	assert.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Features.Workers = 0
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestFeaturesSavesCheckpoint(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cp := checkpoint.New(store, checkpoint.WithLogger(logging.NewNopLogger()))

	d, err := New(testConfig(), WithCheckpoint(cp), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	train, test, err := d.Features(context.Background(), trainMap(), testMap())
	require.NoError(t, err)
	assert.True(t, train.Labeled)
	assert.False(t, test.Labeled)

	ok, err := cp.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
