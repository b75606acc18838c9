package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

func column() ranking.Column {
	return ranking.RankMap("x__score", map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.9})
}

func TestAveragePrecision(t *testing.T) {
	anomalous := []string{"a", "c"}

	ap, err := AveragePrecision(column(), anomalous, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5+0.5*2.0/3.0, ap, 1e-12)

	ap, err = AveragePrecision(column(), anomalous, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ap, 1e-12)
}

func TestAveragePrecision_TiesShareThreshold(t *testing.T) {
	col := ranking.RankMap("t", map[string]float64{"a": 0.1, "b": 0.1})
	ap, err := AveragePrecision(col, []string{"a"}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ap, 1e-12)
}

func TestAveragePrecision_NaNLeastAnomalous(t *testing.T) {
	col := ranking.Rank("n", []ranking.Entry{{Community: "a", Score: math.NaN()}, {Community: "b", Score: 0.5}})
	ap, err := AveragePrecision(col, []string{"b"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ap)
}

func TestAveragePrecision_NoPositives(t *testing.T) {
	_, err := AveragePrecision(column(), []string{"zz"}, false)
	assert.ErrorIs(t, err, ErrNoPositives)
}

func TestPrecisionAtK(t *testing.T) {
	col := ranking.RankMapOrdered("x", map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.9}, ranking.Ascending)

	p, err := PrecisionAtK(col, []string{"a", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	p, err = PrecisionAtK(col, []string{"a", "c"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	_, err = PrecisionAtK(col, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestTable(t *testing.T) {
	table := &ranking.Table{}
	table.Add(column())
	table.Add(ranking.RankMap("cut_ratio", map[string]float64{"a": 0.9, "b": 0.2, "c": 0.8, "d": 0.1}))

	results, err := Table(table, []string{"a", "c"}, func(name string) bool { return name == "cut_ratio" }, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Reversed)
	assert.Equal(t, 2, results[0].K)
	assert.Equal(t, 0.5, results[0].PrecisionAtK)

	assert.True(t, results[1].Reversed)
	assert.Equal(t, 1.0, results[1].AveragePrecision)
	assert.Equal(t, 1.0, results[1].PrecisionAtK)
}
