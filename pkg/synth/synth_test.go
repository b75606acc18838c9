package synth

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-anomaly/pkg/logging"
)

func baseConfig() Config {
	return Config{
		NormalSizes:     []int{30, 40, 50},
		NormalM:         2,
		NormalInterP:    0.1,
		AnomalousSizes:  []int{8, 10},
		AnomalousP:      0.8,
		AnomalousInterP: 0.2,
		KMin:            1,
		KMax:            3,
		Seed:            42,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no normal communities", func(c *Config) { c.NormalSizes = nil }},
		{"community not larger than m", func(c *Config) { c.NormalSizes = []int{2, 30} }},
		{"zero m", func(c *Config) { c.NormalM = 0 }},
		{"probability above one", func(c *Config) { c.AnomalousP = 1.5 }},
		{"negative inter proportion", func(c *Config) { c.NormalInterP = -0.1 }},
		{"k range inverted", func(c *Config) { c.KMin, c.KMax = 4, 2 }},
		{"inter edges with one normal community", func(c *Config) { c.NormalSizes = []int{30} }},
		{"empty anomalous community", func(c *Config) { c.AnomalousSizes = []int{0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := Generate(cfg, logging.NewNopLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	assert.NoError(t, baseConfig().Validate())
}

func TestGenerateWithoutInterEdges(t *testing.T) {
	cfg := Config{
		NormalSizes:    []int{10, 12},
		NormalM:        2,
		AnomalousSizes: []int{6},
		AnomalousP:     1,
		KMin:           1,
		KMax:           1,
		Seed:           7,
	}

	net, err := Generate(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 28, net.Graph.Order())
	// 2*(10-2) + 2*(12-2) preferential-attachment edges plus a complete K6.
	assert.Equal(t, 16+20+15, net.Graph.Size())

	require.Len(t, net.Partitions, 3)
	assert.Len(t, net.Partitions["comm01"], 10)
	assert.Len(t, net.Partitions["comm02"], 12)
	assert.Len(t, net.Partitions["comm03"], 6)
	assert.Equal(t, []string{"comm03"}, net.Anomalous)
	assert.Equal(t, "1", net.Partitions["comm01"][0])
	assert.Equal(t, "23", net.Partitions["comm03"][0])

	for _, e := range net.Graph.Edges() {
		assert.Equal(t, community(t, e.U), community(t, e.V), "edge %v crosses communities", e)
	}
}

// community maps a vertex id back to its creation block for the
// no-inter-edge layout above.
func community(t *testing.T, id string) int {
	t.Helper()
	v, err := strconv.Atoi(id)
	require.NoError(t, err)
	switch {
	case v <= 10:
		return 1
	case v <= 22:
		return 2
	default:
		return 3
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(baseConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	b, err := Generate(baseConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, a.Graph.Edges(), b.Graph.Edges())
	assert.Equal(t, a.Partitions, b.Partitions)
	assert.Equal(t, a.Anomalous, b.Anomalous)

	other := baseConfig()
	other.Seed = 43
	c, err := Generate(other, logging.NewNopLogger())
	require.NoError(t, err)
	assert.NotEqual(t, a.Graph.Edges(), c.Graph.Edges())
}

func TestAnomalousCommunitiesConnectOnlyToNormal(t *testing.T) {
	cfg := baseConfig()
	net, err := Generate(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	normalTotal := 0
	for _, n := range cfg.NormalSizes {
		normalTotal += n
	}
	require.Equal(t, []string{"comm04", "comm05"}, net.Anomalous)

	block := map[string][2]int{"comm04": {normalTotal + 1, normalTotal + 8}, "comm05": {normalTotal + 9, normalTotal + 18}}
	for name, r := range block {
		// Anomalous communities never gain members.
		assert.Len(t, net.Partitions[name], r[1]-r[0]+1)

		for _, id := range net.Partitions[name] {
			i, ok := net.Graph.Lookup(id)
			require.True(t, ok)
			for _, j := range net.Graph.Neighbors(i) {
				v, err := strconv.Atoi(net.Graph.ID(j))
				require.NoError(t, err)
				inside := v >= r[0] && v <= r[1]
				assert.True(t, inside || v <= normalTotal,
					"anomalous vertex %s linked to anomalous vertex %d of another community", id, v)
			}
		}
	}
}

func TestConnectingVerticesJoinTargetCommunities(t *testing.T) {
	cfg := baseConfig()
	net, err := Generate(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	total := 0
	for _, name := range CommunityNames(5)[:3] {
		total += len(net.Partitions[name])
	}
	assert.Greater(t, total, 30+40+50, "normal communities should absorb connecting vertices")
}

func TestCommunityNames(t *testing.T) {
	assert.Equal(t, []string{"comm01", "comm02"}, CommunityNames(2))
	names := CommunityNames(10)
	assert.Equal(t, "comm001", names[0])
	assert.Equal(t, "comm010", names[9])
	assert.Empty(t, CommunityNames(0))
}
