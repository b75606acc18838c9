package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

// run executes the CLI with args and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

// generateNetwork writes a small network whose anomalous community is a
// clique, so no vertex is left out of the edge list.
func generateNetwork(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "net")
	out, err := run(t, "generate",
		"--out-dir", dir,
		"--normal-sizes", "12,12",
		"--normal-m", "2",
		"--normal-inter-p", "0.2",
		"--anomalous-sizes", "5",
		"--anomalous-p", "1",
		"--anomalous-inter-p", "0.2",
		"--k-min", "1", "--k-max", "2",
		"--seed", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "3 communities (1 anomalous)")
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"baseline", "detect", "evaluate", "features", "generate"}
	var got []string
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
	for _, flag := range []string{"config", "log-level", "metrics-addr"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestGenerateWritesNetwork(t *testing.T) {
	dir := generateNetwork(t)

	for _, name := range []string{edgesFile, partitionsFile, anomalousFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	pm, err := bipartite.ReadPartitionFile(filepath.Join(dir, partitionsFile))
	require.NoError(t, err)
	assert.Len(t, pm, 3)

	anomalous, err := readAnomalous(filepath.Join(dir, anomalousFile))
	require.NoError(t, err)
	require.Len(t, anomalous, 1)
	assert.Contains(t, pm, anomalous[0])
}

func TestBaselineAndEvaluate(t *testing.T) {
	dir := generateNetwork(t)
	rankDir := filepath.Join(dir, "rankings")
	csvPath := filepath.Join(dir, "baselines.csv")

	_, err := run(t, "baseline",
		"--graph", filepath.Join(dir, edgesFile),
		"--partitions", filepath.Join(dir, partitionsFile),
		"--measures", "cut_ratio,unattr_amen",
		"--output", csvPath,
		"--save-dir", rankDir,
		"--prefix", "synth")
	require.NoError(t, err)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "cut_ratio__ranking,cut_ratio__score,unattr_amen__ranking,unattr_amen__score", lines[0])
	assert.Len(t, lines, 4)

	files, err := filepath.Glob(filepath.Join(rankDir, "synth__*_ranking__*.json"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	args := append([]string{"evaluate", "--anomalous", filepath.Join(dir, anomalousFile), "--prefix", "synth"}, files...)
	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "cut_ratio")
	assert.Contains(t, out, "unattr_amen")
	assert.Contains(t, out, "average precision")
}

func TestBaselineRejectsUnknownMeasure(t *testing.T) {
	dir := generateNetwork(t)
	_, err := run(t, "baseline",
		"--graph", filepath.Join(dir, edgesFile),
		"--partitions", filepath.Join(dir, partitionsFile),
		"--measures", "modularity")
	assert.Error(t, err)
}

func TestDetectPrintsRanking(t *testing.T) {
	dir := generateNetwork(t)
	partitions := filepath.Join(dir, partitionsFile)
	cfg := writeConfig(t, "sampling:\n  seed: 3\n")

	out, err := run(t, "detect", "-c", cfg, "--train", partitions, "--test", partitions)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation")
	assert.Contains(t, out, "__ranking")
}

func TestFeaturesThenResume(t *testing.T) {
	dir := generateNetwork(t)
	partitions := filepath.Join(dir, partitionsFile)
	cpDir := filepath.Join(t.TempDir(), "cp")
	cfg := writeConfig(t, "sampling:\n  seed: 5\ncheckpoint:\n  dir: "+cpDir+"\n  compress: true\n")

	out, err := run(t, "features", "-c", cfg, "--train", partitions, "--test", partitions)
	require.NoError(t, err)
	assert.Contains(t, out, "train rows")
	assert.FileExists(t, filepath.Join(cpDir, checkpoint.TrainFile+checkpoint.CompressedSuffix))

	csvPath := filepath.Join(dir, "ranking.csv")
	_, err = run(t, "detect", "-c", cfg, "--resume", "--output", csvPath)
	require.NoError(t, err)
	assert.FileExists(t, csvPath)
}

func TestDetectRequiresInputs(t *testing.T) {
	_, err := run(t, "detect")
	assert.ErrorContains(t, err, "--train and --test are required")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "chatty", "generate", "--out-dir", t.TempDir())
	assert.Error(t, err)
}

func TestMetricsServerLifecycle(t *testing.T) {
	out, err := run(t, "--metrics-addr", "127.0.0.1:0",
		"generate", "--out-dir", t.TempDir(), "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "vertices")
}

func TestLoadRankingFile_PrefixMismatch(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	col := ranking.RankMapOrdered("cut_ratio", map[string]float64{"a": 0.1, "b": 0.9}, ranking.Descending)
	path := filepath.Join(dir, ranking.FileName("p", "cut_ratio", ts))
	require.NoError(t, writeRankingFile(path, col))

	tests := []struct {
		prefix string
		warns  bool
	}{
		{"p", false},
		{"", true},
		{"other", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		loaded, err := loadRankingFile(path, tt.prefix, logging.NewJSONLogger(&buf, logging.InfoLevel))
		require.NoError(t, err, tt.prefix)
		assert.Equal(t, "cut_ratio", loaded.Name, tt.prefix)
		assert.Equal(t, ranking.Descending, loaded.Order, tt.prefix)
		assert.True(t, highIsAnomalous(loaded.Name))
		assert.Equal(t, tt.warns, strings.Contains(buf.String(), "does not match prefix"), tt.prefix)
	}
}
