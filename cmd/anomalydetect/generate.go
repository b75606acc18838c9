package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/synth"
)

// Files written by generate.
const (
	edgesFile      = "edges.txt"
	partitionsFile = "partitions.json"
	anomalousFile  = "anomalous.json"
)

func (a *app) generateCmd() *cobra.Command {
	cfg := synth.Config{
		NormalSizes:     []int{40, 40, 40, 40},
		NormalM:         2,
		NormalInterP:    0.1,
		AnomalousSizes:  []int{10},
		AnomalousP:      0.6,
		AnomalousInterP: 0.3,
		KMin:            1,
		KMax:            3,
	}
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a community-structured network with injected anomalous communities",
		Example: `  anomalydetect generate --out-dir net --normal-sizes 50,50,50 --anomalous-sizes 8,12 --seed 7
  anomalydetect baseline --graph net/edges.txt --partitions net/partitions.json --save-dir net/rankings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := synth.Generate(cfg, a.logger)
			if err != nil {
				return err
			}
			if err := writeNetwork(outDir, net); err != nil {
				return err
			}
			a.logger.Info("network written",
				logging.Path(outDir),
				logging.Int("vertices", net.Graph.Order()),
				logging.Int("edges", net.Graph.Size()),
				logging.Count(len(net.Partitions)))
			fmt.Fprintf(cmd.OutOrStdout(), "%d vertices, %d edges, %d communities (%d anomalous) in %s\n",
				net.Graph.Order(), net.Graph.Size(), len(net.Partitions), len(net.Anomalous), outDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&outDir, "out-dir", ".", "Directory for edges.txt, partitions.json and anomalous.json")
	f.IntSliceVar(&cfg.NormalSizes, "normal-sizes", cfg.NormalSizes, "Sizes of the preferential-attachment communities")
	f.IntVar(&cfg.NormalM, "normal-m", cfg.NormalM, "Edges per new vertex in normal communities")
	f.Float64Var(&cfg.NormalInterP, "normal-inter-p", cfg.NormalInterP, "Share of normal vertices with inter-community edges")
	f.IntSliceVar(&cfg.AnomalousSizes, "anomalous-sizes", cfg.AnomalousSizes, "Sizes of the G(n,p) anomalous communities")
	f.Float64Var(&cfg.AnomalousP, "anomalous-p", cfg.AnomalousP, "Edge probability inside anomalous communities")
	f.Float64Var(&cfg.AnomalousInterP, "anomalous-inter-p", cfg.AnomalousInterP, "Share of anomalous vertices with inter-community edges")
	f.IntVar(&cfg.KMin, "k-min", cfg.KMin, "Minimum outer edges per connecting vertex")
	f.IntVar(&cfg.KMax, "k-max", cfg.KMax, "Maximum outer edges per connecting vertex")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Random seed")
	return cmd
}

func writeNetwork(dir string, net *synth.Network) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, edgesFile))
	if err != nil {
		return fmt.Errorf("failed to create edge list: %w", err)
	}
	if err := graph.WriteEdgeList(f, net.Graph); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := bipartite.WritePartitionFile(filepath.Join(dir, partitionsFile), net.Partitions); err != nil {
		return err
	}

	data, err := json.Marshal(net.Anomalous)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, anomalousFile), append(data, '\n'), 0o644)
}

func readAnomalous(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read anomalous communities: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to decode anomalous communities: %w", err)
	}
	return names, nil
}
