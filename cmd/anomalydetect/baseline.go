package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-anomaly/pkg/baselines"
	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
)

func (a *app) baselineCmd() *cobra.Command {
	var (
		graphPath, partitionsPath string
		measures                  []string
		out                       outputFlags
	)
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Rank communities of a graph by AMEN and the classic quality measures",
		Example: `  anomalydetect baseline --graph edges.txt --partitions partitions.json
  anomalydetect baseline --graph edges.txt --partitions partitions.json --measures unattr_amen,cut_ratio --save-dir rankings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readEdgeListFile(graphPath)
			if err != nil {
				return err
			}
			pm, err := bipartite.ReadPartitionFile(partitionsPath)
			if err != nil {
				return err
			}
			if len(measures) == 0 {
				measures = a.cfg.Baselines.Measures
			}

			r, err := baselines.NewRanker(g,
				baselines.WithWorkers(a.cfg.Baselines.Workers),
				baselines.WithLogger(a.logger),
				baselines.WithMetrics(a.registry),
			)
			if err != nil {
				return err
			}
			t, err := r.RankAll(cmd.Context(), bipartite.Communities(pm), measures)
			if err != nil {
				return err
			}
			return out.write(cmd, t)
		},
	}
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "Edge list file, one \"u v\" pair per line")
	cmd.Flags().StringVarP(&partitionsPath, "partitions", "p", "", "Partition map (JSON)")
	cmd.Flags().StringSliceVarP(&measures, "measures", "m", nil, "Measures to rank by (default: configured measures)")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("partitions")
	out.register(cmd)
	return cmd
}

func readEdgeListFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge list: %w", err)
	}
	defer f.Close()
	return graph.ReadEdgeList(f)
}
