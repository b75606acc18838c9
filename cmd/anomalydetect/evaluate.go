package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-anomaly/pkg/baselines"
	"github.com/dd0wney/cluso-anomaly/pkg/evaluation"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

func (a *app) evaluateCmd() *cobra.Command {
	var (
		anomalousPath string
		prefix        string
		k             int
	)
	cmd := &cobra.Command{
		Use:   "evaluate RANKING_FILE...",
		Short: "Score ranking files against the known anomalous communities",
		Long: `Computes average precision and precision@k for each ranking file.
Baseline measures are read in their own anomaly direction; every other
column (the meta-features) treats low scores as anomalous.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anomalous, err := readAnomalous(anomalousPath)
			if err != nil {
				return err
			}
			var t ranking.Table
			for _, path := range args {
				col, err := loadRankingFile(path, prefix, a.logger)
				if err != nil {
					return err
				}
				t.Add(col)
			}
			results, err := evaluation.Table(&t, anomalous, highIsAnomalous, k)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEvaluation(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&anomalousPath, "anomalous", "a", "", "JSON list of anomalous community names")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix the ranking files were written with")
	cmd.Flags().IntVar(&k, "k", 0, "Cutoff for precision@k (default: number of anomalous communities)")
	_ = cmd.MarkFlagRequired("anomalous")
	return cmd
}

// highIsAnomalous is true for the baseline measures ranked high-first.
func highIsAnomalous(name string) bool {
	order, err := baselines.Order(name)
	return err == nil && order == ranking.Descending
}

// loadRankingFile reads a ranking file, naming the column after the measure
// encoded in the file name. A file saved under another prefix still resolves
// to its baseline measure when the prefix is the only mismatch.
func loadRankingFile(path, prefix string, logger logging.Logger) (ranking.Column, error) {
	name, ok := ranking.ParseFileName(prefix, path)
	if !ok {
		name, ok = ranking.ParseFileName("", path)
		if !ok {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if _, rest, found := strings.Cut(name, "__"); found {
			if _, err := baselines.Order(rest); err == nil {
				name = rest
			}
		}
		logger.Warn("ranking file name does not match prefix",
			logging.Path(path),
			logging.String("prefix", prefix),
			logging.String("measure", name))
	}
	order, err := baselines.Order(name)
	if err != nil {
		order = ranking.Descending
	}

	f, err := os.Open(path)
	if err != nil {
		return ranking.Column{}, fmt.Errorf("failed to open ranking file: %w", err)
	}
	defer f.Close()
	return ranking.LoadJSON(f, name, order)
}
