package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
	"github.com/dd0wney/cluso-anomaly/pkg/detector"
	"github.com/dd0wney/cluso-anomaly/pkg/health"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

// outputFlags are shared by the commands that produce a ranking table.
type outputFlags struct {
	csvPath string
	saveDir string
	prefix  string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.csvPath, "output", "o", "", "Write the ranking table as CSV (default: print to stdout)")
	cmd.Flags().StringVar(&o.saveDir, "save-dir", "", "Also write one JSON ranking file per column to this directory")
	cmd.Flags().StringVar(&o.prefix, "prefix", "", "Prefix for ranking file names")
}

// write emits the table and, when requested, the per-column ranking files.
func (o *outputFlags) write(cmd *cobra.Command, t *ranking.Table) error {
	if o.csvPath != "" {
		f, err := os.Create(o.csvPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		if err := t.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderRanking(t))
	}

	if o.saveDir == "" {
		return nil
	}
	if err := os.MkdirAll(o.saveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create ranking dir: %w", err)
	}
	now := time.Now()
	for _, col := range t.Columns {
		path := filepath.Join(o.saveDir, ranking.FileName(o.prefix, col.Name, now))
		if err := writeRankingFile(path, col); err != nil {
			return err
		}
	}
	return nil
}

func writeRankingFile(path string, col ranking.Column) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ranking file: %w", err)
	}
	if err := ranking.SaveJSON(f, col); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) detectCmd() *cobra.Command {
	var (
		trainPath, testPath string
		resume              bool
		out                 outputFlags
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Rank test communities with the link-prediction pipeline",
		Example: `  anomalydetect detect --train train.json --test test.json
  anomalydetect detect --resume -c config.yaml -o ranking.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !resume && (trainPath == "" || testPath == "") {
				return errors.New("--train and --test are required unless --resume is set")
			}

			cp, err := a.openCheckpoint(ctx, resume)
			if err != nil {
				return err
			}
			d, err := a.newDetector(cp)
			if err != nil {
				return err
			}

			var res *detector.Result
			if resume {
				res, err = d.DetectFromCheckpoint(ctx)
			} else {
				var train, test bipartite.PartitionMap
				if train, test, err = readPartitions(trainPath, testPath); err != nil {
					return err
				}
				res, err = d.Detect(ctx, train, test)
			}
			if err != nil {
				return err
			}

			if res.HasValidation {
				fmt.Fprintln(cmd.OutOrStdout(), renderValidation(res.Validation))
			}
			return out.write(cmd, res.Ranking)
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "Training partition map (JSON)")
	cmd.Flags().StringVar(&testPath, "test", "", "Test partition map (JSON)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Skip feature extraction and load the checkpointed tables")
	out.register(cmd)
	return cmd
}

func (a *app) newDetector(cp *checkpoint.Checkpoint) (*detector.Detector, error) {
	opts := []detector.Option{
		detector.WithLogger(a.logger),
		detector.WithMetrics(a.registry),
	}
	if cp != nil {
		opts = append(opts, detector.WithCheckpoint(cp))
	}
	return detector.New(a.cfg, opts...)
}

// openCheckpoint returns the configured checkpoint, or nil when disabled
// and not forced. An S3 bucket takes precedence over the directory.
func (a *app) openCheckpoint(ctx context.Context, force bool) (*checkpoint.Checkpoint, error) {
	cc := a.cfg.Checkpoint
	if !cc.Enabled && !force {
		return nil, nil
	}

	var (
		store checkpoint.Store
		err   error
	)
	if cc.S3.Bucket != "" {
		store, err = checkpoint.NewS3Store(ctx, checkpoint.S3Options{
			Bucket:   cc.S3.Bucket,
			Prefix:   cc.S3.Prefix,
			Region:   cc.S3.Region,
			Endpoint: cc.S3.Endpoint,
		})
	} else {
		dir := cc.Dir
		if dir == "" {
			dir = "checkpoints"
		}
		store, err = checkpoint.NewFileStore(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	a.health.Register("checkpoint", health.StoreCheck(store))
	return checkpoint.New(store,
		checkpoint.WithCompression(cc.Compress),
		checkpoint.WithLogger(a.logger),
	), nil
}

func readPartitions(trainPath, testPath string) (bipartite.PartitionMap, bipartite.PartitionMap, error) {
	train, err := bipartite.ReadPartitionFile(trainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read training partitions: %w", err)
	}
	test, err := bipartite.ReadPartitionFile(testPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read test partitions: %w", err)
	}
	return train, test, nil
}
