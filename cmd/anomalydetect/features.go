package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) featuresCmd() *cobra.Command {
	var trainPath, testPath string
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Extract and checkpoint the topological feature tables",
		Long: `Builds the train and test feature tables and saves them to the
configured checkpoint store, so "detect --resume" can fit and rank
without repeating feature extraction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cp, err := a.openCheckpoint(ctx, true)
			if err != nil {
				return err
			}
			d, err := a.newDetector(cp)
			if err != nil {
				return err
			}
			train, test, err := readPartitions(trainPath, testPath)
			if err != nil {
				return err
			}
			trainTable, testTable, err := d.Features(ctx, train, test)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d train rows, %d test rows\n", trainTable.Len(), testTable.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "Training partition map (JSON)")
	cmd.Flags().StringVar(&testPath, "test", "", "Test partition map (JSON)")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("test")
	return cmd
}
