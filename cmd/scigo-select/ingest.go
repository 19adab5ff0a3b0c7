package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/dataset"
)

func newIngestCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Copy the raw dataset and write the train and test splits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.settings.IngestConfig()
			if input != "" {
				cfg.InputPath = input
			}
			res, err := dataset.Ingest(cfg, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "train: %s (%d rows)\ntest: %s (%d rows)\n",
				cfg.TrainPath, res.Train.Rows(), cfg.TestPath, res.Test.Rows())
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input CSV (defaults to the input_path setting)")
	return cmd
}
