package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/pipeline"
)

func newPredictCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the rows of a feature CSV with the saved model",
		Long: `Predict reads a CSV whose header names every training feature column.
Columns are matched by name, so order does not matter and extra columns such
as the target are ignored. Empty cells are imputed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pipeline.NewPredictPipeline(a.settings.Paths.ModelPath, a.settings.Paths.PreprocessorPath,
				pipeline.WithPredictLogger(a.logger))
			if err != nil {
				return err
			}
			table, err := dataset.ReadCSV(input)
			if err != nil {
				return err
			}
			features, err := table.Select(p.Columns())
			if err != nil {
				return err
			}
			preds, err := p.PredictRecords(features.Records)
			if err != nil {
				return err
			}
			for _, v := range preds {
				fmt.Fprintf(cmd.OutOrStdout(), "%g\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV of feature columns with a header row")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
