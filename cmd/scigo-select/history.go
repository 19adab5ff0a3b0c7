package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/history"
	"github.com/YuminosukeSato/scigo-select/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	var plotPath string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := history.NewLedger(a.settings.Paths.HistoryPath).Load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTIMESTAMP\tRUN\tMODEL\tTRAIN R2\tTEST R2")
			for i, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.4f\t%.4f\n",
					i+1, e.Timestamp.Format("2006-01-02 15:04:05"), e.RunID, e.Model, e.TrainR2, e.TestR2)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if plotPath != "" {
				if err := report.PlotHistory(entries, plotPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "plot written to %s\n", plotPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plotPath, "plot", "", "render train and test R² per run to this image")
	return cmd
}
