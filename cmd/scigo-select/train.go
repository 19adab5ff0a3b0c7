package main

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/automl"
	"github.com/YuminosukeSato/scigo-select/pipeline"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

type trainFlags struct {
	models      []string
	bestOfAll   bool
	saveBest    bool
	modelConfig string
	input       string
	metricsFile string
}

func newTrainCmd(a *app) *cobra.Command {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train [--model-type NAME [NAME...]]",
		Short: "Train the requested models and record the winner",
		Long: `Train runs ingestion, scaling and model selection. Either name the
candidates with --model-type (repeatable, comma separated, or followed by
further names as in --model-type a b) or pass --best-of-all to train every
configured candidate.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !cmd.Flags().Changed("model-type") {
				return errors.NewConfigurationError("model-type", args, "candidate names must follow --model-type")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f.models = append(f.models, args...)
			return runTrain(cmd, a, f)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.models, "model-type", nil, "candidate names to train")
	flags.BoolVar(&f.bestOfAll, "best-of-all", false, "train every configured candidate")
	flags.BoolVar(&f.saveBest, "save-best", false, "save the winning model and its preprocessor")
	flags.StringVar(&f.modelConfig, "config", "", "model configuration file (defaults to the embedded one)")
	flags.StringVar(&f.input, "input", "", "input CSV (defaults to the input_path setting)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	return cmd
}

func runTrain(cmd *cobra.Command, a *app, f *trainFlags) error {
	req := automl.RunRequest{Models: f.models, All: f.bestOfAll, SaveBest: f.saveBest}
	if err := req.Validate(); err != nil {
		return err
	}

	s := *a.settings
	if f.modelConfig != "" {
		s.ConfigPath = f.modelConfig
	}
	if f.input != "" {
		s.InputPath = f.input
	}

	reg := prometheus.NewRegistry()
	p, err := pipeline.NewTrainPipeline(&s,
		pipeline.WithTrainLogger(a.logger),
		pipeline.WithTrainMetrics(automl.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	out, runErr := p.Run(req)
	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			a.logger.Warn("metrics export failed", errors.NewPersistenceError("write metrics", f.metricsFile, err))
		}
	}
	if out != nil && out.Result != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(out.Result); err != nil {
			return errors.Wrap(err, "encode result")
		}
	}
	return runErr
}
