package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/history"
	"github.com/YuminosukeSato/scigo-select/pipeline"
	"github.com/YuminosukeSato/scigo-select/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions and the training history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.settings.ServerAddr
			}
			if !a.settings.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			var predictor server.Predictor
			p, err := pipeline.NewPredictPipeline(a.settings.Paths.ModelPath, a.settings.Paths.PreprocessorPath,
				pipeline.WithPredictLogger(a.logger))
			if err != nil {
				a.logger.Warn("no model loaded, /predict is disabled", err)
			} else {
				predictor = p
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv := server.New(predictor, history.NewLedger(a.settings.Paths.HistoryPath),
				server.WithLogger(a.logger),
				server.WithGatherer(reg),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the server_addr setting)")
	return cmd
}
