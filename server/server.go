// Package server exposes the prediction pipeline and the training history
// over HTTP.
//
// Routes:
//
//	GET  /         - liveness message
//	POST /predict  - {"features": [[...], ...]} → predictions
//	GET  /history  - the training history ledger
//	GET  /metrics  - Prometheus metrics, when a gatherer is configured
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/scigo-select/history"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
)

// Predictor produces one prediction per raw feature record. Columns gives
// the order record cells must follow.
type Predictor interface {
	PredictRecords(records [][]string) ([]float64, error)
	Columns() []string
}

// HistoryReader reads the training history.
type HistoryReader interface {
	Load() ([]history.Entry, error)
}

// Server holds the HTTP routes and their dependencies.
type Server struct {
	predictor Predictor
	history   HistoryReader
	gatherer  prometheus.Gatherer
	logger    log.Logger
	engine    *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds the router. predictor may be nil, in which case /predict
// answers 503.
func New(predictor Predictor, hist HistoryReader, options ...Option) *Server {
	s := &Server{predictor: predictor, history: hist}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("server")
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/", s.handleRoot)
	r.POST("/predict", s.handlePredict)
	r.GET("/history", s.handleHistory)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
}
