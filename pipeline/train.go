// Package pipeline wires ingestion, preprocessing, model selection, the
// history ledger and the artifact store into the train and predict flows.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scigo-select/artifact"
	"github.com/YuminosukeSato/scigo-select/automl"
	"github.com/YuminosukeSato/scigo-select/config"
	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/history"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
	"github.com/YuminosukeSato/scigo-select/preprocessing"
	"github.com/YuminosukeSato/scigo-select/sklearn/model_selection"
)

// NewRunID returns a run identifier of the form 20060102_150405_1a2b3c4d.
func NewRunID(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// TrainOutcome is the result of one training run.
type TrainOutcome struct {
	RunID  string
	Result *automl.Result
	Entry  history.Entry
	// ModelPath and PreprocessorPath are set when the artifacts were saved.
	ModelPath        string
	PreprocessorPath string
}

// TrainPipeline runs ingestion, preprocessing, selection, history recording and
// optionally artifact saving.
type TrainPipeline struct {
	settings *config.Settings
	registry *automl.Registry
	selector *automl.Selector
	ledger   *history.Ledger
	store    *artifact.Store
	logger   log.Logger
	metrics  *automl.Metrics
	now      func() time.Time
}

// TrainOption configures a TrainPipeline.
type TrainOption func(*TrainPipeline)

// WithRegistry uses reg instead of the one built from Settings.ConfigPath.
func WithRegistry(reg *automl.Registry) TrainOption {
	return func(p *TrainPipeline) { p.registry = reg }
}

// WithTrainLogger sets the logger.
func WithTrainLogger(logger log.Logger) TrainOption {
	return func(p *TrainPipeline) { p.logger = logger }
}

// WithTrainMetrics records selection metrics.
func WithTrainMetrics(m *automl.Metrics) TrainOption {
	return func(p *TrainPipeline) { p.metrics = m }
}

// NewTrainPipeline builds the pipeline for s. The model configuration is
// loaded and validated here, so configuration errors surface before any
// data is read.
func NewTrainPipeline(s *config.Settings, options ...TrainOption) (*TrainPipeline, error) {
	p := &TrainPipeline{
		settings: s,
		ledger:   history.NewLedger(s.Paths.HistoryPath),
		store:    artifact.NewStore(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("train_pipeline")
	}
	if p.registry == nil {
		cfg, err := automl.LoadModelConfig(s.ConfigPath)
		if err != nil {
			return nil, err
		}
		reg, err := automl.NewRegistry(cfg)
		if err != nil {
			return nil, err
		}
		p.registry = reg
	}

	search := model_selection.NewGridSearchCV(
		model_selection.WithNJobs(s.NJobs),
		model_selection.WithLogger(p.logger),
	)
	selOpts := []automl.SelectorOption{
		automl.WithSearch(search),
		automl.WithSelectorLogger(p.logger),
		automl.WithMetrics(p.metrics),
	}
	if s.MinScore > 0 {
		selOpts = append(selOpts, automl.WithMinScore(s.MinScore))
	}
	p.selector = automl.NewSelector(p.registry, selOpts...)
	return p, nil
}

// Registry returns the candidate registry in use.
func (p *TrainPipeline) Registry() *automl.Registry { return p.registry }

// Ledger returns the history ledger the pipeline appends to.
func (p *TrainPipeline) Ledger() *history.Ledger { return p.ledger }

// Run executes one training run. The request is resolved before ingestion.
// The history entry is appended only when a winner was selected; on a
// selection failure the partial outcome is returned with the error.
func (p *TrainPipeline) Run(req automl.RunRequest) (*TrainOutcome, error) {
	names, err := req.Resolve(p.registry)
	if err != nil {
		return nil, err
	}

	out := &TrainOutcome{RunID: NewRunID(p.now())}
	logger := p.logger.With(log.RunIDKey, out.RunID)
	start := time.Now()
	logger.Info("training run started", "candidates", names, "save_best", req.SaveBest)

	ingested, err := dataset.Ingest(p.settings.IngestConfig(), logger)
	if err != nil {
		return nil, err
	}

	prep, train, test, err := p.transform(ingested.Train, ingested.Test)
	if err != nil {
		return nil, err
	}
	numeric, categorical := prep.CountKinds()
	logger.Info("data transformed",
		log.PhaseKey, log.PhasePreprocessing,
		"scaler", p.settings.Scaler,
		"numeric_columns", numeric,
		"categorical_columns", categorical,
		log.FeaturesKey, train.Features(),
	)

	result, err := p.selector.Select(names, train, test)
	out.Result = result
	if err != nil {
		return out, err
	}

	out.Entry = history.NewEntry(out.RunID, result)
	if err := p.ledger.Append(out.Entry); err != nil {
		return out, err
	}
	logger.Info("history appended", log.PhaseKey, log.PhasePersistence, log.PathKey, p.ledger.Path())

	if req.SaveBest {
		if err := p.store.Save(p.settings.Paths.PreprocessorPath, prep); err != nil {
			return out, err
		}
		out.PreprocessorPath = p.settings.Paths.PreprocessorPath
		if err := p.store.Save(p.settings.Paths.ModelPath, result.Best.Model); err != nil {
			return out, err
		}
		out.ModelPath = p.settings.Paths.ModelPath
		logger.Info("artifacts saved",
			log.PhaseKey, log.PhasePersistence,
			log.ModelNameKey, result.BestName,
			log.PathKey, out.ModelPath,
		)
	}

	logger.Info("training run completed",
		log.ModelNameKey, result.BestName,
		log.TestR2Key, result.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// transform separates the target, fits the column transformer on the train
// features and applies it to both splits.
func (p *TrainPipeline) transform(train, test *dataset.Table) (*preprocessing.ColumnTransformer, *dataset.Split, *dataset.Split, error) {
	trainF, trainY, err := train.SplitTarget()
	if err != nil {
		return nil, nil, nil, err
	}
	testF, testY, err := test.SplitTarget()
	if err != nil {
		return nil, nil, nil, err
	}

	prep, err := preprocessing.NewColumnTransformer(p.settings.Scaler)
	if err != nil {
		return nil, nil, nil, err
	}
	trainX, err := prep.FitTransformRecords(trainF.Header, trainF.Records)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "fit preprocessor")
	}
	testX, err := prep.TransformRecords(testF.Records)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "transform test split")
	}
	return prep, &dataset.Split{X: trainX, Y: trainY}, &dataset.Split{X: testX, Y: testY}, nil
}
