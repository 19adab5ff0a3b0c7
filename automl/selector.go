package automl

import (
	"time"

	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
	"github.com/YuminosukeSato/scigo-select/sklearn/model_selection"
)

// Result is the outcome of a selection run.
type Result struct {
	Report    *Report `json:"model_report"`
	BestName  string  `json:"best_model_name"`
	BestScore float64 `json:"best_model_score"`
	// R2Square is the winner's R² on the test split.
	R2Square float64 `json:"r2_square"`

	Best *TrainedCandidate `json:"-"`
	// Failures holds the error of every failed candidate.
	Failures map[string]error `json:"-"`
	Elapsed  time.Duration    `json:"-"`
}

// Selector trains candidates from a Registry and picks the one with the
// greatest test R².
type Selector struct {
	registry *Registry
	search   *model_selection.GridSearchCV
	minScore *float64
	logger   log.Logger
	metrics  *Metrics
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSearch replaces the default 3-fold grid search.
func WithSearch(search *model_selection.GridSearchCV) SelectorOption {
	return func(s *Selector) { s.search = search }
}

// WithMinScore makes Select fail when the winner's test R² is below min.
func WithMinScore(min float64) SelectorOption {
	return func(s *Selector) { s.minScore = &min }
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(logger log.Logger) SelectorOption {
	return func(s *Selector) { s.logger = logger }
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) SelectorOption {
	return func(s *Selector) { s.metrics = m }
}

// NewSelector creates a Selector over reg.
func NewSelector(reg *Registry, options ...SelectorOption) *Selector {
	s := &Selector{registry: reg}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("selector")
	}
	if s.search == nil {
		s.search = model_selection.NewGridSearchCV(model_selection.WithLogger(s.logger))
	}
	return s
}

// Select runs names in order and returns the report and the winner. Request
// and shape errors are returned before any candidate is fitted. A failing
// candidate is recorded as nil in the report; the run fails only when no
// candidate succeeds or the winner misses the minimum score, in which case
// the returned Result still carries the full report.
func (s *Selector) Select(names []string, train, test *dataset.Split) (*Result, error) {
	if len(names) == 0 {
		return nil, errors.NewConfigurationError("models", nil, "no candidates requested", s.registry.Names()...)
	}
	if err := s.registry.Validate(names); err != nil {
		return nil, err
	}
	if err := dataset.ValidatePair(train, test); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{Report: NewReport(), Failures: make(map[string]error)}
	s.logger.Info("model selection started",
		log.PhaseKey, log.PhaseSelection,
		log.SamplesKey, train.Rows(),
		log.FeaturesKey, train.Features(),
		"candidates", names,
	)

	for _, name := range names {
		logger := s.logger.With(log.CandidateKey, name)
		tc, err := s.runCandidate(name, train, test)
		s.metrics.observeCandidate(name, err)
		if err != nil {
			result.Report.Set(name, nil)
			result.Failures[name] = err
			logger.Warn("candidate failed", err)
			continue
		}

		result.Report.Set(name, tc.Scores())
		logger.Info("candidate trained",
			log.TrainR2Key, tc.TrainScore,
			log.TestR2Key, tc.TestScore,
			log.RMSEKey, tc.TestRMSE,
			log.HyperParamsKey, tc.Params,
			log.DurationMsKey, tc.Elapsed.Milliseconds(),
		)
		// strictly greater keeps the first candidate on ties
		if result.Best == nil || tc.TestScore > result.Best.TestScore {
			result.Best = tc
		}
	}
	result.Elapsed = time.Since(start)

	if result.Best == nil {
		s.metrics.observeRun(result.Elapsed, "", 0)
		return result, errors.NewTrainingError("", "select", errors.ErrNoUsableModel)
	}

	result.BestName = result.Best.Name
	result.BestScore = result.Best.TestScore
	result.R2Square = result.Best.TestScore
	s.metrics.observeRun(result.Elapsed, result.BestName, result.BestScore)

	if s.minScore != nil && result.BestScore < *s.minScore {
		return result, errors.NewTrainingError(result.BestName, "select",
			errors.Wrapf(errors.ErrBelowThreshold, "best test R² %.4f is below %.4f", result.BestScore, *s.minScore))
	}

	s.logger.Info("model selection completed",
		log.PhaseKey, log.PhaseSelection,
		log.ModelNameKey, result.BestName,
		log.TestR2Key, result.BestScore,
		log.DurationMsKey, result.Elapsed.Milliseconds(),
	)
	return result, nil
}

func (s *Selector) runCandidate(name string, train, test *dataset.Split) (*TrainedCandidate, error) {
	est, grid, err := s.registry.Instantiate(name)
	if err != nil {
		return nil, err
	}

	search, err := s.search.Search(est, grid, train.X, train.Y)
	if err != nil {
		var te *errors.TrainingError
		if errors.As(err, &te) && te.Candidate != name {
			return nil, errors.NewTrainingError(name, "search", err)
		}
		return nil, err
	}
	s.metrics.observeSearch(name, search)

	tc, err := TrainAndScore(name, est, search.BestParams, train, test)
	if err != nil {
		return nil, err
	}
	tc.Search = search
	return tc, nil
}
