package model_selection

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/metrics"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
)

// DefaultCV is the number of folds used when GridSearchCV.CV is unset.
const DefaultCV = 3

// Trial is the cross-validation outcome of one parameter combination.
type Trial struct {
	Params model.Params
	Scores []float64 // R² per fold
	Mean   float64   // NaN when the combination failed
	Std    float64
	Err    error
}

// Failed reports whether the combination could not be scored.
func (t Trial) Failed() bool { return t.Err != nil || math.IsNaN(t.Mean) }

// SearchResult is the outcome of GridSearchCV.Search.
type SearchResult struct {
	// BestParams are the estimator's full parameters with the winning
	// combination applied.
	BestParams model.Params
	BestScore  float64
	// BestIndex is the winning combination in enumeration order, or -1
	// when the grid was empty.
	BestIndex int
	Trials    []Trial
	Elapsed   time.Duration
}

// Searched reports whether any combination was evaluated.
func (r *SearchResult) Searched() bool { return r.BestIndex >= 0 }

// GridSearchCV performs an exhaustive cross-validated search over a grid,
// scored by mean R² on the held-out folds.
type GridSearchCV struct {
	CV     int
	NJobs  int
	Logger log.Logger
}

// Option configures a GridSearchCV.
type Option func(*GridSearchCV)

// WithCV sets the number of folds.
func WithCV(k int) Option {
	return func(g *GridSearchCV) { g.CV = k }
}

// WithNJobs sets the number of combinations evaluated concurrently.
// Values <= 0 use all CPUs.
func WithNJobs(n int) Option {
	return func(g *GridSearchCV) { g.NJobs = n }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(g *GridSearchCV) { g.Logger = logger }
}

// NewGridSearchCV creates a 3-fold grid search.
func NewGridSearchCV(options ...Option) *GridSearchCV {
	g := &GridSearchCV{CV: DefaultCV}
	for _, opt := range options {
		opt(g)
	}
	if g.CV < 2 {
		g.CV = DefaultCV
	}
	if g.Logger == nil {
		g.Logger = log.GetLoggerWithName("grid_search")
	}
	return g
}

type foldData struct {
	trainX, trainY, testX, testY *mat.Dense
}

// Search evaluates every combination of grid on clones of est. An empty grid
// returns est.GetParams() unchanged without fitting anything. Ties on the
// mean score go to the first combination in enumeration order.
func (g *GridSearchCV) Search(est model.Regressor, grid model.Grid, X, y mat.Matrix) (*SearchResult, error) {
	const op = "GridSearchCV.Search"
	name := estimatorName(est)

	if grid.Size() == 0 {
		return &SearchResult{BestParams: est.GetParams(), BestScore: math.NaN(), BestIndex: -1}, nil
	}

	rows, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != rows {
		return nil, errors.NewTrainingError(name, op,
			errors.NewDimensionError(op, rows, yRows, 0))
	}
	if rows < g.CV {
		return nil, errors.NewTrainingError(name, op,
			errors.Newf("cannot split %d samples into %d folds", rows, g.CV))
	}

	start := time.Now()
	folds := g.folds(X, y, rows)
	combos := grid.Combinations()
	trials := make([]Trial, len(combos))

	workers := g.NJobs
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, combo := range combos {
		eg.Go(func() error {
			trials[i] = g.evaluate(est, combo, folds)
			return nil
		})
	}
	_ = eg.Wait()

	best := -1
	var firstErr error
	for i, t := range trials {
		if t.Failed() {
			if firstErr == nil {
				firstErr = t.Err
			}
			g.Logger.Debug("combination failed",
				log.CandidateKey, name,
				log.HyperParamsKey, t.Params,
				"error", t.Err,
			)
			continue
		}
		g.Logger.Debug("combination scored",
			log.CandidateKey, name,
			log.HyperParamsKey, t.Params,
			log.CVMeanKey, t.Mean,
			log.CVStdKey, t.Std,
		)
		if best < 0 || t.Mean > trials[best].Mean {
			best = i
		}
	}
	if best < 0 {
		if firstErr == nil {
			firstErr = errors.New("non-finite cross-validation scores")
		}
		return nil, errors.NewTrainingError(name, op,
			errors.Wrapf(firstErr, "all %d parameter combinations failed", len(combos)))
	}

	tuned := est.Clone()
	if err := tuned.SetParams(trials[best].Params); err != nil {
		return nil, errors.NewTrainingError(name, op, err)
	}

	result := &SearchResult{
		BestParams: tuned.GetParams(),
		BestScore:  trials[best].Mean,
		BestIndex:  best,
		Trials:     trials,
		Elapsed:    time.Since(start),
	}
	g.Logger.Info("grid search finished",
		log.CandidateKey, name,
		log.OperationKey, log.OperationSearch,
		log.TrialsKey, len(trials),
		log.FoldsKey, g.CV,
		log.CVMeanKey, result.BestScore,
		log.DurationMsKey, result.Elapsed.Milliseconds(),
	)
	return result, nil
}

func (g *GridSearchCV) folds(X, y mat.Matrix, rows int) []foldData {
	splits := NewKFold(g.CV, false, 0).Split(rows)
	out := make([]foldData, len(splits))
	for i, s := range splits {
		out[i].trainX, out[i].trainY = Subset(X, y, s.TrainIndices)
		out[i].testX, out[i].testY = Subset(X, y, s.TestIndices)
	}
	return out
}

// evaluate fits a clone per fold. Shared fold matrices are only read.
func (g *GridSearchCV) evaluate(est model.Regressor, params model.Params, folds []foldData) Trial {
	trial := Trial{Params: params, Scores: make([]float64, len(folds)), Mean: math.NaN()}

	for i, f := range folds {
		m := est.Clone()
		if err := m.SetParams(params); err != nil {
			trial.Err = err
			return trial
		}
		err := errors.SafeExecute("GridSearchCV.fold", func() error {
			if err := m.Fit(f.trainX, f.trainY); err != nil {
				return err
			}
			pred, err := m.Predict(f.testX)
			if err != nil {
				return err
			}
			score, err := metrics.R2ScoreMatrix(f.testY, pred)
			if err != nil {
				return err
			}
			if err := errors.CheckScalar("GridSearchCV.fold", score, i); err != nil {
				return err
			}
			trial.Scores[i] = score
			return nil
		})
		if err != nil {
			trial.Err = errors.Wrapf(err, "fold %d", i)
			return trial
		}
	}

	data := stats.Float64Data(trial.Scores)
	mean, err := stats.Mean(data)
	if err != nil {
		trial.Err = errors.Wrap(err, "mean of fold scores")
		return trial
	}
	std, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		trial.Err = errors.Wrap(err, "std of fold scores")
		return trial
	}
	trial.Mean, trial.Std = mean, std
	return trial
}

// estimatorName returns the type name of est without package or pointer.
func estimatorName(est model.Regressor) string {
	t := reflect.TypeOf(est)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return fmt.Sprintf("%T", est)
	}
	return t.Name()
}
