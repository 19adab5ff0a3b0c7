package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/core/parallel"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// RandomForestRegressor averages trees fitted on bootstrap samples.
// Tree i is seeded with RandomState+i, so the fitted forest does not depend
// on how trees are scheduled across workers.
type RandomForestRegressor struct {
	TreeParams

	NEstimators int
	Bootstrap   bool
	RandomState int64
	NJobs       int

	Trees []*tree.DecisionTreeRegressor
	State *model.StateManager
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// WithForestEstimators sets the number of trees.
func WithForestEstimators(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithForestMaxDepth limits the depth of every tree.
func WithForestMaxDepth(depth int) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxDepth = depth }
}

// WithForestRandomState seeds bootstrap sampling and feature sampling.
func WithForestRandomState(seed int64) ForestOption {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithForestNJobs sets the number of trees fitted concurrently.
func WithForestNJobs(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NJobs = n }
}

// NewRandomForestRegressor creates a forest with scikit-learn defaults.
func NewRandomForestRegressor(options ...ForestOption) *RandomForestRegressor {
	f := &RandomForestRegressor{
		TreeParams: TreeParams{
			Criterion:       tree.CriterionSquaredError,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
		NEstimators: 100,
		Bootstrap:   true,
		State:       model.NewStateManager(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Fit builds NEstimators trees in parallel.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.ValidateFit("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if f.NEstimators < 1 {
		return errors.NewValueError("RandomForestRegressor.Fit", "n_estimators must be >= 1")
	}

	d := tree.NewDataset(X, y)
	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	errs := make([]error, f.NEstimators)

	parallel.ParallelizeWithThreshold(f.NEstimators, 1, f.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			seed := f.RandomState + int64(i)
			sample := d.AllIndices()
			if f.Bootstrap {
				rng := newRand(seed, 0x5eed)
				for k := range sample {
					sample[k] = rng.IntN(rows)
				}
			}
			t := f.newTree(seed)
			errs[i] = t.FitDataset(d, sample)
			trees[i] = t
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "RandomForestRegressor.Fit: tree %d", i)
		}
	}

	f.Trees = trees
	f.State.SetFitted(rows, cols)
	return nil
}

// Predict averages the member tree predictions.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := checkPredict("RandomForestRegressor", f.State, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for _, t := range f.Trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(f.Trees)), out)
	return out, nil
}

// IsFitted returns whether the model has been fitted.
func (f *RandomForestRegressor) IsFitted() bool { return f.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (f *RandomForestRegressor) GetParams() model.Params {
	p := model.Params{
		"n_estimators": f.NEstimators,
		"bootstrap":    f.Bootstrap,
		"random_state": int(f.RandomState),
		"n_jobs":       f.NJobs,
	}
	f.TreeParams.fill(p)
	return p
}

// SetParams sets the model's hyperparameters.
func (f *RandomForestRegressor) SetParams(params model.Params) error {
	next := *f
	const op = "RandomForestRegressor.SetParams"
	for name, v := range params {
		if handled, err := next.TreeParams.set(name, v); handled {
			if err != nil {
				return err
			}
			continue
		}
		var err error
		switch name {
		case "n_estimators":
			next.NEstimators, err = positiveInt(op, name, v)
		case "bootstrap":
			next.Bootstrap, err = model.AsBool(name, v)
		case "random_state":
			var seed int
			seed, err = model.AsOptionalInt(name, v)
			next.RandomState = int64(seed)
		case "n_jobs":
			next.NJobs, err = model.AsOptionalInt(name, v)
		default:
			err = model.UnknownParam("RandomForestRegressor", name)
		}
		if err != nil {
			return err
		}
	}
	*f = next
	return nil
}

// Clone はモデルの新しい未学習インスタンスを作成
func (f *RandomForestRegressor) Clone() model.Regressor {
	c := *f
	c.Trees = nil
	c.State = model.NewStateManager()
	return &c
}

// String returns the string representation of the model
func (f *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, criterion=%s, max_depth=%v)",
		f.NEstimators, f.Criterion, model.OptionalInt(f.MaxDepth))
}
