package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// GradientBoostingRegressor fits regression trees stage-wise to the
// residuals of the squared error loss, starting from the target mean.
type GradientBoostingRegressor struct {
	TreeParams

	NEstimators  int
	LearningRate float64
	Subsample    float64 // (0, 1]; < 1 gives stochastic gradient boosting
	RandomState  int64

	Init  float64
	Trees []*tree.DecisionTreeRegressor
	State *model.StateManager
}

// BoostingOption configures a GradientBoostingRegressor.
type BoostingOption func(*GradientBoostingRegressor)

// WithBoostingEstimators sets the number of boosting stages.
func WithBoostingEstimators(n int) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every stage.
func WithLearningRate(lr float64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.LearningRate = lr }
}

// WithSubsample sets the fraction of rows drawn for every stage.
func WithSubsample(s float64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.Subsample = s }
}

// WithBoostingRandomState seeds row subsampling.
func WithBoostingRandomState(seed int64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.RandomState = seed }
}

// NewGradientBoostingRegressor creates a model with scikit-learn defaults.
func NewGradientBoostingRegressor(options ...BoostingOption) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		TreeParams: TreeParams{
			Criterion:       tree.CriterionFriedmanMSE,
			MaxDepth:        3,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
		NEstimators:  100,
		LearningRate: 0.1,
		Subsample:    1.0,
		State:        model.NewStateManager(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Fit runs NEstimators boosting stages.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	const op = "GradientBoostingRegressor.Fit"
	rows, cols, err := model.ValidateFit(op, X, y)
	if err != nil {
		return err
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		return errors.NewValueError(op, fmt.Sprintf("subsample must be in (0, 1], got %g", g.Subsample))
	}

	d := tree.NewDataset(X, y)
	all := d.AllIndices()

	var mean float64
	for _, v := range d.Target {
		mean += v
	}
	mean /= float64(rows)

	raw := make([]float64, rows)
	for i := range raw {
		raw[i] = mean
	}

	nSub := int(g.Subsample * float64(rows))
	if nSub < 1 {
		nSub = 1
	}
	rng := newRand(g.RandomState, 0x6b)

	trees := make([]*tree.DecisionTreeRegressor, 0, g.NEstimators)
	residual := make([]float64, rows)
	for m := 0; m < g.NEstimators; m++ {
		for i := range residual {
			residual[i] = d.Target[i] - raw[i]
		}

		sample := all
		if nSub < rows {
			sample = rng.Perm(rows)[:nSub]
		}

		t := g.newTree(g.RandomState + int64(m))
		if err := t.FitDataset(d.WithTarget(residual), sample); err != nil {
			return errors.Wrapf(err, "%s: stage %d", op, m)
		}
		step := t.PredictDataset(d, all)
		for i := range raw {
			raw[i] += g.LearningRate * step[i]
		}
		trees = append(trees, t)
	}

	g.Init = mean
	g.Trees = trees
	g.State.SetFitted(rows, cols)
	return nil
}

// Predict returns Init + LearningRate·Σ tree(X).
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := checkPredict("GradientBoostingRegressor", g.State, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for _, t := range g.Trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(g.LearningRate, out)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, out.At(i, 0)+g.Init)
	}
	return out, nil
}

// IsFitted returns whether the model has been fitted.
func (g *GradientBoostingRegressor) IsFitted() bool { return g.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (g *GradientBoostingRegressor) GetParams() model.Params {
	p := model.Params{
		"n_estimators":  g.NEstimators,
		"learning_rate": g.LearningRate,
		"subsample":     g.Subsample,
		"random_state":  int(g.RandomState),
	}
	g.TreeParams.fill(p)
	return p
}

// SetParams sets the model's hyperparameters.
func (g *GradientBoostingRegressor) SetParams(params model.Params) error {
	next := *g
	const op = "GradientBoostingRegressor.SetParams"
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
		case "learning_rate":
			next.LearningRate, err = positiveFloat(op, name, v)
		case "subsample":
			next.Subsample, err = positiveFloat(op, name, v)
			if err == nil && next.Subsample > 1 {
				err = errors.NewValueError(op, fmt.Sprintf("subsample must be in (0, 1], got %g", next.Subsample))
			}
		case "random_state":
			var seed int
			seed, err = model.AsOptionalInt(name, v)
			next.RandomState = int64(seed)
		default:
			err = model.UnknownParam("GradientBoostingRegressor", name)
		}
		if err != nil {
			return err
		}
	}
	*g = next
	return nil
}

// Clone はモデルの新しい未学習インスタンスを作成
func (g *GradientBoostingRegressor) Clone() model.Regressor {
	c := *g
	c.Init = 0
	c.Trees = nil
	c.State = model.NewStateManager()
	return &c
}

// String returns the string representation of the model
func (g *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, subsample=%g, max_depth=%v)",
		g.NEstimators, g.LearningRate, g.Subsample, model.OptionalInt(g.MaxDepth))
}
