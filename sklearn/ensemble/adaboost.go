package ensemble

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// AdaBoost.R2 loss functions.
const (
	LossLinear      = "linear"
	LossSquare      = "square"
	LossExponential = "exponential"
)

// AdaBoostRegressor implements AdaBoost.R2 (Drucker, 1997) with depth
// limited regression trees. Each round fits a tree on a weighted bootstrap
// sample; predictions are the weighted median over rounds.
type AdaBoostRegressor struct {
	TreeParams

	NEstimators  int
	LearningRate float64
	Loss         string
	RandomState  int64

	Trees   []*tree.DecisionTreeRegressor
	Weights []float64
	State   *model.StateManager
}

// AdaBoostOption configures an AdaBoostRegressor.
type AdaBoostOption func(*AdaBoostRegressor)

// WithAdaBoostEstimators sets the maximum number of boosting rounds.
func WithAdaBoostEstimators(n int) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.NEstimators = n }
}

// WithAdaBoostLearningRate sets the weight shrinkage per round.
func WithAdaBoostLearningRate(lr float64) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.LearningRate = lr }
}

// WithLoss selects the AdaBoost.R2 loss.
func WithLoss(loss string) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.Loss = loss }
}

// WithAdaBoostRandomState seeds the weighted bootstrap.
func WithAdaBoostRandomState(seed int64) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.RandomState = seed }
}

// NewAdaBoostRegressor creates a model with scikit-learn defaults
// (50 rounds of depth 3 trees).
func NewAdaBoostRegressor(options ...AdaBoostOption) *AdaBoostRegressor {
	a := &AdaBoostRegressor{
		TreeParams: TreeParams{
			Criterion:       tree.CriterionSquaredError,
			MaxDepth:        3,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
		NEstimators:  50,
		LearningRate: 1.0,
		Loss:         LossLinear,
		State:        model.NewStateManager(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Fit runs up to NEstimators boosting rounds. Boosting stops early on a
// perfect round or when the weighted error reaches 0.5.
func (a *AdaBoostRegressor) Fit(X, y mat.Matrix) error {
	const op = "AdaBoostRegressor.Fit"
	rows, cols, err := model.ValidateFit(op, X, y)
	if err != nil {
		return err
	}
	if err := validateLoss(op, a.Loss); err != nil {
		return err
	}

	d := tree.NewDataset(X, y)
	all := d.AllIndices()
	rng := newRand(a.RandomState, 0xada)

	sampleWeight := make([]float64, rows)
	for i := range sampleWeight {
		sampleWeight[i] = 1 / float64(rows)
	}

	var trees []*tree.DecisionTreeRegressor
	var weights []float64
	cdf := make([]float64, rows)
	errVec := make([]float64, rows)

	for round := 0; round < a.NEstimators; round++ {
		// weighted bootstrap
		var total float64
		for i, w := range sampleWeight {
			total += w
			cdf[i] = total
		}
		sample := make([]int, rows)
		for k := range sample {
			idx := sort.SearchFloat64s(cdf, rng.Float64()*total)
			if idx >= rows {
				idx = rows - 1
			}
			sample[k] = idx
		}

		t := a.newTree(a.RandomState + int64(round))
		if err := t.FitDataset(d, sample); err != nil {
			return errors.Wrapf(err, "%s: round %d", op, round)
		}
		pred := t.PredictDataset(d, all)

		var errMax float64
		for i := range errVec {
			errVec[i] = math.Abs(pred[i] - d.Target[i])
			if sampleWeight[i] > 0 && errVec[i] > errMax {
				errMax = errVec[i]
			}
		}
		var estimatorError float64
		for i := range errVec {
			if errMax > 0 {
				errVec[i] /= errMax
			}
			switch a.Loss {
			case LossSquare:
				errVec[i] *= errVec[i]
			case LossExponential:
				errVec[i] = 1 - math.Exp(-errVec[i])
			}
			estimatorError += sampleWeight[i] * errVec[i]
		}

		if estimatorError <= 0 {
			trees = append(trees, t)
			weights = append(weights, 1)
			break
		}
		if estimatorError >= 0.5 {
			// the first round is kept so that the model can still predict
			if len(trees) == 0 {
				trees = append(trees, t)
				weights = append(weights, 1)
			}
			break
		}

		beta := estimatorError / (1 - estimatorError)
		trees = append(trees, t)
		weights = append(weights, a.LearningRate*math.Log(1/beta))

		if round == a.NEstimators-1 {
			break
		}
		var sum float64
		for i := range sampleWeight {
			sampleWeight[i] *= math.Pow(beta, (1-errVec[i])*a.LearningRate)
			sum += sampleWeight[i]
		}
		if sum <= 0 {
			break
		}
		for i := range sampleWeight {
			sampleWeight[i] /= sum
		}
	}

	a.Trees = trees
	a.Weights = weights
	a.State.SetFitted(rows, cols)
	return nil
}

// Predict returns the weighted median of the round predictions.
func (a *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := checkPredict("AdaBoostRegressor", a.State, X)
	if err != nil {
		return nil, err
	}
	preds := make([]mat.Matrix, len(a.Trees))
	for k, t := range a.Trees {
		if preds[k], err = t.Predict(X); err != nil {
			return nil, err
		}
	}

	out := mat.NewDense(rows, 1, nil)
	order := make([]int, len(a.Trees))
	for i := 0; i < rows; i++ {
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(p, q int) bool {
			return preds[order[p]].At(i, 0) < preds[order[q]].At(i, 0)
		})
		out.Set(i, 0, preds[weightedMedian(order, a.Weights)].At(i, 0))
	}
	return out, nil
}

// weightedMedian returns the member index at which the cumulative weight of
// the sorted predictions first reaches half of the total weight.
func weightedMedian(order []int, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	var cum float64
	for _, k := range order {
		cum += weights[k]
		if cum >= 0.5*total {
			return k
		}
	}
	return order[len(order)-1]
}

// IsFitted returns whether the model has been fitted.
func (a *AdaBoostRegressor) IsFitted() bool { return a.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (a *AdaBoostRegressor) GetParams() model.Params {
	p := model.Params{
		"n_estimators":  a.NEstimators,
		"learning_rate": a.LearningRate,
		"loss":          a.Loss,
		"random_state":  int(a.RandomState),
	}
	a.TreeParams.fill(p)
	return p
}

// SetParams sets the model's hyperparameters.
func (a *AdaBoostRegressor) SetParams(params model.Params) error {
	next := *a
	const op = "AdaBoostRegressor.SetParams"
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
		case "loss":
			next.Loss, err = model.AsString(name, v)
			if err == nil {
				err = validateLoss(op, next.Loss)
			}
		case "random_state":
			var seed int
			seed, err = model.AsOptionalInt(name, v)
			next.RandomState = int64(seed)
		default:
			err = model.UnknownParam("AdaBoostRegressor", name)
		}
		if err != nil {
			return err
		}
	}
	*a = next
	return nil
}

// Clone はモデルの新しい未学習インスタンスを作成
func (a *AdaBoostRegressor) Clone() model.Regressor {
	c := *a
	c.Trees = nil
	c.Weights = nil
	c.State = model.NewStateManager()
	return &c
}

// String returns the string representation of the model
func (a *AdaBoostRegressor) String() string {
	return fmt.Sprintf("AdaBoostRegressor(n_estimators=%d, learning_rate=%g, loss=%s)", a.NEstimators, a.LearningRate, a.Loss)
}

func validateLoss(op, loss string) error {
	switch loss {
	case LossLinear, LossSquare, LossExponential:
		return nil
	}
	return errors.NewValueError(op, fmt.Sprintf("loss must be one of [linear square exponential], got %q", loss))
}
