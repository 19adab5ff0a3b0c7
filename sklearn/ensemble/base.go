// Package ensemble provides tree ensembles for regression: random forests,
// gradient boosting and AdaBoost.R2.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// TreeParams are the hyperparameters forwarded to every member tree.
type TreeParams struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     float64
	MaxFeaturesRule string
}

func (p TreeParams) newTree(seed int64) *tree.DecisionTreeRegressor {
	t := tree.NewDecisionTreeRegressor(
		tree.WithCriterion(p.Criterion),
		tree.WithMaxDepth(p.MaxDepth),
		tree.WithMinSamplesSplit(p.MinSamplesSplit),
		tree.WithMinSamplesLeaf(p.MinSamplesLeaf),
		tree.WithMaxFeatures(p.MaxFeatures),
		tree.WithRandomState(seed),
	)
	t.MaxFeaturesRule = p.MaxFeaturesRule
	return t
}

// set applies a tree hyperparameter through the tree's own validation.
// handled is false for names that do not belong to the tree.
func (p *TreeParams) set(name string, v interface{}) (handled bool, err error) {
	switch name {
	case "criterion", "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
	default:
		return false, nil
	}
	t := p.newTree(0)
	if err := t.SetParams(model.Params{name: v}); err != nil {
		return true, err
	}
	*p = TreeParams{
		Criterion:       t.Criterion,
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		MaxFeaturesRule: t.MaxFeaturesRule,
	}
	return true, nil
}

func (p TreeParams) fill(out model.Params) {
	for k, v := range p.newTree(0).GetParams() {
		if k != "random_state" {
			out[k] = v
		}
	}
}

func newRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

func positiveInt(op, name string, v interface{}) (int, error) {
	n, err := model.AsInt(name, v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.NewValueError(op, fmt.Sprintf("%s must be >= 1, got %d", name, n))
	}
	return n, nil
}

func positiveFloat(op, name string, v interface{}) (float64, error) {
	f, err := model.AsFloat(name, v)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, errors.NewValueError(op, fmt.Sprintf("%s must be > 0, got %g", name, f))
	}
	return f, nil
}

// checkPredict validates the state and width of X before prediction.
func checkPredict(name string, state *model.StateManager, X mat.Matrix) (rows int, err error) {
	if err := state.RequireFitted(name, "Predict"); err != nil {
		return 0, err
	}
	rows, cols := X.Dims()
	if err := state.CheckFeatures(name+".Predict", cols); err != nil {
		return 0, err
	}
	return rows, nil
}
