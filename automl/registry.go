// Package automl is the model selection engine: a registry of typed
// candidate factories, the trainer that fits and scores one candidate, and
// the selector that runs a set of candidates and picks the winner.
package automl

import (
	"sort"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/ensemble"
	"github.com/YuminosukeSato/scigo-select/sklearn/linear_model"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// Factory constructs a new unfitted estimator with library defaults.
type Factory func() model.Regressor

var factories = map[string]Factory{
	"LinearRegression":          func() model.Regressor { return linear_model.NewLinearRegression() },
	"Ridge":                     func() model.Regressor { return linear_model.NewRidge() },
	"DecisionTreeRegressor":     func() model.Regressor { return tree.NewDecisionTreeRegressor() },
	"RandomForestRegressor":     func() model.Regressor { return ensemble.NewRandomForestRegressor() },
	"GradientBoostingRegressor": func() model.Regressor { return ensemble.NewGradientBoostingRegressor() },
	"AdaBoostRegressor":         func() model.Regressor { return ensemble.NewAdaBoostRegressor() },
}

// SupportedTypes returns the closed set of algorithm types, sorted.
func SupportedTypes() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Registry maps candidate names to validated construction recipes.
// It holds no estimator instances.
type Registry struct {
	candidates []Candidate
	index      map[string]int
}

// NewRegistry validates cfg against the factory set. Unknown types, unknown
// parameter names and values an estimator rejects are ConfigurationErrors.
func NewRegistry(cfg *ModelConfig) (*Registry, error) {
	if cfg == nil || len(cfg.Candidates) == 0 {
		return nil, errors.NewConfigurationError("models", nil, "no candidates configured")
	}
	r := &Registry{index: make(map[string]int, len(cfg.Candidates))}
	for _, cand := range cfg.Candidates {
		if _, dup := r.index[cand.Name]; dup {
			return nil, errors.NewConfigurationError("models", cand.Name, "duplicate candidate name")
		}
		if err := validateCandidate(cand); err != nil {
			return nil, err
		}
		r.index[cand.Name] = len(r.candidates)
		r.candidates = append(r.candidates, cand)
	}
	return r, nil
}

func validateCandidate(cand Candidate) error {
	factory, ok := factories[cand.Type]
	if !ok {
		return errors.NewConfigurationError("models."+cand.Name+".type", cand.Type,
			"unsupported model type", SupportedTypes()...)
	}
	if err := factory().SetParams(cand.Defaults); err != nil {
		return errors.NewConfigurationError("models."+cand.Name+".params", nil, err.Error())
	}
	for _, dim := range cand.Grid {
		for _, v := range dim.Values {
			est := factory()
			if err := est.SetParams(cand.Defaults); err != nil {
				return errors.NewConfigurationError("models."+cand.Name+".params", nil, err.Error())
			}
			if err := est.SetParams(model.Params{dim.Name: v}); err != nil {
				return errors.NewConfigurationError("models."+cand.Name+".params."+dim.Name, v, err.Error())
			}
		}
	}
	return nil
}

// Names returns candidate names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.candidates))
	for i, c := range r.candidates {
		names[i] = c.Name
	}
	return names
}

// Candidate returns the descriptor registered under name.
func (r *Registry) Candidate(name string) (Candidate, bool) {
	i, ok := r.index[name]
	if !ok {
		return Candidate{}, false
	}
	return r.candidates[i], true
}

// Validate checks that every name is registered.
func (r *Registry) Validate(names []string) error {
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return errors.NewConfigurationError("model", name, "unsupported model name", r.Names()...)
		}
	}
	return nil
}

// Instantiate returns a fresh unfitted estimator with the configured defaults
// applied, and the candidate's grid. Every call constructs a new instance.
func (r *Registry) Instantiate(name string) (model.Regressor, model.Grid, error) {
	cand, ok := r.Candidate(name)
	if !ok {
		return nil, nil, errors.NewConfigurationError("model", name, "unsupported model name", r.Names()...)
	}
	est := factories[cand.Type]()
	if err := est.SetParams(cand.Defaults.Copy()); err != nil {
		return nil, nil, errors.NewTrainingError(name, "instantiate", err)
	}
	return est, cand.Grid, nil
}
