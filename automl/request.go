package automl

import (
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// RunRequest selects the candidates of a run: either the named Models or
// All registered candidates.
type RunRequest struct {
	Models   []string
	All      bool
	SaveBest bool
}

// Validate checks that exactly one of Models and All is set and that no
// name is repeated.
func (r RunRequest) Validate() error {
	switch {
	case r.All && len(r.Models) > 0:
		return errors.NewConfigurationError("run_request", r.Models,
			"an explicit model list and all models are mutually exclusive")
	case !r.All && len(r.Models) == 0:
		return errors.NewConfigurationError("run_request", nil,
			"either a model list or all models must be requested")
	}
	seen := make(map[string]bool, len(r.Models))
	for _, name := range r.Models {
		if seen[name] {
			return errors.NewConfigurationError("model", name, "requested more than once")
		}
		seen[name] = true
	}
	return nil
}

// Resolve validates the request and returns the candidate names to run, in
// request order or registry order for All.
func (r RunRequest) Resolve(reg *Registry) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.All {
		return reg.Names(), nil
	}
	if err := reg.Validate(r.Models); err != nil {
		return nil, err
	}
	return append([]string(nil), r.Models...), nil
}
