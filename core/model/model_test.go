package model

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

func TestGridCombinationsOrder(t *testing.T) {
	g := Grid{
		{Name: "max_depth", Values: []interface{}{2, 4}},
		{Name: "criterion", Values: []interface{}{"squared_error", "friedman_mse", "absolute_error"}},
	}

	if g.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", g.Size())
	}

	combos := g.Combinations()
	want := []Params{
		{"max_depth": 2, "criterion": "squared_error"},
		{"max_depth": 2, "criterion": "friedman_mse"},
		{"max_depth": 2, "criterion": "absolute_error"},
		{"max_depth": 4, "criterion": "squared_error"},
		{"max_depth": 4, "criterion": "friedman_mse"},
		{"max_depth": 4, "criterion": "absolute_error"},
	}
	if !reflect.DeepEqual(combos, want) {
		t.Errorf("Combinations() = %v, want %v", combos, want)
	}
}

func TestEmptyGrid(t *testing.T) {
	var g Grid
	if g.Size() != 0 {
		t.Errorf("Size() = %d, want 0", g.Size())
	}
	if g.Combinations() != nil {
		t.Error("Combinations() of an empty grid should be nil")
	}
}

func TestParamConversions(t *testing.T) {
	tests := []struct {
		name    string
		conv    func(interface{}) (interface{}, error)
		in      interface{}
		want    interface{}
		wantErr bool
	}{
		{"int from int", wrapInt, 3, 3, false},
		{"int from integral float", wrapInt, 3.0, 3, false},
		{"int from fraction", wrapInt, 3.5, nil, true},
		{"int from string", wrapInt, "3", nil, true},
		{"float from int", wrapFloat, 2, 2.0, false},
		{"float from float", wrapFloat, 0.1, 0.1, false},
		{"float from bool", wrapFloat, true, nil, true},
		{"optional nil", wrapOptional, nil, 0, false},
		{"optional int", wrapOptional, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.conv(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if tt.wantErr {
				var valErr *errors.ValueError
				if !errors.As(err, &valErr) {
					t.Errorf("expected ValueError, got %T", err)
				}
			}
		})
	}
}

func wrapInt(v interface{}) (interface{}, error) {
	i, err := AsInt("p", v)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func wrapFloat(v interface{}) (interface{}, error) {
	f, err := AsFloat("p", v)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func wrapOptional(v interface{}) (interface{}, error) {
	i, err := AsOptionalInt("p", v)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func TestParamsMergeDoesNotAlias(t *testing.T) {
	base := Params{"alpha": 1.0, "fit_intercept": true}
	merged := base.Merge(Params{"alpha": 0.5})

	if merged["alpha"] != 0.5 || base["alpha"] != 1.0 {
		t.Errorf("Merge mutated its receiver: base=%v merged=%v", base, merged)
	}
	if !reflect.DeepEqual(merged.Keys(), []string{"alpha", "fit_intercept"}) {
		t.Errorf("Keys() = %v", merged.Keys())
	}
}

func TestParamsJSONKeepsNumberTypes(t *testing.T) {
	tests := []struct {
		name string
		in   Params
	}{
		{"ints", Params{"max_depth": 3, "n_estimators": 100, "random_state": 42}},
		{"integral float", Params{"alpha": 1.0, "learning_rate": 0.1}},
		{"unset", Params{"max_depth": nil, "criterion": "squared_error"}},
		{"mixed", Params{"min_samples_leaf": 1, "subsample": 1.0, "fit_intercept": true}},
		{"large float", Params{"tol": 1e21, "eps": 1e-9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got Params
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", data, err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("round trip of %s = %#v, want %#v", data, got, tt.in)
			}
		})
	}
}

func TestParamsJSONRejectsNaN(t *testing.T) {
	if _, err := json.Marshal(Params{"alpha": math.NaN()}); err == nil {
		t.Error("expected an error for a NaN parameter")
	}
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	if err := s.RequireFitted("Ridge", "Predict"); err == nil {
		t.Fatal("expected NotFittedError before fit")
	}

	s.SetFitted(10, 3)
	if err := s.RequireFitted("Ridge", "Predict"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CheckFeatures("Ridge.Predict", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := s.CheckFeatures("Ridge.Predict", 2)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) || dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Errorf("expected DimensionError 3 vs 2, got %v", err)
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear the fitted flag")
	}
}

func TestSnapshotRestore(t *testing.T) {
	type weights struct {
		Coef      []float64
		Intercept float64
		State     *StateManager
	}
	in := weights{Coef: []float64{1, 2}, Intercept: 0.5, State: NewStateManager()}
	in.State.SetFitted(4, 2)

	data, err := Snapshot(in)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var out weights
	if err := Restore(data, &out); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !reflect.DeepEqual(out.Coef, in.Coef) || out.Intercept != in.Intercept {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if !out.State.IsFitted() || out.State.NFeatures != 2 {
		t.Errorf("state not restored: %+v", out.State)
	}
}
