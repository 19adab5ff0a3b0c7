package tree

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// stepData は x<=2 で y=1、それ以外で y=5 となるデータ
func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 5, 5, 5})
	return X, y
}

func TestDecisionTreeRegressor_StepFunction(t *testing.T) {
	X, y := stepData()

	for _, criterion := range Criteria {
		t.Run(criterion, func(t *testing.T) {
			dt := NewDecisionTreeRegressor(WithCriterion(criterion))
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}

			root := dt.Nodes[0]
			if root.IsLeaf() {
				t.Fatal("root should be split")
			}
			if root.Feature != 0 || root.Threshold != 2.5 {
				t.Errorf("root split = (%d, %v), want (0, 2.5)", root.Feature, root.Threshold)
			}
			if dt.LeafCount() != 2 {
				t.Errorf("LeafCount() = %d, want 2", dt.LeafCount())
			}

			pred, err := dt.Predict(mat.NewDense(2, 1, []float64{1.5, 4.2}))
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if pred.At(0, 0) != 1 || pred.At(1, 0) != 5 {
				t.Errorf("predictions = [%v %v], want [1 5]", pred.At(0, 0), pred.At(1, 0))
			}
		})
	}
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	X := mat.NewDense(16, 1, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i*i))
	}

	tests := []struct {
		maxDepth   int
		wantDepth  int
		wantLeaves int
	}{
		{1, 1, 2},
		{2, 2, 4},
		{0, -1, 16}, // 深さ無制限: 全サンプルが葉になる
	}

	for _, tt := range tests {
		dt := NewDecisionTreeRegressor(WithMaxDepth(tt.maxDepth))
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if tt.wantDepth >= 0 && dt.Depth != tt.wantDepth {
			t.Errorf("max_depth=%d: Depth = %d, want %d", tt.maxDepth, dt.Depth, tt.wantDepth)
		}
		if dt.LeafCount() != tt.wantLeaves {
			t.Errorf("max_depth=%d: LeafCount = %d, want %d", tt.maxDepth, dt.LeafCount(), tt.wantLeaves)
		}
	}
}

func TestDecisionTreeRegressor_MinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i%3))
	}

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	for i, n := range dt.Nodes {
		if n.IsLeaf() && n.NSamples < 3 {
			t.Errorf("leaf %d has %d samples, want >= 3", i, n.NSamples)
		}
	}
}

func TestDecisionTreeRegressor_PerfectFitUnlimitedDepth(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		2, 0,
		2, 1,
		3, 0,
		3, 1,
	})
	y := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, _ := dt.Predict(X)
	for i := 0; i < 8; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-12 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestDecisionTreeRegressor_AbsoluteErrorUsesMedian(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 1, 1})
	y := mat.NewDense(3, 1, []float64{1, 2, 100})

	dt := NewDecisionTreeRegressor(WithCriterion(CriterionAbsoluteError))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if dt.Nodes[0].Value != 2 {
		t.Errorf("leaf value = %v, want median 2", dt.Nodes[0].Value)
	}
}

func TestDecisionTreeRegressor_MaxFeaturesSeeded(t *testing.T) {
	X := mat.NewDense(30, 4, nil)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, math.Sin(float64(i*(j+1))))
		}
		y.Set(i, 0, X.At(i, 0)+2*X.At(i, 3))
	}

	fit := func() []Node {
		dt := NewDecisionTreeRegressor(WithMaxFeatures(0.5), WithRandomState(7), WithMaxDepth(4))
		if err := dt.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		return dt.Nodes
	}
	a, b := fit(), fit()
	if len(a) != len(b) {
		t.Fatalf("node counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("node %d differs between seeded fits", i)
		}
	}
}

func TestDecisionTreeRegressor_Params(t *testing.T) {
	dt := NewDecisionTreeRegressor()

	tests := []struct {
		name    string
		params  model.Params
		wantErr bool
	}{
		{"criterion", model.Params{"criterion": "friedman_mse"}, false},
		{"max_depth from yaml int", model.Params{"max_depth": 5}, false},
		{"max_depth none", model.Params{"max_depth": nil}, false},
		{"max_features sqrt", model.Params{"max_features": "sqrt"}, false},
		{"unsupported criterion", model.Params{"criterion": "poisson"}, true},
		{"min_samples_split too small", model.Params{"min_samples_split": 1}, true},
		{"unknown", model.Params{"n_estimators": 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := dt.GetParams()
			err := dt.SetParams(tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var valErr *errors.ValueError
				if !errors.As(err, &valErr) {
					t.Errorf("expected ValueError, got %T", err)
				}
				if after := dt.GetParams(); after["criterion"] != before["criterion"] {
					t.Error("failed SetParams must not modify the model")
				}
			}
		})
	}

	if got := dt.GetParams()["max_features"]; got != "sqrt" {
		t.Errorf("max_features = %v, want sqrt", got)
	}
	if got := dt.GetParams()["max_depth"]; got != nil {
		t.Errorf("max_depth = %v, want nil", got)
	}
}

func TestDecisionTreeRegressor_NotFitted(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 1, []float64{0}))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestDecisionTreeRegressor_CloneIsUnfitted(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor(WithMaxDepth(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	c := dt.Clone()
	if c.IsFitted() {
		t.Error("Clone() must be unfitted")
	}
	if c.GetParams()["max_depth"] != 3 {
		t.Errorf("Clone() max_depth = %v", c.GetParams()["max_depth"])
	}
	if !dt.IsFitted() {
		t.Error("Clone() must not reset the original")
	}
}

func TestMedianTracker(t *testing.T) {
	values := []float64{5, 1, 9, 3, 7, 2}
	var m medianTracker
	for k, v := range values {
		m.add(v)
		med := median(values[:k+1])
		var want float64
		for _, x := range values[:k+1] {
			want += math.Abs(x - med)
		}
		if math.Abs(m.sad()-want) > 1e-12 {
			t.Errorf("after %d values: sad = %v, want %v", k+1, m.sad(), want)
		}
	}
}
