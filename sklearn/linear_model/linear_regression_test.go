package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// makeLinear は y = 2*x1 + 3*x2 - x3 + 5 のデータを作成する
func makeLinear(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, math.Sin(float64(i)/10.0))
		X.Set(i, 1, math.Cos(float64(i)/10.0))
		X.Set(i, 2, float64(i)/50.0)
		y.Set(i, 0, 2*X.At(i, 0)+3*X.At(i, 1)-X.At(i, 2)+5)
	}
	return X, y
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := makeLinear(60)

	tests := []struct {
		name          string
		fitIntercept  bool
		wantCoef      []float64
		wantIntercept float64
		tolerance     float64
	}{
		{"with intercept", true, []float64{2, 3, -1}, 5, 1e-8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression(WithLRFitIntercept(tt.fitIntercept))
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for i, w := range lr.Coef() {
				if math.Abs(w-tt.wantCoef[i]) > tt.tolerance {
					t.Errorf("coef[%d] = %v, want %v", i, w, tt.wantCoef[i])
				}
			}
			if math.Abs(lr.Intercept()-tt.wantIntercept) > tt.tolerance {
				t.Errorf("intercept = %v, want %v", lr.Intercept(), tt.wantIntercept)
			}
		})
	}
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 6, 9, 12})

	lr := NewLinearRegression(WithLRFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(lr.Coef()[0]-3) > 1e-10 || lr.Intercept() != 0 {
		t.Errorf("coef = %v intercept = %v, want 3 and 0", lr.Coef(), lr.Intercept())
	}
}

func TestLinearRegressionRankDeficient(t *testing.T) {
	// 2列目は1列目の複製
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
		5, 5,
	})
	y := mat.NewDense(5, 1, []float64{2, 4, 6, 8, 10})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Rank != 1 {
		t.Errorf("Rank = %d, want 1", lr.Rank)
	}

	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-8 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 3, nil))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	X, y := makeLinear(10)
	if err := lr.Fit(X, mat.NewDense(9, 1, nil)); err == nil {
		t.Error("expected error for mismatched y rows")
	}
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	_, err = lr.Predict(mat.NewDense(2, 2, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestLinearRegressionParams(t *testing.T) {
	lr := NewLinearRegression()

	if err := lr.SetParams(model.Params{"fit_intercept": false}); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if lr.GetParams()["fit_intercept"] != false {
		t.Errorf("GetParams() = %v", lr.GetParams())
	}
	if err := lr.SetParams(model.Params{"n_estimators": 10}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if err := lr.SetParams(model.Params{"fit_intercept": "yes"}); err == nil {
		t.Error("expected error for non-bool fit_intercept")
	}

	X, y := makeLinear(10)
	_ = lr.Fit(X, y)
	clone := lr.Clone()
	if clone.IsFitted() {
		t.Error("Clone() must return an unfitted model")
	}
	if clone.GetParams()["fit_intercept"] != false {
		t.Error("Clone() must keep hyperparameters")
	}
}

func TestLinearRegressionDeterministic(t *testing.T) {
	X, y := makeLinear(40)

	a, b := NewLinearRegression(), NewLinearRegression()
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for i := range a.Weights {
		if a.Weights[i] != b.Weights[i] {
			t.Errorf("coef[%d] differs between runs: %v vs %v", i, a.Weights[i], b.Weights[i])
		}
	}
}

func TestLinearRegressionSnapshot(t *testing.T) {
	X, y := makeLinear(20)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	data, err := model.Snapshot(lr)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	var restored LinearRegression
	if err := model.Restore(data, &restored); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	p1, _ := lr.Predict(X)
	p2, err := restored.Predict(X)
	if err != nil {
		t.Fatalf("Predict() after restore error = %v", err)
	}
	if !mat.Equal(p1, p2) {
		t.Error("predictions differ after snapshot round trip")
	}
}
