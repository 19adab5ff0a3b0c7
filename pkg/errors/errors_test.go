package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "scigo: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "scigo: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)

	want := "scigo: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
	if KindOf(err) != "" {
		t.Errorf("DimensionError should carry no taxonomy tag, got %q", KindOf(err))
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LinearRegression", "Predict")

	want := "scigo: LinearRegression: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("model type", "XGB", "unsupported model type", "Linear", "Tree")

	want := "scigo: configuration error: model type XGB: unsupported model type (supported: [Linear, Tree])"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var cfgErr *ConfigurationError
	if !As(err, &cfgErr) {
		t.Fatal("Error should be castable to *ConfigurationError")
	}
	if cfgErr.Value != "XGB" {
		t.Errorf("Value = %v, want XGB", cfgErr.Value)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", New("boom"), ""},
		{"configuration", NewConfigurationError("candidates", nil, "empty"), KindConfiguration},
		{"training", NewTrainingError("Tree", "fit", New("boom")), KindTraining},
		{"persistence", NewPersistenceError("read", "/tmp/x.json", New("boom")), KindPersistence},
		{"validation", NewValidationError("columns", "mismatch", 3), KindValidation},
		{"input shape", NewInputShapeError("prediction", []int{-1, 3}, []int{1, 4}), KindValidation},
		{"wrapped training", Wrap(NewTrainingError("Tree", "fit", nil), "run failed"), KindTraining},
		{"outermost wins", NewPersistenceError("write", "h.json", NewTrainingError("Tree", "fit", nil)), KindPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrainingErrorUnwrap(t *testing.T) {
	cause := ErrSingularMatrix
	err := NewTrainingError("Linear", "fit", cause)

	if !Is(err, ErrSingularMatrix) {
		t.Error("Expected Is(err, ErrSingularMatrix) to be true")
	}
	if !strings.Contains(err.Error(), `candidate "Linear": fit`) {
		t.Errorf("Expected candidate name in message, got %q", err.Error())
	}
}

func TestPersistenceErrorNamesPath(t *testing.T) {
	err := NewPersistenceError("load artifact", "/data/model.gob", fmt.Errorf("no such file"))
	if !strings.Contains(err.Error(), "/data/model.gob") {
		t.Errorf("Expected path in message, got %q", err.Error())
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestWarnRoutesToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("r2_score", "constant y_true", 0))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "r2_score") {
		t.Errorf("unexpected warning text %q", got[0].Error())
	}
}

func TestCheckMatrix(t *testing.T) {
	ok := fakeMatrix{{1, 2}, {3, 4}}
	if err := CheckMatrix("predict", ok, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := fakeMatrix{{1, 2}, {nan(), 4}}
	err := CheckMatrix("predict", bad, 0)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Operation != "predict" {
		t.Errorf("Operation = %q, want predict", numErr.Operation)
	}
}

type fakeMatrix [][]float64

func (m fakeMatrix) Dims() (int, int)    { return len(m), len(m[0]) }
func (m fakeMatrix) At(i, j int) float64 { return m[i][j] }

func nan() float64 {
	var zero float64
	return zero / zero
}
