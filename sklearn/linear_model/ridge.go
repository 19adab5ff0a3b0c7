package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Ridge is linear least squares with an L2 penalty alpha·||w||².
// The intercept is not penalised.
type Ridge struct {
	Alpha        float64
	FitIntercept bool

	Weights []float64
	Bias    float64

	State *model.StateManager
}

// RidgeOption は設定オプション
type RidgeOption func(*Ridge)

// WithAlpha は正則化の強さを設定
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) {
		r.Alpha = alpha
	}
}

// WithRidgeFitIntercept は切片の学習有無を設定（Ridge用）
func WithRidgeFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) {
		r.FitIntercept = fit
	}
}

// NewRidge は新しいRidgeモデルを作成
func NewRidge(options ...RidgeOption) *Ridge {
	r := &Ridge{
		Alpha:        1.0,
		FitIntercept: true,
		State:        model.NewStateManager(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit solves (XᵀX + αI)w = Xᵀy on centered data.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.ValidateFit("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if r.Alpha < 0 {
		return errors.NewValueError("Ridge.Fit", fmt.Sprintf("alpha must be non-negative, got %g", r.Alpha))
	}

	c := center(X, y, r.FitIntercept)

	var coef []float64
	if r.Alpha == 0 {
		coef, _, err = leastSquares("Ridge.Fit", c.X, c.y)
		if err != nil {
			return err
		}
	} else {
		gram := mat.NewSymDense(cols, nil)
		gram.SymOuterK(1, c.X.T())
		for j := 0; j < cols; j++ {
			gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
		}
		var xty mat.Dense
		xty.Mul(c.X.T(), c.y)

		var chol mat.Cholesky
		if ok := chol.Factorize(gram); !ok {
			return errors.NewModelError("Ridge.Fit", "cholesky", errors.ErrSingularMatrix)
		}
		w := mat.NewDense(cols, 1, nil)
		if err := chol.SolveTo(w, &xty); err != nil {
			return errors.NewModelError("Ridge.Fit", "solve", err)
		}
		coef = mat.Col(nil, 0, w)
	}

	r.Weights = coef
	r.Bias = 0
	if r.FitIntercept {
		r.Bias = c.intercept(coef)
	}
	r.State.SetFitted(rows, cols)
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.State.RequireFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := r.State.CheckFeatures("Ridge.Predict", cols); err != nil {
		return nil, err
	}
	return predictLinear(X, r.Weights, r.Bias), nil
}

// Coef は学習された重み係数を返す
func (r *Ridge) Coef() []float64 { return copySlice(r.Weights) }

// Intercept は学習された切片を返す
func (r *Ridge) Intercept() float64 { return r.Bias }

// IsFitted returns whether the model has been fitted.
func (r *Ridge) IsFitted() bool { return r.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (r *Ridge) GetParams() model.Params {
	return model.Params{"alpha": r.Alpha, "fit_intercept": r.FitIntercept}
}

// SetParams sets the model's hyperparameters.
func (r *Ridge) SetParams(params model.Params) error {
	alpha, fit := r.Alpha, r.FitIntercept
	for name, v := range params {
		var err error
		switch name {
		case "alpha":
			alpha, err = model.AsFloat(name, v)
			if err == nil && alpha < 0 {
				err = errors.NewValueError("Ridge.SetParams", fmt.Sprintf("alpha must be non-negative, got %g", alpha))
			}
		case "fit_intercept":
			fit, err = model.AsBool(name, v)
		default:
			err = model.UnknownParam("Ridge", name)
		}
		if err != nil {
			return err
		}
	}
	r.Alpha, r.FitIntercept = alpha, fit
	return nil
}

// Clone はモデルの新しい未学習インスタンスを作成
func (r *Ridge) Clone() model.Regressor {
	return NewRidge(WithAlpha(r.Alpha), WithRidgeFitIntercept(r.FitIntercept))
}

// String returns the string representation of the model
func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t)", r.Alpha, r.FitIntercept)
}
