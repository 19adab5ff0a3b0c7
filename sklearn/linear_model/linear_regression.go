// Package linear_model provides ordinary least squares and ridge regression.
package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
)

// LinearRegression is a linear regression model using ordinary least squares.
// Exported fields are the model state encoded into artifacts.
type LinearRegression struct {
	// Hyperparameters
	FitIntercept bool

	// Learned parameters
	Weights []float64
	Bias    float64
	Rank    int

	State *model.StateManager
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		FitIntercept: true,
		State:        model.NewStateManager(),
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.ValidateFit("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	c := center(X, y, lr.FitIntercept)
	coef, rank, err := leastSquares("LinearRegression.Fit", c.X, c.y)
	if err != nil {
		return err
	}

	lr.Weights = coef
	lr.Rank = rank
	lr.Bias = 0
	if lr.FitIntercept {
		lr.Bias = c.intercept(coef)
	}
	lr.State.SetFitted(rows, cols)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.State.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := lr.State.CheckFeatures("LinearRegression.Predict", cols); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.Weights, lr.Bias), nil
}

// Coef は学習された重み係数を返す
func (lr *LinearRegression) Coef() []float64 { return copySlice(lr.Weights) }

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 { return lr.Bias }

// IsFitted returns whether the model has been fitted.
func (lr *LinearRegression) IsFitted() bool { return lr.State.IsFitted() }

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{"fit_intercept": lr.FitIntercept}
}

// SetParams sets the model's hyperparameters.
func (lr *LinearRegression) SetParams(params model.Params) error {
	fit := lr.FitIntercept
	for name, v := range params {
		switch name {
		case "fit_intercept":
			b, err := model.AsBool(name, v)
			if err != nil {
				return err
			}
			fit = b
		default:
			return model.UnknownParam("LinearRegression", name)
		}
	}
	lr.FitIntercept = fit
	return nil
}

// Clone はモデルの新しい未学習インスタンスを作成（同じハイパーパラメータ）
func (lr *LinearRegression) Clone() model.Regressor {
	return NewLinearRegression(WithLRFitIntercept(lr.FitIntercept))
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.State.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
	}
	nFeatures, _ := lr.State.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, fitted=true)", lr.FitIntercept, nFeatures)
}
