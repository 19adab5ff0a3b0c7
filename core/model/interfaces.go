// Package model defines the estimator contracts shared by every algorithm
// and by the selection engine.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n×1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their hyperparameters.
type ParameterGetter interface {
	// GetParams returns a fresh copy of the hyperparameters keyed by their
	// configuration names.
	GetParams() Params
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams applies the given hyperparameters. Unknown names and values
	// of the wrong type are rejected without modifying the model.
	SetParams(params Params) error
}

// Regressor is a single-target regression estimator usable by the engine.
type Regressor interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter

	// Clone returns a new unfitted instance with the same hyperparameters.
	Clone() Regressor

	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool
}
