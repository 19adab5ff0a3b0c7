package automl

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/metrics"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/model_selection"
)

// TrainedCandidate is a fitted candidate with its scores.
type TrainedCandidate struct {
	Name       string
	Model      model.Regressor
	Params     model.Params
	TrainScore float64
	TestScore  float64
	TrainRMSE  float64
	TestRMSE   float64
	Search     *model_selection.SearchResult
	Elapsed    time.Duration
}

// Scores returns the report entry for the candidate.
func (t *TrainedCandidate) Scores() *Scores {
	return &Scores{TrainR2: t.TrainScore, TestR2: t.TestScore}
}

// TrainAndScore applies params to est, fits it on train and computes R² and
// RMSE on both splits. Every failure, panics included, is returned as a
// TrainingError for name.
func TrainAndScore(name string, est model.Regressor, params model.Params, train, test *dataset.Split) (*TrainedCandidate, error) {
	start := time.Now()
	if err := est.SetParams(params); err != nil {
		return nil, errors.NewTrainingError(name, "set_params", err)
	}

	err := errors.SafeExecute("fit", func() error {
		return est.Fit(train.X, train.Y)
	})
	if err != nil {
		return nil, errors.NewTrainingError(name, "fit", err)
	}

	tc := &TrainedCandidate{Name: name, Model: est, Params: est.GetParams()}
	if tc.TrainScore, tc.TrainRMSE, err = score(est, train); err != nil {
		return nil, errors.NewTrainingError(name, "score train", err)
	}
	if tc.TestScore, tc.TestRMSE, err = score(est, test); err != nil {
		return nil, errors.NewTrainingError(name, "score test", err)
	}
	tc.Elapsed = time.Since(start)
	return tc, nil
}

func score(est model.Regressor, s *dataset.Split) (r2, rmse float64, err error) {
	var pred mat.Matrix
	err = errors.SafeExecute("predict", func() error {
		var err error
		pred, err = est.Predict(s.X)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	if pred == nil {
		return 0, 0, errors.New("predict returned no values")
	}
	if err := errors.CheckMatrix("predict", pred, 0); err != nil {
		return 0, 0, err
	}
	if r2, err = metrics.R2ScoreMatrix(s.Y, pred); err != nil {
		return 0, 0, err
	}
	if rmse, err = metrics.RMSEMatrix(s.Y, pred); err != nil {
		return 0, 0, err
	}
	return r2, rmse, nil
}
