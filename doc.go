// Package scigoselect trains regression models on a tabular dataset,
// compares candidate algorithms by held-out R², records every run in a JSON
// history ledger and serves predictions from the saved winner.
//
// # Installation
//
//	go install github.com/YuminosukeSato/scigo-select/cmd/scigo-select@latest
//
// # Quick Start
//
// Train every configured candidate and keep the best one:
//
//	scigo-select train --best-of-all --save-best
//	scigo-select history --plot artifacts/reports/history.png
//	scigo-select serve
//
// The same flow from Go:
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/scigo-select/automl"
//	    "github.com/YuminosukeSato/scigo-select/config"
//	    "github.com/YuminosukeSato/scigo-select/pipeline"
//	)
//
//	func main() {
//	    settings, err := config.Load("")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    p, err := pipeline.NewTrainPipeline(settings)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := p.Run(automl.RunRequest{All: true, SaveBest: true})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Printf("best: %s (test R² %.4f)", out.Result.BestName, out.Result.BestScore)
//	}
//
// # Packages
//
//   - automl: candidate registry, trainer/scorer and selection policy
//   - sklearn/model_selection: KFold and parallel grid search
//   - sklearn/linear_model, sklearn/tree, sklearn/ensemble: the estimators
//   - preprocessing: scalers and the imputing, one-hot encoding ColumnTransformer
//   - metrics: R², RMSE, MSE and related regression metrics
//   - dataset: CSV tables, ingestion and train/test splits
//   - history: the append-only run ledger
//   - artifact: versioned model and preprocessor files
//   - pipeline: the train and predict flows
//   - server: the HTTP prediction service
//   - report: history charts
//   - config: process settings
//   - core/model: estimator interfaces, parameters and fitted state
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Model configuration
//
// Candidates are declared in YAML under "models". A list value is a grid
// dimension searched with 3-fold cross-validation; a scalar is a fixed
// default:
//
//	models:
//	  Ridge:
//	    type: Ridge
//	    params:
//	      alpha: [0.1, 1.0, 10.0]
//
// # License
//
// Released under the MIT License.
package scigoselect
