package automl

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
	"github.com/YuminosukeSato/scigo-select/sklearn/linear_model"
)

const scenarioConfig = `
models:
  Linear:
    type: LinearRegression
    params: {}
  Tree:
    type: DecisionTreeRegressor
    params:
      max_depth: [2, 3]
`

// linearSplits は y = 3*x0 + 2 (x1 は無関係) の学習・評価データ
func linearSplits(t *testing.T, nTrain, nTest int) (*dataset.Split, *dataset.Split) {
	t.Helper()
	build := func(n int, offset float64) *dataset.Split {
		m := mat.NewDense(n, 3, nil)
		for i := 0; i < n; i++ {
			x0 := float64(i) + offset
			m.Set(i, 0, x0)
			m.Set(i, 1, float64(i%4))
			m.Set(i, 2, 3*x0+2)
		}
		s, err := dataset.FromMatrix(m)
		require.NoError(t, err)
		return s
	}
	return build(nTrain, 0), build(nTest, 0.5)
}

func newTestSelector(t *testing.T, reg *Registry, options ...SelectorOption) (*Selector, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewSelector(reg, append([]SelectorOption{WithSelectorLogger(logger)}, options...)...), logger
}

var fitCalls atomic.Int64

// countingRegressor は Fit 呼び出し回数を数える線形回帰
type countingRegressor struct {
	*linear_model.LinearRegression
}

func (c *countingRegressor) Fit(X, y mat.Matrix) error {
	fitCalls.Add(1)
	return c.LinearRegression.Fit(X, y)
}

func (c *countingRegressor) Clone() model.Regressor {
	return &countingRegressor{linear_model.NewLinearRegression()}
}

// nanRegressor always predicts NaN.
type nanRegressor struct {
	*linear_model.LinearRegression
}

func (n *nanRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	out.Set(0, 0, math.NaN())
	return out, nil
}

// panicRegressor panics in Fit.
type panicRegressor struct {
	*linear_model.LinearRegression
}

func (p *panicRegressor) Fit(mat.Matrix, mat.Matrix) error {
	panic("fit exploded")
}

func registerFactory(t *testing.T, name string, f Factory) {
	t.Helper()
	factories[name] = f
	t.Cleanup(func() { delete(factories, name) })
}

func TestSelect_ScenarioA_LinearWins(t *testing.T) {
	reg := mustRegistry(t, scenarioConfig)
	train, test := linearSplits(t, 30, 10)
	sel, logger := newTestSelector(t, reg)

	result, err := sel.Select([]string{"Linear", "Tree"}, train, test)
	require.NoError(t, err)

	assert.Equal(t, "Linear", result.BestName)
	assert.InDelta(t, 1.0, result.BestScore, 1e-9)
	assert.Equal(t, result.BestScore, result.R2Square)
	assert.Equal(t, []string{"Linear", "Tree"}, result.Report.Names())

	treeScores, ok := result.Report.Get("Tree")
	require.True(t, ok)
	require.NotNil(t, treeScores)
	assert.Less(t, treeScores.TestR2, result.BestScore)

	require.NotNil(t, result.Best)
	assert.True(t, result.Best.Model.IsFitted())
	require.NotNil(t, result.Best.Search)
	assert.False(t, result.Best.Search.Searched(), "empty grid skips the search")
	assert.True(t, logger.ContainsMessage("model selection completed"))
}

func TestSelect_BestIsMaxAndFirstOnTies(t *testing.T) {
	reg := mustRegistry(t, `
models:
  Tree:
    type: DecisionTreeRegressor
    params:
      max_depth: 1
  Linear A:
    type: LinearRegression
  Linear B:
    type: LinearRegression
  Ridge:
    type: Ridge
    params:
      alpha: 50.0
`)
	train, test := linearSplits(t, 30, 10)
	sel, _ := newTestSelector(t, reg)

	result, err := sel.Select(reg.Names(), train, test)
	require.NoError(t, err)

	best := math.Inf(-1)
	for _, name := range result.Report.Names() {
		s, _ := result.Report.Get(name)
		require.NotNil(t, s, name)
		best = math.Max(best, s.TestR2)
	}
	assert.Equal(t, best, result.BestScore)
	assert.Equal(t, "Linear A", result.BestName, "ties go to the first candidate")
}

func TestSelect_ScenarioB_ExclusiveModes(t *testing.T) {
	registerFactory(t, "CountingRegressor", func() model.Regressor {
		return &countingRegressor{linear_model.NewLinearRegression()}
	})
	reg := mustRegistry(t, "models:\n  Counting:\n    type: CountingRegressor\n")
	fitCalls.Store(0)

	for _, req := range []RunRequest{
		{Models: []string{"Counting"}, All: true},
		{},
		{Models: []string{"Counting", "Counting"}},
	} {
		_, err := req.Resolve(reg)
		require.Error(t, err)
		assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	}
	assert.Zero(t, fitCalls.Load(), "no fit may happen before the request is valid")

	names, err := RunRequest{All: true}.Resolve(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Counting"}, names)
}

func TestSelect_ScenarioC_TooFewRowsForSearch(t *testing.T) {
	reg := mustRegistry(t, scenarioConfig)
	train, test := linearSplits(t, 2, 3)

	t.Run("only candidate fails the run", func(t *testing.T) {
		sel, _ := newTestSelector(t, reg)
		result, err := sel.Select([]string{"Tree"}, train, test)
		require.Error(t, err)

		assert.Equal(t, errors.KindTraining, errors.KindOf(err))
		assert.True(t, errors.Is(err, errors.ErrNoUsableModel))
		require.NotNil(t, result)
		scores, ok := result.Report.Get("Tree")
		assert.True(t, ok)
		assert.Nil(t, scores)
		assert.Equal(t, errors.KindTraining, errors.KindOf(result.Failures["Tree"]))
	})

	t.Run("others still produce a winner", func(t *testing.T) {
		sel, logger := newTestSelector(t, reg)
		result, err := sel.Select([]string{"Tree", "Linear"}, train, test)
		require.NoError(t, err)

		assert.Equal(t, "Linear", result.BestName)
		scores, ok := result.Report.Get("Tree")
		assert.True(t, ok)
		assert.Nil(t, scores)
		assert.True(t, logger.ContainsMessage("candidate failed"))

		data, err := json.Marshal(result)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"Tree":null`)
	})
}

func TestSelect_RequestErrorsBeforeFit(t *testing.T) {
	registerFactory(t, "CountingRegressor", func() model.Regressor {
		return &countingRegressor{linear_model.NewLinearRegression()}
	})
	reg := mustRegistry(t, "models:\n  Counting:\n    type: CountingRegressor\n")
	train, test := linearSplits(t, 10, 5)
	sel, _ := newTestSelector(t, reg)
	fitCalls.Store(0)

	_, err := sel.Select(nil, train, test)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))

	_, err = sel.Select([]string{"Counting", "Missing"}, train, test)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Missing")

	narrow, err := dataset.FromMatrix(mat.NewDense(3, 2, nil))
	require.NoError(t, err)
	_, err = sel.Select([]string{"Counting"}, train, narrow)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	assert.Zero(t, fitCalls.Load())
}

func TestSelect_Deterministic(t *testing.T) {
	reg := mustRegistry(t, `
models:
  Linear:
    type: LinearRegression
  Ridge:
    type: Ridge
    params:
      alpha: [0.1, 1.0, 10.0]
  Forest:
    type: RandomForestRegressor
    params:
      n_estimators: [4, 8]
      random_state: 3
`)
	train, test := linearSplits(t, 24, 8)

	var results []*Result
	for i := 0; i < 2; i++ {
		sel, _ := newTestSelector(t, reg)
		result, err := sel.Select(reg.Names(), train, test)
		require.NoError(t, err)
		results = append(results, result)
	}

	assert.Equal(t, results[0].Report, results[1].Report)
	assert.Equal(t, results[0].BestName, results[1].BestName)
}

func TestSelect_MinScore(t *testing.T) {
	reg := mustRegistry(t, scenarioConfig)
	train, test := linearSplits(t, 30, 10)
	sel, _ := newTestSelector(t, reg, WithMinScore(1.5))

	result, err := sel.Select([]string{"Linear"}, train, test)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBelowThreshold))
	assert.Equal(t, errors.KindTraining, errors.KindOf(err))
	require.NotNil(t, result)
	assert.Equal(t, "Linear", result.BestName)
}

func TestSelect_Metrics(t *testing.T) {
	registerFactory(t, "PanicRegressor", func() model.Regressor {
		return &panicRegressor{linear_model.NewLinearRegression()}
	})
	reg := mustRegistry(t, scenarioConfig+"  Broken:\n    type: PanicRegressor\n")
	train, test := linearSplits(t, 30, 10)

	promReg := prometheus.NewRegistry()
	m := NewMetrics(promReg)
	sel, _ := newTestSelector(t, reg, WithMetrics(m))

	_, err := sel.Select(reg.Names(), train, test)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates.WithLabelValues("Linear", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates.WithLabelValues("Broken", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trials.WithLabelValues("Tree", OutcomeSuccess)))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.bestScore.WithLabelValues("Linear")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestTrainAndScore(t *testing.T) {
	train, test := linearSplits(t, 20, 5)

	t.Run("scores both splits", func(t *testing.T) {
		tc, err := TrainAndScore("Ridge", linear_model.NewRidge(), model.Params{"alpha": 0.0}, train, test)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, tc.TrainScore, 1e-9)
		assert.InDelta(t, 1.0, tc.TestScore, 1e-9)
		assert.InDelta(t, 0.0, tc.TestRMSE, 1e-6)
		assert.Equal(t, 0.0, tc.Params["alpha"])
	})

	t.Run("constant target", func(t *testing.T) {
		m := mat.NewDense(4, 2, []float64{1, 5, 2, 5, 3, 5, 4, 5})
		constant, err := dataset.FromMatrix(m)
		require.NoError(t, err)

		tc, err := TrainAndScore("Linear", linear_model.NewLinearRegression(), nil, constant, constant)
		require.NoError(t, err)
		assert.Equal(t, 1.0, tc.TestScore)
	})

	failures := []struct {
		name   string
		est    model.Regressor
		params model.Params
		op     string
	}{
		{"bad params", linear_model.NewRidge(), model.Params{"alpha": -1.0}, "set_params"},
		{"nan predictions", &nanRegressor{linear_model.NewLinearRegression()}, nil, "score train"},
		{"panic", &panicRegressor{linear_model.NewLinearRegression()}, nil, "fit"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainAndScore("Cand", tt.est, tt.params, train, test)
			require.Error(t, err)

			var te *errors.TrainingError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, "Cand", te.Candidate)
			assert.Equal(t, tt.op, te.Op)
		})
	}
}

func TestReport_JSON(t *testing.T) {
	r := NewReport()
	r.Set("Zeta", &Scores{TrainR2: 0.9, TestR2: 0.8})
	r.Set("Alpha", nil)
	r.Set("Mid", &Scores{TrainR2: 1, TestR2: 0.5})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Zeta":{"train_r2":0.9,"test_r2":0.8},"Alpha":null,"Mid":{"train_r2":1,"test_r2":0.5}}`, string(data))
	assert.Equal(t, `{"Zeta":{"train_r2":0.9,"test_r2":0.8},"Alpha":null,"Mid":{"train_r2":1,"test_r2":0.5}}`, string(data),
		"key order is insertion order")

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Names(), back.Names())
	assert.Equal(t, 2, back.Succeeded())
	s, ok := back.Get("Alpha")
	assert.True(t, ok)
	assert.Nil(t, s)

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &back))
}

func TestResult_JSON(t *testing.T) {
	r := NewReport()
	r.Set("Linear", &Scores{TrainR2: 1, TestR2: 0.99})
	data, err := json.Marshal(&Result{Report: r, BestName: "Linear", BestScore: 0.99, R2Square: 0.99})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model_report": {"Linear": {"train_r2": 1, "test_r2": 0.99}},
		"best_model_name": "Linear",
		"best_model_score": 0.99,
		"r2_square": 0.99
	}`, string(data))
}
