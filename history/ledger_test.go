package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-select/automl"
	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/sklearn/ensemble"
	"github.com/YuminosukeSato/scigo-select/sklearn/linear_model"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

func entry(i int) Entry {
	report := automl.NewReport()
	report.Set("Linear", &automl.Scores{TrainR2: 0.9, TestR2: float64(i) / 10})
	report.Set("Tree", nil)
	return Entry{
		Timestamp:   time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC),
		RunID:       fmt.Sprintf("run-%d", i),
		Model:       "Linear",
		TrainR2:     0.9,
		TestR2:      float64(i) / 10,
		Params:      model.Params{"alpha": 0.5},
		ModelReport: report,
	}
}

func TestLedger_AbsentFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "training_history.json")
	l := NewLedger(path)

	entries, err := l.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoFileExists(t, path, "Load must not create the file")
}

func TestLedger_AppendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "training_history.json")
	l := NewLedger(path)

	const n = 5
	var want []Entry
	for i := 0; i < n; i++ {
		e := entry(i)
		require.NoError(t, l.Append(e))
		want = append(want, e)
	}

	got, err := NewLedger(path).Load()
	require.NoError(t, err)
	require.Len(t, got, n)
	assert.Equal(t, want, got)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary files are cleaned up")
}

func TestLedger_EstimatorParamsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	l := NewLedger(path)

	params := []model.Params{
		tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3), tree.WithRandomState(42)).GetParams(),
		ensemble.NewRandomForestRegressor(ensemble.WithForestEstimators(50), ensemble.WithForestRandomState(7)).GetParams(),
		linear_model.NewRidge(linear_model.WithAlpha(1.0)).GetParams(),
	}

	var want []Entry
	for i, p := range params {
		e := entry(i)
		e.Params = p
		require.NoError(t, l.Append(e))
		want = append(want, e)
	}

	got, err := NewLedger(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.IsType(t, 0, got[0].Params["max_depth"])
	assert.IsType(t, 0.0, got[2].Params["alpha"])
}

func TestLedger_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	l := NewLedger(path)
	require.NoError(t, l.Append(entry(1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "[\n    {\n        \"timestamp\""), "4-space indented array:\n%s", text)
	for _, key := range []string{`"model": "Linear"`, `"train_r2"`, `"test_r2"`, `"model_report"`, `"Tree": null`} {
		assert.Contains(t, text, key)
	}

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 1)
}

func TestLedger_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `[{"model": "Linear"`},
		{"object", `{"model": "Linear"}`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			l := NewLedger(path)

			_, err := l.Load()
			require.Error(t, err)
			assert.Equal(t, errors.KindPersistence, errors.KindOf(err))
			assert.Contains(t, err.Error(), path)

			require.Error(t, l.Append(entry(0)))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "a failed append leaves the file untouched")
		})
	}
}

func TestLedger_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	l := NewLedger(path)

	require.NoError(t, l.Append(entry(0)))
	entries, err := l.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	l := NewLedger(path)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Append(entry(i)))
		}()
	}
	wg.Wait()

	entries, err := l.Load()
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestNewEntry(t *testing.T) {
	report := automl.NewReport()
	report.Set("Linear", &automl.Scores{TrainR2: 1, TestR2: 0.98})
	result := &automl.Result{
		Report: report,
		Best: &automl.TrainedCandidate{
			Name:       "Linear",
			TrainScore: 1,
			TestScore:  0.98,
			Params:     model.Params{"fit_intercept": true},
		},
	}

	e := NewEntry("20240501_120000_abcd1234", result)
	assert.Equal(t, "Linear", e.Model)
	assert.Equal(t, 0.98, e.TestR2)
	assert.Equal(t, report, e.ModelReport)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)
}
