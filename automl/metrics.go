package automl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YuminosukeSato/scigo-select/sklearn/model_selection"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics are the Prometheus instruments of the selection engine. A nil
// *Metrics records nothing.
type Metrics struct {
	candidates  *prometheus.CounterVec
	trials      *prometheus.CounterVec
	runDuration prometheus.Histogram
	bestScore   *prometheus.GaugeVec
}

// NewMetrics registers the engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scigo",
			Subsystem: "selection",
			Name:      "candidates_total",
			Help:      "Candidates trained by outcome",
		}, []string{"candidate", "outcome"}),
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scigo",
			Subsystem: "selection",
			Name:      "search_trials_total",
			Help:      "Grid search parameter combinations evaluated by outcome",
		}, []string{"candidate", "outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scigo",
			Subsystem: "selection",
			Name:      "run_duration_seconds",
			Help:      "Duration of a selection run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		bestScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scigo",
			Subsystem: "selection",
			Name:      "best_test_r2",
			Help:      "Test R² of the last selected model",
		}, []string{"candidate"}),
	}
}

func (m *Metrics) observeCandidate(name string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.candidates.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) observeSearch(name string, result *model_selection.SearchResult) {
	if m == nil || result == nil {
		return
	}
	for _, t := range result.Trials {
		outcome := OutcomeSuccess
		if t.Failed() {
			outcome = OutcomeFailure
		}
		m.trials.WithLabelValues(name, outcome).Inc()
	}
}

func (m *Metrics) observeRun(elapsed time.Duration, best string, score float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	if best != "" {
		m.bestScore.Reset()
		m.bestScore.WithLabelValues(best).Set(score)
	}
}
