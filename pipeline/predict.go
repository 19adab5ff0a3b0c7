package pipeline

import (
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/artifact"
	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
	"github.com/YuminosukeSato/scigo-select/preprocessing"
)

// PredictPipeline holds a loaded model and preprocessor. Artifacts are read
// once at construction; Predict is safe for concurrent use.
type PredictPipeline struct {
	model     model.Regressor
	prep      *preprocessing.ColumnTransformer
	modelKind string
	logger    log.Logger
}

// PredictOption configures a PredictPipeline.
type PredictOption func(*PredictPipeline)

// WithPredictLogger sets the logger.
func WithPredictLogger(logger log.Logger) PredictOption {
	return func(p *PredictPipeline) { p.logger = logger }
}

// NewPredictPipeline loads the model and preprocessor artifacts. The model
// must have been trained on the preprocessor's encoded width.
func NewPredictPipeline(modelPath, preprocessorPath string, options ...PredictOption) (*PredictPipeline, error) {
	p := &PredictPipeline{}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("predict_pipeline")
	}

	store := artifact.NewStore()
	m, ma, err := store.LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	prep, _, err := store.LoadPreprocessor(preprocessorPath)
	if err != nil {
		return nil, err
	}
	if ma.NFeatures != prep.NFeaturesOut() {
		return nil, errors.NewPersistenceError("load artifacts", modelPath,
			errors.Newf("model expects %d features but preprocessor produces %d", ma.NFeatures, prep.NFeaturesOut()))
	}

	p.model, p.prep, p.modelKind = m, prep, ma.Kind
	p.logger.Info("model and preprocessor loaded",
		log.PhaseKey, log.PhaseInference,
		log.ModelNameKey, ma.Kind,
		log.FeaturesKey, prep.NFeaturesIn(),
		log.PathKey, modelPath,
	)
	return p, nil
}

// NFeatures returns the raw column count the preprocessor was fitted on.
func (p *PredictPipeline) NFeatures() int { return p.prep.NFeaturesIn() }

// Columns returns the raw column names in the order records must use.
func (p *PredictPipeline) Columns() []string {
	return append([]string(nil), p.prep.Columns...)
}

// ModelKind returns the estimator type of the loaded model.
func (p *PredictPipeline) ModelKind() string { return p.modelKind }

// PredictRecords preprocesses raw text records and returns one prediction
// per record. Empty or ragged input is a ValidationError; a record width
// other than NFeatures is an InputShapeError.
func (p *PredictPipeline) PredictRecords(records [][]string) ([]float64, error) {
	if len(records) == 0 {
		return nil, errors.NewValidationError("features", "at least one row is required", 0)
	}
	width := len(records[0])
	for i, r := range records {
		if len(r) != width {
			return nil, errors.NewValidationError("features",
				"all rows must have the same length", map[string]int{"row": i, "len": len(r), "want": width})
		}
	}
	if width != p.NFeatures() {
		return nil, errors.NewInputShapeError("prediction", []int{len(records), p.NFeatures()}, []int{len(records), width})
	}

	start := time.Now()
	X, err := p.prep.TransformRecords(records)
	if err != nil {
		return nil, errors.Wrap(err, "transform features")
	}
	pred, err := p.model.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	p.logger.Debug("prediction completed",
		log.PhaseKey, log.PhaseInference,
		log.SamplesKey, len(records),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return mat.Col(nil, 0, pred), nil
}

// Predict predicts the rows of a numeric matrix, for models whose
// preprocessor saw only numeric columns.
func (p *PredictPipeline) Predict(X mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	records := make([][]string, rows)
	for i := range records {
		records[i] = make([]string, cols)
		for j := 0; j < cols; j++ {
			records[i][j] = strconv.FormatFloat(X.At(i, j), 'g', -1, 64)
		}
	}
	return p.PredictRecords(records)
}
