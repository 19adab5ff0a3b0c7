// Standard attribute keys for scigo-select logs.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that runs can be filtered and aggregated by log tooling.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestRegressor".
	ModelNameKey = "model.name"

	// CandidateKey is the configured candidate name, e.g. "Random Forest".
	CandidateKey = "model.candidate"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score", "search".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline stage.
	PhaseKey = "ml.phase"

	// RunIDKey identifies one training run across all its records.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
)

// Performance and scores.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records a coefficient of determination.
	R2ScoreKey = "metrics.r2_score"
	TrainR2Key = "metrics.train_r2"
	TestR2Key  = "metrics.test_r2"
	RMSEKey    = "metrics.rmse"

	// CVMeanKey and CVStdKey summarise the fold scores of one search trial.
	CVMeanKey = "cv.mean"
	CVStdKey  = "cv.std"
	FoldsKey  = "cv.folds"
	TrialsKey = "cv.trials"
)

// Errors and warnings.
const (
	ErrorKindKey   = "error.kind"
	ErrorDetailKey = "error.detail"
	StacktraceKey  = "error.stacktrace"
	WarningKey     = "warning"
)

// Hyperparameters and configuration.
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
	ConfigPathKey  = "config.path"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSearch    = "search"

	PhaseIngestion     = "ingestion"
	PhasePreprocessing = "preprocessing"
	PhaseSelection     = "selection"
	PhasePersistence   = "persistence"
	PhaseInference     = "inference"
)
