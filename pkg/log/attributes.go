// Package log defines standard attribute keys for matprop.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so log lines from the parser, the training pipeline and the model
// lifecycle can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the regressor family.
	// Examples: "XGBoost", "LightGBM", "RandomForest"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "promote", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "pipeline", "lifecycle", "service"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	// Examples: "training", "validation", "inference"
	PhaseKey = "ml.phase"
)

// Domain Context
const (
	// TargetKey is the target property as requested, e.g. "d33 (pC/N)".
	TargetKey = "target.property"

	// TargetColumnKey is the dataset column the target key resolved to.
	TargetColumnKey = "target.column"

	// ArtifactKey is the storage name of a model artifact.
	ArtifactKey = "artifact.name"

	// ArtifactStateKey is "candidate" or "production".
	ArtifactStateKey = "artifact.state"

	// RunIDKey identifies one TrainAndEvaluate call.
	RunIDKey = "run.id"

	// FormulaKey is a raw formula string supplied by a caller.
	FormulaKey = "chem.formula"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey describe the split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// DroppedRowsKey counts rows removed by missing-value filtering.
	DroppedRowsKey = "data.dropped_rows"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"
)

// Error and Warning Context
const (
	// ErrAttrKey carries an error value; the zerolog backend adds its stack trace.
	ErrAttrKey = "error"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationPromote = "promote"
	OperationLoad    = "load"
	OperationSave    = "save"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorTargetNotFound    = "TARGET_NOT_FOUND"
	ErrorCorruptArtifact   = "CORRUPT_ARTIFACT"
)
