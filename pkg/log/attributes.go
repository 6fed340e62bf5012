// Standard attribute keys for pipeline, training and serving logs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "metrics.rmse") so logs from every stage can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the algorithm token, e.g. "lgbm", "catboost".
	ModelNameKey = "model.name"

	// ModelVersionKey is the registry version of a served model.
	ModelVersionKey = "model.version"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "evaluate", "register", "load".
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Tracking context
const (
	// ExperimentKey is the experiment a run belongs to.
	ExperimentKey = "tracking.experiment"

	// RunIDKey is the tracking run identifier.
	RunIDKey = "tracking.run_id"

	// ArtifactKey is an artifact URI or path.
	ArtifactKey = "tracking.artifact"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// PathKey is the dataset snapshot path.
	PathKey = "data.path"

	// BatchSizeKey indicates the number of rows in a prediction request.
	BatchSizeKey = "data.batch_size"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// MSEKey records mean squared error.
	MSEKey = "metrics.mse"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// R2ScoreKey records R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// CompositeKey records the weighted selection score.
	CompositeKey = "metrics.combined"

	// IterationKey records the boosting round.
	IterationKey = "training.iteration"

	// BestIterationKey records the round kept after early stopping.
	BestIterationKey = "training.best_iteration"

	// TrainLossKey and ValidLossKey record per-round evaluation losses.
	TrainLossKey = "training.train_loss"
	ValidLossKey = "training.valid_loss"
)

// Hyperparameters and Configuration
const (
	// LearningRateKey records the learning rate.
	LearningRateKey = "hyperparams.learning_rate"

	// EstimatorsKey records the maximum number of boosting rounds.
	EstimatorsKey = "hyperparams.n_estimators"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// HTTP serving
const (
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"
)

// Error context
const (
	// ErrorKey holds an error message.
	ErrorKey = "error"

	// StacktraceKey holds the cockroachdb/errors stack trace of an error field.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
	OperationRegister = "register"
	OperationLoad     = "load"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseSelection  = "selection"
	PhaseInference  = "inference"
)
