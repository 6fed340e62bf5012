// Package pipeline is the training driver: it loads the latest snapshot,
// splits it in time order, trains every configured model, evaluates each on
// the validation split, records everything in a tracking store and registers
// the model with the lowest composite score.
package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/metrics"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/tracking"
	"github.com/YuminosukeSato/salesforecast/train"
)

// Defaults for Options.
const (
	DefaultPattern        = "CA_1_*.gob.xz"
	DefaultTarget         = "sold"
	DefaultExperiment     = "sales_forecasting"
	DefaultRegisteredName = "BestRegressionModel"
	DefaultResultsDir     = "results"
)

// TrainFunc fits the model registered under name. train.Dispatch is the
// default.
type TrainFunc func(ctx context.Context, name string, data train.Data, common train.CommonParams) (model.Regressor, error)

// EvaluateFunc scores a fitted model. metrics.Evaluate is the default.
type EvaluateFunc func(m model.Regressor, X mat.Matrix, y *mat.VecDense) (metrics.Record, error)

// Options configures one pipeline run.
type Options struct {
	DataDir       string
	Pattern       string
	Target        string
	Columns       []string // column names for headerless .npy snapshots
	TrainFraction float64

	Common train.CommonParams
	Models []string

	Experiment     string
	RegisteredName string

	// ResultsDir receives the results JSON and a copy of the best model.
	// Empty disables both.
	ResultsDir string

	Train    TrainFunc
	Evaluate EvaluateFunc
	Now      func() time.Time
}

// DefaultOptions returns the production configuration.
func DefaultOptions() Options {
	return Options{
		DataDir:        "data",
		Pattern:        DefaultPattern,
		Target:         DefaultTarget,
		TrainFraction:  dataset.DefaultTrainFraction,
		Common:         train.DefaultCommonParams(),
		Models:         train.Names(),
		Experiment:     DefaultExperiment,
		RegisteredName: DefaultRegisteredName,
		ResultsDir:     DefaultResultsDir,
	}
}

func (o *Options) withDefaults() {
	if o.Train == nil {
		o.Train = train.Dispatch
	}
	if o.Evaluate == nil {
		o.Evaluate = metrics.Evaluate
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RegisteredName == "" {
		o.RegisteredName = DefaultRegisteredName
	}
}

// ModelResult is the outcome of training and evaluating one model.
type ModelResult struct {
	ModelName   string             `json:"model_name"`
	RunID       string             `json:"run_id"`
	ArtifactURI string             `json:"artifact_uri"`
	Metrics     map[string]float64 `json:"metrics"`
	Params      map[string]any     `json:"params"`
	Timestamp   time.Time          `json:"timestamp"`

	Record metrics.Record  `json:"-"`
	Model  model.Regressor `json:"-"`
}

// Score is the composite selection score.
func (r ModelResult) Score() float64 { return r.Record.Composite() }

// Result summarises a pipeline run.
type Result struct {
	Snapshot      string
	All           []ModelResult
	Best          ModelResult
	Registered    tracking.ModelVersion
	ResultsFile   string
	BestModelFile string
}

// SelectBest returns the index of the result with the lowest composite
// score. The first result wins ties. It returns -1 for an empty slice.
func SelectBest(results []ModelResult) int {
	best := -1
	for i := range results {
		if best < 0 || results[i].Score() < results[best].Score() {
			best = i
		}
	}
	return best
}

// Prepare loads the newest snapshot under opts.DataDir, splits it and
// separates the target column.
func Prepare(opts Options) (train.Data, string, error) {
	var readOpts []dataset.Option
	if len(opts.Columns) > 0 {
		readOpts = append(readOpts, dataset.WithColumns(opts.Columns))
	}
	table, path, err := dataset.LoadLatest(opts.DataDir, opts.Pattern, readOpts...)
	if err != nil {
		return train.Data{}, "", err
	}
	trainSet, validSet, err := dataset.TemporalSplit(table, opts.TrainFraction)
	if err != nil {
		return train.Data{}, "", err
	}
	prepared, err := dataset.PrepareFeatures(trainSet, validSet, opts.Target)
	if err != nil {
		return train.Data{}, "", err
	}
	return train.FromPrepared(prepared), path, nil
}

// Run prepares the data and trains, selects and registers models.
func Run(ctx context.Context, opts Options, tracker tracking.Tracker) (*Result, error) {
	data, snapshot, err := Prepare(opts)
	if err != nil {
		return nil, err
	}
	res, err := RunWithData(ctx, opts, data, tracker)
	if res != nil {
		res.Snapshot = snapshot
	}
	return res, err
}

// RunWithData trains every model in opts.Models on data in order. The first
// failure aborts the run and nothing is registered; runs already logged stay
// in the tracker.
func RunWithData(ctx context.Context, opts Options, data train.Data, tracker tracking.Tracker) (*Result, error) {
	opts.withDefaults()
	if len(opts.Models) == 0 {
		return nil, scierrors.NewValidationError("models", "at least one model is required", opts.Models)
	}
	if err := opts.Common.Validate(); err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("pipeline").With(log.ExperimentKey, opts.Experiment)
	logger.Info("Starting training",
		log.SamplesKey, rows(data.XTrain),
		log.FeaturesKey, len(data.FeatureNames),
		"models", opts.Models,
	)

	res := &Result{}
	for _, name := range opts.Models {
		if err := ctx.Err(); err != nil {
			return res, scierrors.Wrap(err, "training cancelled")
		}
		mr, err := trainOne(ctx, opts, name, data, tracker)
		if err != nil {
			logger.Error("Training aborted", err, log.ModelNameKey, name)
			return res, err
		}
		logger.Info("Model evaluated",
			log.ModelNameKey, name,
			log.RunIDKey, mr.RunID,
			log.RMSEKey, mr.Record.RMSE,
			log.MAEKey, mr.Record.MAE,
			log.MSEKey, mr.Record.MSE,
			log.R2ScoreKey, mr.Record.R2,
			log.CompositeKey, mr.Score(),
		)
		res.All = append(res.All, mr)
	}

	res.Best = res.All[SelectBest(res.All)]
	logger.Info("Best model selected",
		log.PhaseKey, log.PhaseSelection,
		log.ModelNameKey, res.Best.ModelName,
		log.CompositeKey, res.Best.Score(),
	)

	mv, err := tracker.RegisterModel(ctx, res.Best.ArtifactURI, opts.RegisteredName)
	if err != nil {
		return res, err
	}
	res.Registered = mv

	if opts.ResultsDir != "" {
		if err := writeResults(opts, res); err != nil {
			return res, err
		}
		logger.Info("Results saved", log.PathKey, res.ResultsFile)
	}
	return res, nil
}

// trainOne runs one model inside its own tracked run. The run ends FAILED
// when any step after it started fails.
func trainOne(ctx context.Context, opts Options, name string, data train.Data, tracker tracking.Tracker) (mr ModelResult, err error) {
	trainer, err := train.Lookup(name, opts.Common)
	if err != nil {
		return ModelResult{}, err
	}

	run, err := tracker.StartRun(ctx, opts.Experiment, name)
	if err != nil {
		return ModelResult{}, err
	}
	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
		}
		// A cancelled ctx must not leave the run RUNNING.
		if endErr := run.End(context.WithoutCancel(ctx), status); endErr != nil && err == nil {
			err = endErr
		}
	}()

	mr = ModelResult{
		ModelName: name,
		RunID:     run.ID(),
		Params:    trainer.Params().Map(),
		Timestamp: opts.Now(),
	}
	if err := run.LogParams(ctx, mr.Params); err != nil {
		return ModelResult{}, err
	}

	var m model.Regressor
	if err := scierrors.SafeExecute("train."+name, func() (err error) {
		m, err = opts.Train(ctx, name, data, opts.Common)
		return err
	}); err != nil {
		return ModelResult{}, err
	}
	rec, err := opts.Evaluate(m, data.XValid, data.YValid)
	if err != nil {
		return ModelResult{}, scierrors.Wrapf(err, "evaluate %s", name)
	}
	mr.Record = rec
	mr.Metrics = rec.Map()
	mr.Model = m
	if err := run.LogMetrics(ctx, mr.Metrics); err != nil {
		return ModelResult{}, err
	}

	if mr.ArtifactURI, err = run.LogModel(ctx, m, tracking.ModelArtifactPath); err != nil {
		return ModelResult{}, err
	}
	if err := logCurve(ctx, run, name, m); err != nil {
		return ModelResult{}, err
	}
	if err := logImportance(ctx, run, m); err != nil {
		return ModelResult{}, err
	}
	return mr, nil
}

func rows(m *mat.Dense) int {
	if m == nil {
		return 0
	}
	r, _ := m.Dims()
	return r
}
