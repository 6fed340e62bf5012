package gbdt

import (
	"context"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// Dataset is a feature matrix with its target. X is nil when empty.
type Dataset struct {
	Names []string
	X     *mat.Dense
	Y     []float64
}

// NewDataset copies y out of its vector form.
func NewDataset(names []string, X *mat.Dense, y *mat.VecDense) Dataset {
	d := Dataset{Names: names, X: X}
	if y != nil && y.Len() > 0 {
		d.Y = mat.Col(nil, 0, y)
	}
	return d
}

// Rows returns the number of samples.
func (d Dataset) Rows() int {
	if d.X == nil {
		return 0
	}
	r, _ := d.X.Dims()
	return r
}

// Cols returns the number of features, falling back to Names when empty.
func (d Dataset) Cols() int {
	if d.X == nil {
		return len(d.Names)
	}
	_, c := d.X.Dims()
	return c
}

// Round is what a TreeBuilder sees when growing one tree.
type Round struct {
	Iteration int
	Grad      []float64
	Hess      []float64
	Rows      []int // rows sampled for this tree, ascending
	Features  []int // columns sampled for this tree, ascending
	Data      *BinnedData
	Rand      *rand.Rand
}

// TreeBuilder grows one tree per round. Leaf values are raw Newton steps;
// Boost applies the learning rate.
type TreeBuilder interface {
	BuildTree(r *Round) (*Tree, error)
}

// GradientTracker is implemented by builders that take gradients at their
// own per-row predictions instead of the ensemble's (ordered boosting).
type GradientTracker interface {
	Init(n int, initScore float64)
	GradientPredictions() []float64
	Observe(tree *Tree, r *Round, learningRate float64)
}

// Config controls the boosting loop.
type Config struct {
	Algorithm           string
	NumRounds           int
	LearningRate        float64
	Subsample           float64 // row fraction per bagging draw
	SubsampleFreq       int     // redraw rows every k rounds; 0 disables bagging
	ColsampleByTree     float64
	MaxBin              int
	EarlyStoppingRounds int
	Metric              string // MetricL2 or MetricRMSE
	LogPeriod           int
	Seed                int64
	Callbacks           []Callback
	Logger              log.Logger
}

func (c Config) validate() error {
	if c.NumRounds <= 0 {
		return scierrors.NewValidationError("num_rounds", "must be positive", c.NumRounds)
	}
	if c.LearningRate <= 0 {
		return scierrors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	}
	if c.Subsample < 0 || c.Subsample > 1 {
		return scierrors.NewValidationError("subsample", "must be within [0, 1]", c.Subsample)
	}
	if c.ColsampleByTree < 0 || c.ColsampleByTree > 1 {
		return scierrors.NewValidationError("colsample_bytree", "must be within [0, 1]", c.ColsampleByTree)
	}
	if c.Metric != MetricL2 && c.Metric != MetricRMSE {
		return scierrors.NewValidationError("metric", "must be l2 or rmse", c.Metric)
	}
	return nil
}

// Boost fits an ensemble with builder growing the trees. Early stopping
// watches the validation metric; with an empty validation set it is disabled
// and a warning is raised. ctx is checked between rounds.
func Boost(ctx context.Context, cfg Config, builder TreeBuilder, train, valid Dataset) (ens *Ensemble, err error) {
	defer scierrors.Recover(&err, cfg.Algorithm+".Fit")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := train.Rows()
	if n == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "training set has no rows")
	}
	if len(train.Y) != n {
		return nil, scierrors.NewDimensionError(cfg.Algorithm+".Fit", n, len(train.Y), 0)
	}
	if len(train.Names) != train.Cols() {
		return nil, scierrors.NewDimensionError(cfg.Algorithm+".Fit", train.Cols(), len(train.Names), 1)
	}
	if (valid.X != nil || len(valid.Names) > 0) && valid.Cols() != train.Cols() {
		return nil, scierrors.NewDimensionError(cfg.Algorithm+".Fit", train.Cols(), valid.Cols(), 1)
	}
	nValid := valid.Rows()
	if len(valid.Y) != nValid {
		return nil, scierrors.NewDimensionError(cfg.Algorithm+".Fit", nValid, len(valid.Y), 0)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("gbdt")
	}
	logger = logger.With(log.ModelNameKey, cfg.Algorithm)

	var obj L2Objective
	bins := NewBinMapper(train.X, cfg.MaxBin)
	data := bins.Transform(train.X)
	sampler := NewSampler(cfg.Seed)

	ens = &Ensemble{
		Algorithm: cfg.Algorithm,
		Features:  append([]string(nil), train.Names...),
		InitScore: obj.InitScore(train.Y),
		History:   newCurve(cfg.Metric, nValid > 0),
	}

	trainPred := filled(n, ens.InitScore)
	validPred := filled(nValid, ens.InitScore)
	grad := make([]float64, n)
	hess := make([]float64, n)

	tracker, ordered := builder.(GradientTracker)
	if ordered {
		tracker.Init(n, ens.InitScore)
	}

	es := NewEarlyStopping(cfg.EarlyStoppingRounds)
	if nValid == 0 && es.Enabled {
		scierrors.Warn(scierrors.NewEarlyStoppingDisabledWarning(cfg.Algorithm, "empty validation set"))
		es = NewEarlyStopping(0)
	}

	callbacks := NewCallbackList(cfg.Algorithm, append([]Callback{LogEvaluation(logger, cfg.LogPeriod)}, cfg.Callbacks...)...)
	start := time.Now()
	allRows := Identity(n)
	rows := allRows

	for it := 0; it < cfg.NumRounds; it++ {
		if err := ctx.Err(); err != nil {
			return nil, scierrors.Wrapf(err, "%s stopped at round %d", cfg.Algorithm, it)
		}

		gradBase := trainPred
		if ordered {
			gradBase = tracker.GradientPredictions()
		}
		obj.Gradients(gradBase, train.Y, grad, hess)

		if cfg.SubsampleFreq > 0 && it%cfg.SubsampleFreq == 0 {
			rows = sampler.Subset(n, cfg.Subsample)
		} else if cfg.SubsampleFreq <= 0 {
			rows = allRows
		}
		round := &Round{
			Iteration: it,
			Grad:      grad,
			Hess:      hess,
			Rows:      rows,
			Features:  sampler.Subset(train.Cols(), cfg.ColsampleByTree),
			Data:      data,
			Rand:      sampler.Rand(),
		}

		tree, err := builder.BuildTree(round)
		if err != nil {
			return nil, scierrors.Wrapf(err, "%s round %d", cfg.Algorithm, it)
		}
		if ordered {
			tracker.Observe(tree, round, cfg.LearningRate)
		}
		tree.Scale(cfg.LearningRate)
		ens.Trees = append(ens.Trees, *tree)

		addTree(tree, train.X, trainPred)
		if nValid > 0 {
			addTree(tree, valid.X, validPred)
		}

		results, err := evalRound(cfg.Metric, trainPred, train.Y, validPred, valid.Y)
		if err != nil {
			return nil, err
		}
		ens.History.Train = append(ens.History.Train, results[0].Value)
		if nValid > 0 {
			ens.History.Valid = append(ens.History.Valid, results[1].Value)
			if err := scierrors.CheckScalar(cfg.Algorithm+" valid "+cfg.Metric, results[1].Value, it); err != nil {
				return nil, err
			}
		}

		if err := callbacks.AfterIteration(it, time.Since(start), results); err != nil {
			return nil, err
		}
		if callbacks.ShouldStop() {
			break
		}
		if nValid > 0 && es.Update(it, results[1].Value) {
			logger.Info("Early stopping",
				log.IterationKey, it+1,
				log.BestIterationKey, es.BestIteration+1,
				log.ValidLossKey, es.BestScore,
			)
			break
		}
	}

	if es.Enabled && es.BestIteration >= 0 {
		ens.Trees = ens.Trees[:es.BestIteration+1]
	}
	ens.BestIteration = len(ens.Trees)
	ens.SetFitted()

	logger.Info("Training finished",
		log.BestIterationKey, ens.BestIteration,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ens, nil
}

func newCurve(metric string, withValid bool) model.LearningCurve {
	c := model.LearningCurve{Metric: metric, Train: []float64{}}
	if withValid {
		c.Valid = []float64{}
	}
	return c
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// addTree adds the tree's output for every row of X into pred.
func addTree(t *Tree, X *mat.Dense, pred []float64) {
	for i := range pred {
		pred[i] += t.Predict(X.RawRowView(i))
	}
}

func evalRound(metric string, trainPred, yTrain, validPred, yValid []float64) ([]EvalResult, error) {
	tv, err := Evaluate(metric, trainPred, yTrain)
	if err != nil {
		return nil, err
	}
	results := []EvalResult{{Dataset: "train", Metric: metric, Value: tv}}
	if len(yValid) > 0 {
		vv, err := Evaluate(metric, validPred, yValid)
		if err != nil {
			return nil, err
		}
		results = append(results, EvalResult{Dataset: "valid", Metric: metric, Value: vv})
	}
	return results, nil
}
