// Package train adapts the boosting engines to the three model tokens the
// pipeline knows about ("lgbm", "catboost", "xgboost"), each with a fixed
// hyperparameter profile, and dispatches a token to its trainer.
package train

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// Model tokens.
const (
	LGBM     = "lgbm"
	CatBoost = "catboost"
	XGBoost  = "xgboost"
)

// Data is the prepared train/validation split handed to every trainer.
type Data struct {
	FeatureNames []string
	XTrain       *mat.Dense
	YTrain       *mat.VecDense
	XValid       *mat.Dense
	YValid       *mat.VecDense
}

// FromPrepared converts the dataset package's split into Data.
func FromPrepared(p *dataset.Prepared) Data {
	return Data{
		FeatureNames: p.Train.Names,
		XTrain:       p.Train.X,
		YTrain:       p.YTrain,
		XValid:       p.Valid.X,
		YValid:       p.YValid,
	}
}

func (d Data) datasets() (train, valid gbdt.Dataset) {
	return gbdt.NewDataset(d.FeatureNames, d.XTrain, d.YTrain),
		gbdt.NewDataset(d.FeatureNames, d.XValid, d.YValid)
}

// Trainer fits one algorithm with its fixed profile.
type Trainer interface {
	Name() string
	Params() Params
	Fit(ctx context.Context, data Data) (model.Regressor, error)
}

// Names returns the supported tokens in pipeline order.
func Names() []string {
	return []string{LGBM, CatBoost, XGBoost}
}

// Lookup returns the trainer for name without fitting it.
func Lookup(name string, common CommonParams) (Trainer, error) {
	switch name {
	case LGBM:
		return &LGBMTrainer{Profile: DefaultLGBMParams(common)}, nil
	case CatBoost:
		profile := DefaultCatBoostParams()
		profile.TimeLimit = common.TimeLimit
		return &CatBoostTrainer{Profile: profile}, nil
	case XGBoost:
		return &XGBoostTrainer{Profile: DefaultXGBoostParams(common)}, nil
	default:
		return nil, scierrors.NewUnknownModelError(name, Names())
	}
}

// Dispatch fits the trainer registered under name. Tokens are case-sensitive.
func Dispatch(ctx context.Context, name string, data Data, common CommonParams) (model.Regressor, error) {
	t, err := Lookup(name, common)
	if err != nil {
		return nil, err
	}
	return t.Fit(ctx, data)
}

// fit runs one engine and wraps any failure as a TrainingFailure.
func fit(ctx context.Context, name string, data Data, run func(train, valid gbdt.Dataset) (*gbdt.Ensemble, error)) (model.Regressor, error) {
	logger := log.GetLoggerWithName("train").With(log.ModelNameKey, name)
	trainSet, validSet := data.datasets()
	logger.Info("Fitting model",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, trainSet.Rows(),
		log.FeaturesKey, trainSet.Cols(),
	)

	if trainSet.X != nil && validSet.X != nil && trainSet.Cols() != validSet.Cols() {
		return nil, scierrors.NewTrainingFailure(name,
			scierrors.NewDimensionError(name+".Fit", trainSet.Cols(), validSet.Cols(), 1))
	}

	start := time.Now()
	ens, err := run(trainSet, validSet)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, scierrors.NewTrainingFailure(name, err)
	}
	logger.Info("Model fitted",
		log.BestIterationKey, ens.BestIteration,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ens, nil
}
