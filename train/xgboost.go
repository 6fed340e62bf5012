package train

import (
	"context"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/gbdt"
	"github.com/YuminosukeSato/salesforecast/gbdt/histogram"
)

// XGBoostTrainer grows depth-wise histogram trees, redrawing the row and
// column samples for every tree, and stops on validation RMSE.
type XGBoostTrainer struct {
	Profile XGBoostParams
}

// Name implements Trainer.
func (t *XGBoostTrainer) Name() string { return XGBoost }

// Params implements Trainer.
func (t *XGBoostTrainer) Params() Params { return t.Profile }

// Fit implements Trainer.
func (t *XGBoostTrainer) Fit(ctx context.Context, data Data) (model.Regressor, error) {
	p := t.Profile
	if err := p.Common.Validate(); err != nil {
		return nil, err
	}
	cfg := boostConfig(XGBoost, p.Common.NEstimators, p.Common.LearningRate, p.Common.RandomState, gbdt.MetricRMSE, p.Common.TimeLimit)
	cfg.Subsample = p.Subsample
	cfg.SubsampleFreq = 1
	cfg.ColsampleByTree = p.ColsampleByTree
	cfg.MaxBin = p.MaxBin

	tree := histogram.Params{
		MaxDepth:       p.MaxDepth,
		MinChildWeight: p.MinChildWeight,
		Lambda:         p.RegLambda,
		Gamma:          p.Gamma,
	}
	return fit(ctx, XGBoost, data, func(train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
		return histogram.Train(ctx, cfg, tree, train, valid)
	})
}
