package train

import (
	"context"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/gbdt"
	"github.com/YuminosukeSato/salesforecast/gbdt/leafwise"
)

// LGBMTrainer grows leaf-wise trees. Both the training and validation sets
// are evaluated each round with the l2 metric; the validation one drives
// early stopping.
type LGBMTrainer struct {
	Profile LGBMParams
}

// Name implements Trainer.
func (t *LGBMTrainer) Name() string { return LGBM }

// Params implements Trainer.
func (t *LGBMTrainer) Params() Params { return t.Profile }

// Fit implements Trainer.
func (t *LGBMTrainer) Fit(ctx context.Context, data Data) (model.Regressor, error) {
	p := t.Profile
	if err := p.Common.Validate(); err != nil {
		return nil, err
	}
	cfg := boostConfig(LGBM, p.Common.NEstimators, p.Common.LearningRate, p.Common.RandomState, gbdt.MetricL2, p.Common.TimeLimit)
	cfg.Subsample = p.Subsample
	cfg.SubsampleFreq = p.SubsampleFreq
	cfg.ColsampleByTree = p.ColsampleByTree
	cfg.MaxBin = p.MaxBin

	tree := leafwise.Params{
		NumLeaves:      p.NumLeaves,
		MaxDepth:       -1,
		MinChildWeight: p.MinChildWeight,
		MinDataInLeaf:  p.MinDataInLeaf,
	}
	return fit(ctx, LGBM, data, func(train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
		return leafwise.Train(ctx, cfg, tree, train, valid)
	})
}
