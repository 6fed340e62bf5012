package train

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/gbdt"
	"github.com/YuminosukeSato/salesforecast/gbdt/symmetric"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// CatBoostTrainer grows symmetric trees with ordered boosting and stops on
// validation RMSE.
type CatBoostTrainer struct {
	Profile CatBoostParams
}

// Name implements Trainer.
func (t *CatBoostTrainer) Name() string { return CatBoost }

// Params implements Trainer.
func (t *CatBoostTrainer) Params() Params { return t.Profile }

// Fit implements Trainer.
func (t *CatBoostTrainer) Fit(ctx context.Context, data Data) (model.Regressor, error) {
	p := t.Profile
	if !strings.EqualFold(p.LossFunction, "RMSE") {
		return nil, scierrors.NewValidationError("loss_function", "only RMSE is supported", p.LossFunction)
	}
	cfg := boostConfig(CatBoost, p.Iterations, p.LearningRate, p.RandomSeed, gbdt.MetricRMSE, p.TimeLimit)
	cfg.MaxBin = p.BorderCount + 1

	tree := symmetric.Params{
		Depth:      p.Depth,
		L2LeafReg:  p.L2LeafReg,
		RandomSeed: p.RandomSeed,
		Ordered:    true,
	}
	return fit(ctx, CatBoost, data, func(train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
		return symmetric.Train(ctx, cfg, tree, train, valid)
	})
}
