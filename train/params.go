package train

import (
	"time"

	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Shared training settings.
const (
	EarlyStoppingRounds = 10
	LogPeriod           = 5
)

// CommonParams is the hyperparameter profile shared by lgbm and xgboost.
type CommonParams struct {
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	NEstimators  int     `yaml:"n_estimators" json:"n_estimators"`
	RandomState  int64   `yaml:"random_state" json:"random_state"`

	// TimeLimit caps each model's boosting wall time; 0 means no cap.
	// Every trainer honours it, catboost included.
	TimeLimit time.Duration `yaml:"time_limit" json:"time_limit,omitempty"`
}

// DefaultCommonParams returns {0.05, 1000, 42}.
func DefaultCommonParams() CommonParams {
	return CommonParams{LearningRate: 0.05, NEstimators: 1000, RandomState: 42}
}

// Validate checks the shared profile.
func (c CommonParams) Validate() error {
	if c.LearningRate <= 0 {
		return scierrors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	}
	if c.NEstimators <= 0 {
		return scierrors.NewValidationError("n_estimators", "must be positive", c.NEstimators)
	}
	if c.TimeLimit < 0 {
		return scierrors.NewValidationError("time_limit", "must not be negative", c.TimeLimit)
	}
	return nil
}

// Params is one algorithm's full hyperparameter record.
type Params interface {
	// Map lists the parameters under the names the reference libraries use.
	Map() map[string]any
}

// LGBMParams configures the leaf-wise trainer.
type LGBMParams struct {
	Common          CommonParams
	NumLeaves       int
	Subsample       float64
	SubsampleFreq   int // LightGBM only bags when this is > 0
	ColsampleByTree float64
	MinChildWeight  float64
	MinDataInLeaf   int
	MaxBin          int
}

// DefaultLGBMParams layers the lgbm profile over common.
func DefaultLGBMParams(common CommonParams) LGBMParams {
	return LGBMParams{
		Common:          common,
		NumLeaves:       50,
		Subsample:       0.8,
		SubsampleFreq:   0,
		ColsampleByTree: 0.8,
		MinChildWeight:  300,
		MinDataInLeaf:   20,
		MaxBin:          255,
	}
}

// Map implements Params.
func (p LGBMParams) Map() map[string]any {
	m := map[string]any{
		"learning_rate":    p.Common.LearningRate,
		"n_estimators":     p.Common.NEstimators,
		"random_state":     p.Common.RandomState,
		"num_leaves":       p.NumLeaves,
		"subsample":        p.Subsample,
		"subsample_freq":   p.SubsampleFreq,
		"colsample_bytree": p.ColsampleByTree,
		"min_child_weight": p.MinChildWeight,
		"min_data_in_leaf": p.MinDataInLeaf,
		"max_bin":          p.MaxBin,
	}
	addTimeLimit(m, p.Common.TimeLimit)
	return m
}

// CatBoostParams configures the symmetric trainer. It does not use
// CommonParams.
type CatBoostParams struct {
	Iterations   int
	LearningRate float64
	Depth        int
	LossFunction string
	RandomSeed   int64
	L2LeafReg    float64
	BorderCount  int
	TimeLimit    time.Duration
}

// DefaultCatBoostParams returns the catboost profile.
func DefaultCatBoostParams() CatBoostParams {
	return CatBoostParams{
		Iterations:   1000,
		LearningRate: 0.3,
		Depth:        8,
		LossFunction: "RMSE",
		RandomSeed:   42,
		L2LeafReg:    3,
		BorderCount:  254,
	}
}

// Map implements Params.
func (p CatBoostParams) Map() map[string]any {
	m := map[string]any{
		"iterations":    p.Iterations,
		"learning_rate": p.LearningRate,
		"depth":         p.Depth,
		"loss_function": p.LossFunction,
		"random_seed":   p.RandomSeed,
		"l2_leaf_reg":   p.L2LeafReg,
		"border_count":  p.BorderCount,
	}
	addTimeLimit(m, p.TimeLimit)
	return m
}

// XGBoostParams configures the histogram trainer.
type XGBoostParams struct {
	Common          CommonParams
	MaxDepth        int
	Subsample       float64
	ColsampleByTree float64
	MaxBin          int
	RegLambda       float64
	Gamma           float64
	MinChildWeight  float64
}

// DefaultXGBoostParams layers the xgboost profile over common.
func DefaultXGBoostParams(common CommonParams) XGBoostParams {
	return XGBoostParams{
		Common:          common,
		MaxDepth:        6,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		MaxBin:          256,
		RegLambda:       1,
		Gamma:           0,
		MinChildWeight:  1,
	}
}

// Map implements Params.
func (p XGBoostParams) Map() map[string]any {
	m := map[string]any{
		"learning_rate":    p.Common.LearningRate,
		"n_estimators":     p.Common.NEstimators,
		"random_state":     p.Common.RandomState,
		"max_depth":        p.MaxDepth,
		"subsample":        p.Subsample,
		"colsample_bytree": p.ColsampleByTree,
		"max_bin":          p.MaxBin,
		"tree_method":      "hist",
		"reg_lambda":       p.RegLambda,
		"gamma":            p.Gamma,
		"min_child_weight": p.MinChildWeight,
	}
	addTimeLimit(m, p.Common.TimeLimit)
	return m
}

func addTimeLimit(m map[string]any, limit time.Duration) {
	if limit > 0 {
		m["time_limit"] = limit.String()
	}
}

// boostConfig fills the loop settings every trainer shares.
func boostConfig(algorithm string, rounds int, lr float64, seed int64, metric string, limit time.Duration) gbdt.Config {
	cfg := gbdt.Config{
		Algorithm:           algorithm,
		NumRounds:           rounds,
		LearningRate:        lr,
		Subsample:           1,
		ColsampleByTree:     1,
		EarlyStoppingRounds: EarlyStoppingRounds,
		Metric:              metric,
		LogPeriod:           LogPeriod,
		Seed:                seed,
	}
	if limit > 0 {
		cfg.Callbacks = append(cfg.Callbacks, gbdt.TimeLimit(limit))
	}
	return cfg
}
