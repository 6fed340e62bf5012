// Package histogram grows trees level by level to a fixed maximum depth using
// bucketed feature histograms, the "hist" tree method of XGBoost.
package histogram

import (
	"context"

	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Params controls tree shape and regularisation.
type Params struct {
	MaxDepth       int
	MinChildWeight float64
	Lambda         float64 // reg_lambda
	Gamma          float64 // min_split_loss
}

// DefaultParams mirrors XGBoost's defaults.
func DefaultParams() Params {
	return Params{MaxDepth: 6, MinChildWeight: 1, Lambda: 1, Gamma: 0}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.MaxDepth < 1 {
		return scierrors.NewValidationError("max_depth", "must be at least 1", p.MaxDepth)
	}
	if p.MinChildWeight < 0 {
		return scierrors.NewValidationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	}
	if p.Lambda < 0 {
		return scierrors.NewValidationError("reg_lambda", "must be non-negative", p.Lambda)
	}
	if p.Gamma < 0 {
		return scierrors.NewValidationError("gamma", "must be non-negative", p.Gamma)
	}
	return nil
}

// Builder implements gbdt.TreeBuilder.
type Builder struct {
	params Params
	split  gbdt.SplitParams
}

// NewBuilder validates p and returns a builder.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		params: p,
		split: gbdt.SplitParams{
			Lambda:         p.Lambda,
			Gamma:          p.Gamma,
			MinChildWeight: p.MinChildWeight,
			MinDataInLeaf:  1,
		},
	}, nil
}

// BuildTree implements gbdt.TreeBuilder.
func (b *Builder) BuildTree(r *gbdt.Round) (*gbdt.Tree, error) {
	g, h := gbdt.SumGradients(r.Rows, r.Grad, r.Hess)
	tb := gbdt.NewBuilder(gbdt.LeafValue(g, h, b.params.Lambda), len(r.Rows))

	type pending struct {
		node int
		rows []int
	}
	level := []pending{{node: 0, rows: r.Rows}}

	for depth := 0; depth < b.params.MaxDepth && len(level) > 0; depth++ {
		var next []pending
		for _, p := range level {
			s := gbdt.FindBestSplit(r.Data, p.rows, r.Features, r.Grad, r.Hess, b.split)
			if !s.Valid() {
				continue
			}
			left, right := tb.Split(p.node, s,
				gbdt.LeafValue(s.LeftGrad, s.LeftHess, b.params.Lambda),
				gbdt.LeafValue(s.RightGrad, s.RightHess, b.params.Lambda))
			lrows, rrows := gbdt.Partition(r.Data, p.rows, s)
			next = append(next, pending{left, lrows}, pending{right, rrows})
		}
		level = next
	}
	return tb.Tree(), nil
}

// Train boosts an ensemble of depth-wise histogram trees.
func Train(ctx context.Context, cfg gbdt.Config, p Params, train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
	b, err := NewBuilder(p)
	if err != nil {
		return nil, err
	}
	return gbdt.Boost(ctx, cfg, b, train, valid)
}
