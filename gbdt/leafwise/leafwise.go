// Package leafwise grows trees best-first: the leaf with the largest split
// gain is expanded next until the tree reaches NumLeaves. This is the growth
// strategy of LightGBM.
package leafwise

import (
	"context"

	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Params controls tree shape.
type Params struct {
	NumLeaves      int
	MaxDepth       int     // <= 0 means unlimited
	MinChildWeight float64 // minimum hessian sum per leaf
	MinDataInLeaf  int
	Lambda         float64
}

// DefaultParams mirrors LightGBM's defaults.
func DefaultParams() Params {
	return Params{
		NumLeaves:      31,
		MaxDepth:       -1,
		MinChildWeight: 1e-3,
		MinDataInLeaf:  20,
		Lambda:         0,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.NumLeaves < 2 {
		return scierrors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	}
	if p.MinChildWeight < 0 {
		return scierrors.NewValidationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	}
	if p.MinDataInLeaf < 0 {
		return scierrors.NewValidationError("min_data_in_leaf", "must be non-negative", p.MinDataInLeaf)
	}
	if p.Lambda < 0 {
		return scierrors.NewValidationError("lambda_l2", "must be non-negative", p.Lambda)
	}
	return nil
}

func (p Params) splitParams() gbdt.SplitParams {
	return gbdt.SplitParams{
		Lambda:         p.Lambda,
		MinChildWeight: p.MinChildWeight,
		MinDataInLeaf:  p.MinDataInLeaf,
	}
}

// Builder implements gbdt.TreeBuilder.
type Builder struct {
	params Params
}

// NewBuilder validates p and returns a builder.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Builder{params: p}, nil
}

// candidate is a leaf that may still be split.
type candidate struct {
	node  int
	rows  []int
	depth int
	split gbdt.Split
}

// BuildTree implements gbdt.TreeBuilder.
func (b *Builder) BuildTree(r *gbdt.Round) (*gbdt.Tree, error) {
	sp := b.params.splitParams()

	g, h := gbdt.SumGradients(r.Rows, r.Grad, r.Hess)
	tb := gbdt.NewBuilder(gbdt.LeafValue(g, h, sp.Lambda), len(r.Rows))

	open := []candidate{{node: 0, rows: r.Rows, depth: 0}}
	open[0].split = b.findSplit(r, open[0].rows, 0)

	for leaves := 1; leaves < b.params.NumLeaves; leaves++ {
		pick := -1
		for k, c := range open {
			if !c.split.Valid() {
				continue
			}
			if pick < 0 || c.split.Gain > open[pick].split.Gain {
				pick = k
			}
		}
		if pick < 0 {
			break
		}

		c := open[pick]
		open = append(open[:pick], open[pick+1:]...)

		s := c.split
		left, right := tb.Split(c.node, s,
			gbdt.LeafValue(s.LeftGrad, s.LeftHess, sp.Lambda),
			gbdt.LeafValue(s.RightGrad, s.RightHess, sp.Lambda))
		lrows, rrows := gbdt.Partition(r.Data, c.rows, s)

		for _, child := range []candidate{
			{node: left, rows: lrows, depth: c.depth + 1},
			{node: right, rows: rrows, depth: c.depth + 1},
		} {
			child.split = b.findSplit(r, child.rows, child.depth)
			open = append(open, child)
		}
	}
	return tb.Tree(), nil
}

func (b *Builder) findSplit(r *gbdt.Round, rows []int, depth int) gbdt.Split {
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return gbdt.Split{Feature: -1}
	}
	return gbdt.FindBestSplit(r.Data, rows, r.Features, r.Grad, r.Hess, b.params.splitParams())
}

// Train boosts an ensemble of leaf-wise trees.
func Train(ctx context.Context, cfg gbdt.Config, p Params, train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
	b, err := NewBuilder(p)
	if err != nil {
		return nil, err
	}
	return gbdt.Boost(ctx, cfg, b, train, valid)
}
