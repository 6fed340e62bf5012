// Package symmetric grows oblivious trees, where every node on a level tests
// the same feature and threshold, and trains them with ordered boosting as
// CatBoost does: gradients for a row come from predictions built only from
// rows that precede it in a fixed random permutation.
package symmetric

import (
	"context"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/salesforecast/core/parallel"
	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Params controls tree shape and regularisation.
type Params struct {
	Depth      int
	L2LeafReg  float64
	RandomSeed int64
	// Ordered switches ordered boosting on. Without it gradients are taken
	// at the ensemble's own predictions.
	Ordered bool
}

// DefaultParams mirrors CatBoost's defaults.
func DefaultParams() Params {
	return Params{Depth: 6, L2LeafReg: 3, RandomSeed: 0, Ordered: true}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Depth < 1 || p.Depth > 16 {
		return scierrors.NewValidationError("depth", "must be within [1, 16]", p.Depth)
	}
	if p.L2LeafReg < 0 {
		return scierrors.NewValidationError("l2_leaf_reg", "must be non-negative", p.L2LeafReg)
	}
	return nil
}

// Builder implements gbdt.TreeBuilder and gbdt.GradientTracker.
type Builder struct {
	params Params

	levels  []gbdt.Split // splits of the last tree, one per level
	perm    []int
	ordered []float64
}

// NewBuilder validates p and returns a builder.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Builder{params: p}, nil
}

// levelScore is the candidate split for one level.
type levelScore struct {
	feature int
	bin     int
	gain    float64
}

// BuildTree implements gbdt.TreeBuilder.
func (b *Builder) BuildTree(r *gbdt.Round) (*gbdt.Tree, error) {
	lambda := b.params.L2LeafReg
	leafOf := make([]int, r.Data.Rows)
	b.levels = b.levels[:0]

	for d := 0; d < b.params.Depth; d++ {
		numLeaves := 1 << d
		best := b.bestLevelSplit(r, leafOf, numLeaves)
		if best.feature < 0 {
			break
		}
		s := gbdt.Split{
			Feature:   best.feature,
			Bin:       best.bin,
			Threshold: r.Data.Mapper.Threshold(best.feature, best.bin),
			Gain:      best.gain,
		}
		b.levels = append(b.levels, s)
		col := r.Data.Cols[best.feature]
		for _, i := range r.Rows {
			if int(col[i]) > best.bin {
				leafOf[i] |= 1 << d
			}
		}
	}

	depth := len(b.levels)
	nLeaves := 1 << depth
	grad := make([]float64, nLeaves)
	hess := make([]float64, nLeaves)
	count := make([]int, nLeaves)
	for _, i := range r.Rows {
		grad[leafOf[i]] += r.Grad[i]
		hess[leafOf[i]] += r.Hess[i]
		count[leafOf[i]]++
	}
	values := make([]float64, nLeaves)
	for l := range values {
		values[l] = gbdt.LeafValue(grad[l], hess[l], lambda)
	}
	return expand(b.levels, values, count), nil
}

// bestLevelSplit picks the (feature, bucket) that maximises the summed gain
// over all current leaves.
func (b *Builder) bestLevelSplit(r *gbdt.Round, leafOf []int, numLeaves int) levelScore {
	lambda := b.params.L2LeafReg
	results := make([]levelScore, len(r.Features))

	parallel.ParallelizeWithThreshold(len(r.Features), 2, func(start, end int) {
		for k := start; k < end; k++ {
			f := r.Features[k]
			nb := r.Data.Mapper.NumBins(f)
			g := make([]float64, numLeaves*nb)
			h := make([]float64, numLeaves*nb)
			col := r.Data.Cols[f]
			for _, i := range r.Rows {
				at := leafOf[i]*nb + int(col[i])
				g[at] += r.Grad[i]
				h[at] += r.Hess[i]
			}

			gTot := make([]float64, numLeaves)
			hTot := make([]float64, numLeaves)
			var base float64
			for l := 0; l < numLeaves; l++ {
				for bin := 0; bin < nb; bin++ {
					gTot[l] += g[l*nb+bin]
					hTot[l] += h[l*nb+bin]
				}
				base += gbdt.LeafScore(gTot[l], hTot[l], lambda)
			}

			best := levelScore{feature: -1, gain: math.Inf(-1)}
			gl := make([]float64, numLeaves)
			hl := make([]float64, numLeaves)
			for bin := 0; bin+1 < nb; bin++ {
				var score float64
				for l := 0; l < numLeaves; l++ {
					gl[l] += g[l*nb+bin]
					hl[l] += h[l*nb+bin]
					score += gbdt.LeafScore(gl[l], hl[l], lambda) +
						gbdt.LeafScore(gTot[l]-gl[l], hTot[l]-hl[l], lambda)
				}
				if gain := 0.5 * (score - base); gain > best.gain {
					best = levelScore{feature: f, bin: bin, gain: gain}
				}
			}
			results[k] = best
		}
	})

	best := levelScore{feature: -1, gain: 1e-12}
	for _, s := range results {
		if s.feature < 0 {
			continue
		}
		if s.gain > best.gain || (s.gain == best.gain && best.feature >= 0 && s.feature < best.feature) {
			best = s
		}
	}
	return best
}

// expand writes an oblivious tree as an ordinary binary tree. Leaf index bit d
// is set when a row went right at level d.
func expand(levels []gbdt.Split, values []float64, count []int) *gbdt.Tree {
	depth := len(levels)
	subtotal := func(d, prefix int) int {
		mask := 1<<d - 1
		n := 0
		for l, c := range count {
			if l&mask == prefix {
				n += c
			}
		}
		return n
	}

	tb := gbdt.NewBuilder(0, subtotal(0, 0))
	if depth == 0 {
		tb.SetValue(0, values[0])
		return tb.Tree()
	}

	var grow func(node, d, prefix int)
	grow = func(node, d, prefix int) {
		if d == depth {
			tb.SetValue(node, values[prefix])
			return
		}
		s := levels[d]
		s.LeftCount = subtotal(d+1, prefix)
		s.RightCount = subtotal(d+1, prefix|1<<d)
		left, right := tb.Split(node, s, 0, 0)
		grow(left, d+1, prefix)
		grow(right, d+1, prefix|1<<d)
	}
	grow(0, 0, 0)
	return tb.Tree()
}

// Init implements gbdt.GradientTracker.
func (b *Builder) Init(n int, initScore float64) {
	rng := rand.New(rand.NewSource(b.params.RandomSeed))
	b.perm = rng.Perm(n)
	b.ordered = make([]float64, n)
	for i := range b.ordered {
		b.ordered[i] = initScore
	}
}

// GradientPredictions implements gbdt.GradientTracker.
func (b *Builder) GradientPredictions() []float64 {
	return b.ordered
}

// Observe implements gbdt.GradientTracker. Each row's ordered prediction moves
// by the leaf value estimated from the rows before it in the permutation, so
// a row never contributes to its own gradient estimate.
func (b *Builder) Observe(_ *gbdt.Tree, r *gbdt.Round, learningRate float64) {
	depth := len(b.levels)
	nLeaves := 1 << depth
	sumG := make([]float64, nLeaves)
	sumH := make([]float64, nLeaves)

	for _, i := range b.perm {
		leaf := 0
		for d, s := range b.levels {
			if int(r.Data.Cols[s.Feature][i]) > s.Bin {
				leaf |= 1 << d
			}
		}
		b.ordered[i] += learningRate * gbdt.LeafValue(sumG[leaf], sumH[leaf], b.params.L2LeafReg)
		sumG[leaf] += r.Grad[i]
		sumH[leaf] += r.Hess[i]
	}
}

// plainBuilder hides the GradientTracker methods when ordered boosting is off.
type plainBuilder struct{ b *Builder }

func (p plainBuilder) BuildTree(r *gbdt.Round) (*gbdt.Tree, error) { return p.b.BuildTree(r) }

// Train boosts an ensemble of oblivious trees.
func Train(ctx context.Context, cfg gbdt.Config, p Params, train, valid gbdt.Dataset) (*gbdt.Ensemble, error) {
	b, err := NewBuilder(p)
	if err != nil {
		return nil, err
	}
	if !p.Ordered {
		return gbdt.Boost(ctx, cfg, plainBuilder{b}, train, valid)
	}
	return gbdt.Boost(ctx, cfg, b, train, valid)
}
