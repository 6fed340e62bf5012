package gbdt

import (
	"math"

	"github.com/YuminosukeSato/salesforecast/core/parallel"
)

// SplitParams bound which splits are admissible.
type SplitParams struct {
	Lambda         float64 // L2 penalty on leaf values
	Gamma          float64 // minimum gain to keep a split
	MinChildWeight float64 // minimum hessian sum per child
	MinDataInLeaf  int     // minimum rows per child
}

// Split is the best admissible split found for a set of rows.
type Split struct {
	Feature    int
	Bin        int
	Threshold  float64
	Gain       float64
	LeftGrad   float64
	LeftHess   float64
	LeftCount  int
	RightGrad  float64
	RightHess  float64
	RightCount int
}

// Valid reports whether a split was found.
func (s Split) Valid() bool { return s.Feature >= 0 }

// noSplit marks "nothing admissible".
var noSplit = Split{Feature: -1, Gain: math.Inf(-1)}

// Histogram accumulates gradient statistics per bucket of one feature.
type Histogram struct {
	Grad  []float64
	Hess  []float64
	Count []int
}

// BuildHistogram sums grad and hess per bucket of feature f over rows.
func BuildHistogram(data *BinnedData, f int, rows []int, grad, hess []float64) Histogram {
	nb := data.Mapper.NumBins(f)
	h := Histogram{Grad: make([]float64, nb), Hess: make([]float64, nb), Count: make([]int, nb)}
	col := data.Cols[f]
	for _, i := range rows {
		b := col[i]
		h.Grad[b] += grad[i]
		h.Hess[b] += hess[i]
		h.Count[b]++
	}
	return h
}

// LeafScore is G²/(H+λ), the loss reduction of a Newton step on a leaf.
func LeafScore(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

// LeafValue is the Newton step −G/(H+λ).
func LeafValue(g, h, lambda float64) float64 {
	den := h + lambda
	if den <= 0 {
		return 0
	}
	return -g / den
}

// SplitGain is ½·(GL²/(HL+λ) + GR²/(HR+λ) − G²/(H+λ)) − γ.
func SplitGain(gl, hl, gr, hr, lambda, gamma float64) float64 {
	return 0.5*(LeafScore(gl, hl, lambda)+LeafScore(gr, hr, lambda)-LeafScore(gl+gr, hl+hr, lambda)) - gamma
}

// bestSplitInHistogram scans bucket boundaries of one feature.
func bestSplitInHistogram(data *BinnedData, f int, h Histogram, p SplitParams) Split {
	var gTotal, hTotal float64
	nTotal := 0
	for b := range h.Grad {
		gTotal += h.Grad[b]
		hTotal += h.Hess[b]
		nTotal += h.Count[b]
	}

	best := noSplit
	var gl, hl float64
	nl := 0
	for b := 0; b+1 < len(h.Grad); b++ {
		gl += h.Grad[b]
		hl += h.Hess[b]
		nl += h.Count[b]
		if h.Count[b] == 0 && b > 0 {
			continue
		}
		nr := nTotal - nl
		gr, hr := gTotal-gl, hTotal-hl
		if nl < p.MinDataInLeaf || nr < p.MinDataInLeaf || nl == 0 || nr == 0 {
			continue
		}
		if hl < p.MinChildWeight || hr < p.MinChildWeight {
			continue
		}
		gain := SplitGain(gl, hl, gr, hr, p.Lambda, p.Gamma)
		if gain > best.Gain {
			best = Split{
				Feature: f, Bin: b, Threshold: data.Mapper.Threshold(f, b), Gain: gain,
				LeftGrad: gl, LeftHess: hl, LeftCount: nl,
				RightGrad: gr, RightHess: hr, RightCount: nr,
			}
		}
	}
	return best
}

// FindBestSplit searches the given features in parallel and returns the
// split with the highest positive gain. Ties go to the lower feature index so
// the result does not depend on goroutine scheduling.
func FindBestSplit(data *BinnedData, rows, features []int, grad, hess []float64, p SplitParams) Split {
	if len(rows) < 2 || len(features) == 0 {
		return noSplit
	}
	results := make([]Split, len(features))
	parallel.ParallelizeWithThreshold(len(features), 2, func(start, end int) {
		for k := start; k < end; k++ {
			f := features[k]
			h := BuildHistogram(data, f, rows, grad, hess)
			results[k] = bestSplitInHistogram(data, f, h, p)
		}
	})

	best := noSplit
	for _, s := range results {
		if !s.Valid() || s.Gain <= 0 {
			continue
		}
		if s.Gain > best.Gain || (s.Gain == best.Gain && s.Feature < best.Feature) {
			best = s
		}
	}
	return best
}

// Partition splits rows by s, preserving their relative order.
func Partition(data *BinnedData, rows []int, s Split) (left, right []int) {
	col := data.Cols[s.Feature]
	left = make([]int, 0, s.LeftCount)
	right = make([]int, 0, s.RightCount)
	for _, i := range rows {
		if int(col[i]) <= s.Bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// SumGradients returns ΣG and ΣH over rows.
func SumGradients(rows []int, grad, hess []float64) (g, h float64) {
	for _, i := range rows {
		g += grad[i]
		h += hess[i]
	}
	return g, h
}
