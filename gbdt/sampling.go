package gbdt

import (
	"math"
	"math/rand"
	"sort"
)

// Sampler draws the row and column subsets used for each tree. It is seeded
// so two fits with the same seed and data build identical ensembles.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler seeded with seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Rand exposes the underlying generator to engines that need extra draws.
func (s *Sampler) Rand() *rand.Rand { return s.rng }

// Subset returns round(frac*n) distinct indices from [0, n) in ascending
// order, or all of them when frac >= 1. At least one index is returned when
// n > 0.
func (s *Sampler) Subset(n int, frac float64) []int {
	if frac >= 1 || frac <= 0 {
		return Identity(n)
	}
	k := int(math.Round(frac * float64(n)))
	if k < 1 && n > 0 {
		k = 1
	}
	picked := s.rng.Perm(n)[:k]
	sort.Ints(picked)
	return picked
}

// Identity returns 0..n-1.
func Identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
