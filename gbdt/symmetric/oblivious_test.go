package symmetric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/salesforecast/gbdt"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// levelFeatures collects the feature tested at each depth of a tree.
func levelFeatures(tree gbdt.Tree) map[int]map[int]bool {
	out := map[int]map[int]bool{}
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		n := tree.Nodes[idx]
		if n.IsLeaf() {
			return
		}
		if out[depth] == nil {
			out[depth] = map[int]bool{}
		}
		out[depth][n.Feature] = true
		walk(n.Left, depth+1)
		walk(n.Right, depth+1)
	}
	walk(0, 0)
	return out
}

func TestTrainLearnsSignal(t *testing.T) {
	train, valid := synthetic(400, 0), synthetic(100, 400)
	p := DefaultParams()
	p.Depth = 4
	p.RandomSeed = 42

	cfg := testConfig("catboost")
	cfg.LearningRate = 0.3
	ens, err := Train(context.Background(), cfg, p, train, valid)
	require.NoError(t, err)

	pred, err := ens.Predict(valid.X)
	require.NoError(t, err)
	assert.Less(t, rmseOf(pred, valid.Y), 0.2*baselineRMSE(train, valid))
}

func TestTreesAreSymmetric(t *testing.T) {
	p := DefaultParams()
	p.Depth = 3

	cfg := testConfig("catboost")
	cfg.NumRounds = 10
	ens, err := Train(context.Background(), cfg, p, synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)

	for _, tree := range ens.Trees {
		d := tree.Depth()
		assert.LessOrEqual(t, d, 3)
		assert.Equal(t, 1<<d, tree.NumLeaves(), "oblivious trees are complete")
		for depth, feats := range levelFeatures(tree) {
			assert.Len(t, feats, 1, "level %d uses one feature", depth)
		}
	}
}

func TestOrderedBoostingChangesGradients(t *testing.T) {
	p := DefaultParams()
	p.Depth = 3
	cfg := testConfig("catboost")
	cfg.NumRounds = 15
	cfg.EarlyStoppingRounds = 0

	ordered, err := Train(context.Background(), cfg, p, synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)

	p.Ordered = false
	plain, err := Train(context.Background(), cfg, p, synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)

	assert.Equal(t, ordered.Trees[0], plain.Trees[0], "first round starts from the same predictions")
	assert.NotEqual(t, ordered.Trees, plain.Trees)
}

func TestExpandCounts(t *testing.T) {
	levels := []gbdt.Split{
		{Feature: 0, Threshold: 0.5},
		{Feature: 1, Threshold: 1.5},
	}
	// leaf index bit d is set when the row went right at level d
	tree := expand(levels, []float64{10, 20, 30, 40}, []int{1, 2, 3, 4})

	assert.Equal(t, 10.0, tree.Predict([]float64{0, 0}))
	assert.Equal(t, 20.0, tree.Predict([]float64{1, 0}))
	assert.Equal(t, 30.0, tree.Predict([]float64{0, 2}))
	assert.Equal(t, 40.0, tree.Predict([]float64{1, 2}))
	assert.Equal(t, 10, tree.Nodes[0].Count)
}

func TestValidate(t *testing.T) {
	p := DefaultParams()
	p.Depth = 0
	_, err := NewBuilder(p)
	var ve *scierrors.ValidationError
	require.True(t, scierrors.As(err, &ve))
}
