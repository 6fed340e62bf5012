package leafwise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func TestTrainLearnsSignal(t *testing.T) {
	train, valid := synthetic(400, 0), synthetic(100, 400)
	p := DefaultParams()
	p.NumLeaves = 8
	p.MinDataInLeaf = 5

	ens, err := Train(context.Background(), testConfig("lgbm"), p, train, valid)
	require.NoError(t, err)

	pred, err := ens.Predict(valid.X)
	require.NoError(t, err)
	assert.Less(t, rmseOf(pred, valid.Y), 0.2*baselineRMSE(train, valid))

	for _, tree := range ens.Trees {
		assert.LessOrEqual(t, tree.NumLeaves(), 8)
	}
	imp := ens.FeatureImportance()
	assert.Greater(t, imp["x1"], imp["x2"])
	assert.Greater(t, imp["x0"], imp["x2"])
}

func TestMinChildWeightLimitsGrowth(t *testing.T) {
	train := synthetic(100, 0)
	p := DefaultParams()
	p.MinChildWeight = 300 // more hessian than rows exist

	cfg := testConfig("lgbm")
	cfg.NumRounds = 5
	ens, err := Train(context.Background(), cfg, p, train, synthetic(20, 100))
	require.NoError(t, err)
	for _, tree := range ens.Trees {
		assert.Equal(t, 1, tree.NumLeaves())
	}
}

func TestMaxDepth(t *testing.T) {
	p := DefaultParams()
	p.NumLeaves = 64
	p.MaxDepth = 2
	p.MinDataInLeaf = 1

	cfg := testConfig("lgbm")
	cfg.NumRounds = 5
	ens, err := Train(context.Background(), cfg, p, synthetic(200, 0), synthetic(20, 200))
	require.NoError(t, err)
	for _, tree := range ens.Trees {
		assert.LessOrEqual(t, tree.Depth(), 2)
		assert.LessOrEqual(t, tree.NumLeaves(), 4)
	}
}

func TestValidate(t *testing.T) {
	p := DefaultParams()
	p.NumLeaves = 1
	_, err := NewBuilder(p)
	var ve *scierrors.ValidationError
	require.True(t, scierrors.As(err, &ve))
	assert.Equal(t, "num_leaves", ve.ParamName)
}
