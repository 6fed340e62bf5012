package histogram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func TestTrainLearnsSignal(t *testing.T) {
	train, valid := synthetic(400, 0), synthetic(100, 400)

	ens, err := Train(context.Background(), testConfig("xgboost"), DefaultParams(), train, valid)
	require.NoError(t, err)

	pred, err := ens.Predict(valid.X)
	require.NoError(t, err)
	assert.Less(t, rmseOf(pred, valid.Y), 0.2*baselineRMSE(train, valid))
	for _, tree := range ens.Trees {
		assert.LessOrEqual(t, tree.Depth(), 6)
	}
}

func TestGammaPrunesWeakSplits(t *testing.T) {
	p := DefaultParams()
	p.Gamma = 1e9

	cfg := testConfig("xgboost")
	cfg.NumRounds = 3
	ens, err := Train(context.Background(), cfg, p, synthetic(100, 0), synthetic(20, 100))
	require.NoError(t, err)
	for _, tree := range ens.Trees {
		assert.Equal(t, 1, tree.NumLeaves())
	}
}

func TestSubsamplingIsSeeded(t *testing.T) {
	cfg := testConfig("xgboost")
	cfg.NumRounds = 20
	cfg.Subsample = 0.8
	cfg.SubsampleFreq = 1
	cfg.ColsampleByTree = 0.8

	a, err := Train(context.Background(), cfg, DefaultParams(), synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)
	b, err := Train(context.Background(), cfg, DefaultParams(), synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)
	assert.Equal(t, a.Trees, b.Trees)

	cfg.Seed = 7
	c, err := Train(context.Background(), cfg, DefaultParams(), synthetic(200, 0), synthetic(40, 200))
	require.NoError(t, err)
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestValidate(t *testing.T) {
	p := DefaultParams()
	p.MaxDepth = 0
	_, err := NewBuilder(p)
	var ve *scierrors.ValidationError
	require.True(t, scierrors.As(err, &ve))
}
