package gbdt

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// stumpBuilder grows depth-one trees.
type stumpBuilder struct{ p SplitParams }

func (s stumpBuilder) BuildTree(r *Round) (*Tree, error) {
	g, h := SumGradients(r.Rows, r.Grad, r.Hess)
	b := NewBuilder(LeafValue(g, h, s.p.Lambda), len(r.Rows))
	split := FindBestSplit(r.Data, r.Rows, r.Features, r.Grad, r.Hess, s.p)
	if split.Valid() {
		b.Split(0, split,
			LeafValue(split.LeftGrad, split.LeftHess, s.p.Lambda),
			LeafValue(split.RightGrad, split.RightHess, s.p.Lambda))
	}
	return b.Tree(), nil
}

func stepDataset(n int, flip bool) Dataset {
	X, y := stepData(n)
	if flip {
		for i := range y {
			y[i] = 10 - y[i]
		}
	}
	return Dataset{Names: []string{"x0", "x1"}, X: X, Y: y}
}

func baseConfig() Config {
	return Config{
		Algorithm:       "stump",
		NumRounds:       50,
		LearningRate:    0.3,
		Subsample:       1,
		ColsampleByTree: 1,
		Metric:          MetricRMSE,
		Seed:            42,
		Logger:          log.NewTestLogger(log.LevelWarn),
	}
}

func TestBoostFitsStep(t *testing.T) {
	train := stepDataset(40, false)
	ens, err := Boost(context.Background(), baseConfig(), stumpBuilder{SplitParams{MinDataInLeaf: 1}}, train, Dataset{})
	require.NoError(t, err)

	assert.Equal(t, 50, ens.NumTrees())
	assert.Equal(t, 50, ens.BestIteration)
	assert.InDelta(t, 5.0, ens.InitScore, 1e-12)
	require.Len(t, ens.History.Train, 50)
	assert.Less(t, ens.History.Train[49], ens.History.Train[0])
	assert.Empty(t, ens.History.Valid)

	pred, err := ens.Predict(mat.NewDense(2, 2, []float64{0.1, 0, 0.9, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred.AtVec(0), 0.01)
	assert.InDelta(t, 10.0, pred.AtVec(1), 0.01)

	imp := ens.FeatureImportance()
	assert.Greater(t, imp["x0"], imp["x1"])
}

func TestBoostEarlyStoppingTruncates(t *testing.T) {
	cfg := baseConfig()
	cfg.EarlyStoppingRounds = 3

	train := stepDataset(40, false)
	valid := stepDataset(20, true) // learning the training signal only hurts here

	ens, err := Boost(context.Background(), cfg, stumpBuilder{SplitParams{MinDataInLeaf: 1}}, train, valid)
	require.NoError(t, err)

	assert.Equal(t, 1, ens.NumTrees())
	assert.Len(t, ens.History.Valid, 4, "best round plus three without improvement")
}

func TestBoostEmptyValidationWarns(t *testing.T) {
	var warnings []error
	scierrors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer scierrors.SetZerologWarnFunc(nil)

	cfg := baseConfig()
	cfg.NumRounds = 3
	cfg.EarlyStoppingRounds = 10
	_, err := Boost(context.Background(), cfg, stumpBuilder{}, stepDataset(10, false), Dataset{Names: []string{"x0", "x1"}})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	var w *scierrors.EarlyStoppingDisabledWarning
	require.True(t, scierrors.As(warnings[0], &w))
}

func TestBoostDeterministic(t *testing.T) {
	cfg := baseConfig()
	cfg.Subsample = 0.7
	cfg.SubsampleFreq = 1
	cfg.ColsampleByTree = 0.5

	fit := func() *Ensemble {
		ens, err := Boost(context.Background(), cfg, stumpBuilder{SplitParams{MinDataInLeaf: 1}}, stepDataset(60, false), Dataset{})
		require.NoError(t, err)
		return ens
	}
	a, b := fit(), fit()
	assert.Equal(t, a.Trees, b.Trees)
}

func TestBoostErrors(t *testing.T) {
	b := stumpBuilder{}
	ctx := context.Background()

	t.Run("column mismatch", func(t *testing.T) {
		valid := Dataset{Names: []string{"x0"}, X: mat.NewDense(1, 1, []float64{1}), Y: []float64{1}}
		_, err := Boost(ctx, baseConfig(), b, stepDataset(10, false), valid)
		var dim *scierrors.DimensionError
		require.True(t, scierrors.As(err, &dim))
		assert.Equal(t, 1, dim.Axis)
	})

	t.Run("empty training set", func(t *testing.T) {
		_, err := Boost(ctx, baseConfig(), b, Dataset{Names: []string{"x0"}}, Dataset{})
		assert.True(t, scierrors.Is(err, scierrors.ErrEmptyData))
	})

	t.Run("bad config", func(t *testing.T) {
		cfg := baseConfig()
		cfg.LearningRate = 0
		_, err := Boost(ctx, cfg, b, stepDataset(10, false), Dataset{})
		var ve *scierrors.ValidationError
		require.True(t, scierrors.As(err, &ve))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Boost(cctx, baseConfig(), b, stepDataset(10, false), Dataset{})
		assert.True(t, scierrors.Is(err, context.Canceled))
	})
}

func TestBoostLogsEveryPeriod(t *testing.T) {
	logger := log.NewTestLogger(log.LevelInfo)
	cfg := baseConfig()
	cfg.NumRounds = 12
	cfg.LogPeriod = 5
	cfg.Logger = logger

	_, err := Boost(context.Background(), cfg, stumpBuilder{}, stepDataset(10, false), Dataset{})
	require.NoError(t, err)

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	var rounds []float64
	for _, e := range entries {
		if e["message"] == "Boosting round" {
			rounds = append(rounds, e[log.IterationKey].(float64))
		}
	}
	assert.Equal(t, []float64{5, 10}, rounds)
}

func TestEnsemblePersistence(t *testing.T) {
	ens, err := Boost(context.Background(), baseConfig(), stumpBuilder{SplitParams{MinDataInLeaf: 1}}, stepDataset(40, false), Dataset{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveToWriter(ens, &buf))
	loaded, err := model.LoadFromReader(&buf)
	require.NoError(t, err)

	X := mat.NewDense(3, 2, []float64{0.1, 0, 0.5, 1, 0.9, 0})
	want, err := ens.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want.RawVector().Data, got.RawVector().Data)
	assert.Equal(t, []string{"x0", "x1"}, loaded.(model.FeatureNamer).FeatureNames())
}

func TestEnsemblePredictErrors(t *testing.T) {
	_, err := (&Ensemble{Algorithm: "x"}).Predict(mat.NewDense(1, 1, nil))
	var nf *scierrors.NotFittedError
	require.True(t, scierrors.As(err, &nf))

	ens := &Ensemble{Algorithm: "x", Features: []string{"a", "b"}}
	ens.SetFitted()
	_, err = ens.Predict(mat.NewDense(1, 3, nil))
	var dim *scierrors.DimensionError
	require.True(t, scierrors.As(err, &dim))
}
