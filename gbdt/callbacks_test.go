package gbdt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

func TestTimeLimit(t *testing.T) {
	cb := TimeLimit(time.Second)

	env := &CallbackEnv{Elapsed: 500 * time.Millisecond}
	require.NoError(t, cb(env))
	assert.False(t, env.StopTraining)

	env.Elapsed = 2 * time.Second
	require.NoError(t, cb(env))
	assert.True(t, env.StopTraining)
}

func TestCallbacksDuringBoost(t *testing.T) {
	var seen []EvalResult
	record := func(env *CallbackEnv) error {
		seen = append(seen, env.EvalResults...)
		return nil
	}
	stopAfter := func(rounds int) Callback {
		return func(env *CallbackEnv) error {
			if env.Iteration+1 >= rounds {
				env.StopTraining = true
			}
			return nil
		}
	}

	cfg := baseConfig()
	cfg.Callbacks = []Callback{record, stopAfter(4)}
	ens, err := Boost(context.Background(), cfg, stumpBuilder{SplitParams{MinDataInLeaf: 1}},
		stepDataset(40, false), stepDataset(20, false))
	require.NoError(t, err)

	assert.Equal(t, 4, ens.NumTrees())
	require.Len(t, ens.History.Train, 4)
	require.Len(t, ens.History.Valid, 4)
	require.Len(t, seen, 8)
	for i := 0; i < 4; i++ {
		assert.Equal(t, EvalResult{Dataset: "train", Metric: MetricRMSE, Value: ens.History.Train[i]}, seen[2*i])
		assert.Equal(t, EvalResult{Dataset: "valid", Metric: MetricRMSE, Value: ens.History.Valid[i]}, seen[2*i+1])
	}
}

func TestCallbackErrorAbortsBoost(t *testing.T) {
	cfg := baseConfig()
	cfg.Callbacks = []Callback{func(env *CallbackEnv) error {
		if env.Iteration == 2 {
			return scierrors.New("disk full")
		}
		return nil
	}}
	_, err := Boost(context.Background(), cfg, stumpBuilder{SplitParams{MinDataInLeaf: 1}}, stepDataset(40, false), Dataset{})
	assert.ErrorContains(t, err, "disk full")
}

func TestLogEvaluationPeriod(t *testing.T) {
	logger := log.NewTestLogger(log.LevelInfo)
	cb := LogEvaluation(logger, 5)
	for it := 0; it < 12; it++ {
		require.NoError(t, cb(&CallbackEnv{
			Algorithm: "lgbm",
			Iteration: it,
			EvalResults: []EvalResult{
				{Dataset: "train", Metric: MetricL2, Value: 1},
				{Dataset: "valid", Metric: MetricL2, Value: 2},
			},
		}))
	}
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(5), entries[0][log.IterationKey])
	assert.Equal(t, float64(10), entries[1][log.IterationKey])
	assert.Equal(t, 2.0, entries[0][log.ValidLossKey])
}
