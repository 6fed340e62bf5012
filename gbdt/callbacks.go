package gbdt

import (
	"time"

	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// EvalResult is one metric value on one dataset after a boosting round.
type EvalResult struct {
	Dataset string // "train" or "valid"
	Metric  string
	Value   float64
}

// CallbackEnv is passed to callbacks after every boosting round.
type CallbackEnv struct {
	Algorithm    string
	Iteration    int // zero-based
	Elapsed      time.Duration
	EvalResults  []EvalResult
	StopTraining bool
}

// Callback observes training after each round and may stop it.
type Callback func(env *CallbackEnv) error

// LogEvaluation logs the evaluation results every period rounds
// (rounds period, 2·period, ... counted from one).
func LogEvaluation(logger log.Logger, period int) Callback {
	return func(env *CallbackEnv) error {
		if period <= 0 || (env.Iteration+1)%period != 0 {
			return nil
		}
		fields := []any{
			log.ModelNameKey, env.Algorithm,
			log.IterationKey, env.Iteration + 1,
		}
		for _, r := range env.EvalResults {
			key := log.TrainLossKey
			if r.Dataset == "valid" {
				key = log.ValidLossKey
			}
			fields = append(fields, key, r.Value)
		}
		logger.Info("Boosting round", fields...)
		return nil
	}
}

// TimeLimit stops training once maxDuration has elapsed.
func TimeLimit(maxDuration time.Duration) Callback {
	return func(env *CallbackEnv) error {
		if env.Elapsed > maxDuration {
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList runs callbacks in order.
type CallbackList struct {
	callbacks []Callback
	env       CallbackEnv
}

// NewCallbackList creates a new callback list.
func NewCallbackList(algorithm string, callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks, env: CallbackEnv{Algorithm: algorithm}}
}

// AfterIteration calls every callback; it stops at the first error.
func (cl *CallbackList) AfterIteration(iteration int, elapsed time.Duration, results []EvalResult) error {
	cl.env.Iteration = iteration
	cl.env.Elapsed = elapsed
	cl.env.EvalResults = results
	for _, cb := range cl.callbacks {
		if err := cb(&cl.env); err != nil {
			return err
		}
	}
	return nil
}

// ShouldStop returns whether a callback asked to stop.
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}
