package gbdt

import (
	"math"

	"gonum.org/v1/gonum/stat"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Evaluation metric names understood by Boost.
const (
	MetricL2   = "l2"
	MetricRMSE = "rmse"
)

// L2Objective is squared-error loss: gradient pred−y, hessian 1.
type L2Objective struct{}

// InitScore returns the mean target, the constant that minimises L2.
func (L2Objective) InitScore(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	return stat.Mean(y, nil)
}

// Gradients fills grad and hess for the current predictions.
func (L2Objective) Gradients(pred, y, grad, hess []float64) {
	for i := range y {
		grad[i] = pred[i] - y[i]
		hess[i] = 1
	}
}

// Evaluate computes the named metric of pred against y.
func Evaluate(metric string, pred, y []float64) (float64, error) {
	if len(y) == 0 {
		return math.NaN(), nil
	}
	var sum float64
	for i := range y {
		d := pred[i] - y[i]
		sum += d * d
	}
	mse := sum / float64(len(y))
	switch metric {
	case MetricL2:
		return mse, nil
	case MetricRMSE:
		return math.Sqrt(mse), nil
	default:
		return 0, scierrors.NewValidationError("metric", "must be l2 or rmse", metric)
	}
}
