// Package model defines the contract every trained regressor satisfies and
// how regressors are persisted as artifacts.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor is a trained model. It is not mutated after training, so a single
// value may be shared by concurrent Predict calls.
type Regressor interface {
	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// FeatureNamer is implemented by regressors that remember the column order
// they were trained on. The serving layer uses it to order request fields.
type FeatureNamer interface {
	FeatureNames() []string
}

// LearningCurve holds the per-round evaluation loss recorded during training.
// Valid is empty when no validation set was supplied.
type LearningCurve struct {
	Metric string
	Train  []float64
	Valid  []float64
}

// CurveReporter is implemented by regressors that kept their learning curve.
type CurveReporter interface {
	Curve() LearningCurve
}

// ImportanceReporter is implemented by regressors that can attribute their
// splits to input features.
type ImportanceReporter interface {
	FeatureImportance() map[string]float64
}
