// Package gbdt holds the gradient-boosting machinery shared by the
// leaf-wise, symmetric and histogram engines: regression trees, feature
// binning, histogram split search, row and column sampling, early stopping,
// training callbacks and the boosting loop itself.
//
// Engines only decide how a tree grows. Boost owns everything else.
package gbdt

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/core/parallel"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func init() {
	gob.Register(&Ensemble{})
}

// Ensemble is a trained additive model: InitScore plus the sum of its trees.
// Leaf values already include the learning rate.
type Ensemble struct {
	model.BaseEstimator

	Algorithm     string
	Features      []string
	InitScore     float64
	Trees         []Tree
	BestIteration int // number of trees kept; equals len(Trees)
	History       model.LearningCurve
}

var (
	_ model.Regressor     = (*Ensemble)(nil)
	_ model.FeatureNamer  = (*Ensemble)(nil)
	_ model.CurveReporter = (*Ensemble)(nil)
)

// Predict returns InitScore plus the sum of tree outputs for every row.
func (e *Ensemble) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer scierrors.Recover(&err, e.Algorithm+".Predict")

	if err := e.CheckFitted(e.Algorithm, "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != len(e.Features) {
		return nil, scierrors.NewDimensionError(e.Algorithm+".Predict", len(e.Features), cols, 1)
	}
	if rows == 0 {
		return &mat.VecDense{}, nil
	}

	out := make([]float64, rows)
	dense, isDense := X.(*mat.Dense)
	parallel.ParallelizeWithThreshold(rows, 512, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			if isDense {
				row = dense.RawRowView(i)
			} else {
				mat.Row(row, i, X)
			}
			out[i] = e.PredictRow(row)
		}
	})
	return mat.NewVecDense(rows, out), nil
}

// PredictRow scores a single feature row.
func (e *Ensemble) PredictRow(row []float64) float64 {
	sum := e.InitScore
	for t := range e.Trees {
		sum += e.Trees[t].Predict(row)
	}
	return sum
}

// FeatureNames returns the training column order.
func (e *Ensemble) FeatureNames() []string {
	return append([]string(nil), e.Features...)
}

// Curve returns the per-round evaluation history.
func (e *Ensemble) Curve() model.LearningCurve {
	return e.History
}

// NumTrees returns the number of trees.
func (e *Ensemble) NumTrees() int { return len(e.Trees) }

// FeatureImportance returns the total split gain attributed to each feature.
func (e *Ensemble) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(e.Features))
	for _, name := range e.Features {
		out[name] = 0
	}
	for t := range e.Trees {
		for _, n := range e.Trees[t].Nodes {
			if !n.IsLeaf() {
				out[e.Features[n.Feature]] += n.Gain
			}
		}
	}
	return out
}
