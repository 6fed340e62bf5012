package dataset

import (
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Features is a feature matrix together with its column names.
// X is nil when there are no rows.
type Features struct {
	Names []string
	X     *mat.Dense
}

// Rows returns the number of samples.
func (f *Features) Rows() int {
	if f == nil || f.X == nil {
		return 0
	}
	r, _ := f.X.Dims()
	return r
}

// SeparateTarget splits t into every column except target, in their
// original order, and the target column.
func SeparateTarget(t *Table, target string) (*Features, *mat.VecDense, error) {
	ti := t.ColumnIndex(target)
	if ti < 0 {
		return nil, nil, scierrors.NewSchemaError(target, "target column not present", t.Columns())
	}

	names := make([]string, 0, t.Width()-1)
	keep := make([]int, 0, t.Width()-1)
	for j, c := range t.columns {
		if j != ti {
			names = append(names, c)
			keep = append(keep, j)
		}
	}

	n := t.Len()
	feats := &Features{Names: names}
	if n == 0 {
		return feats, &mat.VecDense{}, nil
	}
	if len(keep) == 0 {
		return nil, nil, scierrors.NewSchemaError(target, "no feature columns besides the target", t.Columns())
	}

	feats.X = mat.NewDense(n, len(keep), nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for k, j := range keep {
			feats.X.Set(i, k, t.data.At(i, j))
		}
		y.SetVec(i, t.data.At(i, ti))
	}
	return feats, y, nil
}

// Prepared holds both halves of a split after target separation.
type Prepared struct {
	Train  *Features
	Valid  *Features
	YTrain *mat.VecDense
	YValid *mat.VecDense
}

// PrepareFeatures applies SeparateTarget to both halves of a split.
func PrepareFeatures(train, valid *Table, target string) (*Prepared, error) {
	xt, yt, err := SeparateTarget(train, target)
	if err != nil {
		return nil, scierrors.Wrap(err, "training split")
	}
	xv, yv, err := SeparateTarget(valid, target)
	if err != nil {
		return nil, scierrors.Wrap(err, "validation split")
	}
	return &Prepared{Train: xt, Valid: xv, YTrain: yt, YValid: yv}, nil
}
