package dataset

import (
	"math"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// DefaultTrainFraction is the share of leading rows used for training.
const DefaultTrainFraction = 0.8

// TemporalSplit cuts t at floor(trainFraction*N): rows before the cut train,
// rows from the cut on validate. Rows are never shuffled, so validation is
// always later in time than training.
func TemporalSplit(t *Table, trainFraction float64) (train, valid *Table, err error) {
	if t == nil {
		return nil, nil, scierrors.NewValueError("TemporalSplit", "table is nil")
	}
	if math.IsNaN(trainFraction) || trainFraction < 0 || trainFraction > 1 {
		return nil, nil, scierrors.NewValidationError("train_fraction", "must be within [0, 1]", trainFraction)
	}
	n := t.Len()
	cut := int(math.Floor(trainFraction * float64(n)))
	return t.slice(0, cut), t.slice(cut, n), nil
}
