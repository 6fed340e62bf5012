package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func rowsTable(t *testing.T, n int) *Table {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(i * 10)}
	}
	tbl, err := NewTable([]string{"day", "sold"}, rows)
	require.NoError(t, err)
	return tbl
}

func TestTemporalSplit(t *testing.T) {
	tests := []struct {
		n, wantTrain int
	}{
		{10, 8},
		{7, 5}, // floor(5.6)
		{1, 0},
		{0, 0},
	}
	for _, tt := range tests {
		tbl := rowsTable(t, tt.n)
		train, valid, err := TemporalSplit(tbl, DefaultTrainFraction)
		require.NoError(t, err)

		assert.Equal(t, tt.wantTrain, train.Len(), "n=%d", tt.n)
		assert.Equal(t, tt.n, train.Len()+valid.Len())
		// 学習データは検証データより前の時点
		if train.Len() > 0 && valid.Len() > 0 {
			assert.Less(t, train.Row(train.Len() - 1)[0], valid.Row(0)[0])
		}
		for i := 0; i < valid.Len(); i++ {
			assert.Equal(t, float64(tt.wantTrain+i), valid.Row(i)[0])
		}
	}
}

func TestTemporalSplitRejectsBadFraction(t *testing.T) {
	for _, f := range []float64{-0.1, 1.5} {
		_, _, err := TemporalSplit(rowsTable(t, 4), f)
		var ve *scierrors.ValidationError
		require.True(t, scierrors.As(err, &ve))
	}
}
