package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		[]string{"sell_price", "sold_lag_1", "sold"},
		[][]float64{{1.5, 3, 4}, {1.5, 4, 6}, {2.0, 6, 5}},
	)
	require.NoError(t, err)
	return tbl
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleTable(t)

	for _, name := range []string{"CA_1_1.gob", "CA_1_1.gob.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteSnapshot(path, want))

			got, err := ReadSnapshot(path)
			require.NoError(t, err)
			assert.Equal(t, want.Columns(), got.Columns())
			assert.Equal(t, want.Matrix().RawMatrix().Data, got.Matrix().RawMatrix().Data)
		})
	}
}

func TestSnapshotNpy(t *testing.T) {
	dir := t.TempDir()
	want := sampleTable(t)
	path := filepath.Join(dir, "CA_1_1.npy")
	require.NoError(t, WriteSnapshot(path, want))

	got, err := ReadSnapshot(path, WithColumns(want.Columns()))
	require.NoError(t, err)
	assert.Equal(t, want.Columns(), got.Columns())
	assert.Equal(t, want.Row(2), got.Row(2))

	_, err = ReadSnapshot(path, WithColumns([]string{"a", "b"}))
	var se *scierrors.SchemaError
	require.True(t, scierrors.As(err, &se))

	_, err = ReadSnapshot(path)
	var ve *scierrors.ValidationError
	require.True(t, scierrors.As(err, &ve))
}

func TestSnapshotEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gob")
	empty, err := NewTable([]string{"a", "sold"}, nil)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshot(path, empty))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"a", "sold"}, got.Columns())
}

func TestFormatOf(t *testing.T) {
	for in, want := range map[string]string{
		"CA_1_3.gob":    FormatGob,
		"CA_1_3.GOB.xz": FormatGobXZ,
		"CA_1_3.npy":    FormatNpy,
	} {
		got, err := FormatOf(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := FormatOf("CA_1_3.pkl")
	require.Error(t, err)
}
