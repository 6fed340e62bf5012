// Package dataset loads time-ordered sales snapshots and prepares the
// train/validation matrices the boosting trainers consume.
//
// A Table is an immutable, row-ordered block of float64 values with named
// columns. Row order is the time order of the underlying data and every
// operation in this package preserves it.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Table is an ordered, column-named matrix. Accessors return copies.
type Table struct {
	columns []string
	// data is nil when the table has no rows.
	data *mat.Dense
}

// NewTable builds a table from row-major values.
func NewTable(columns []string, rows [][]float64) (*Table, error) {
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Table{columns: append([]string(nil), columns...)}, nil
	}
	flat := make([]float64, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return nil, scierrors.NewDimensionError("NewTable", len(columns), len(row), 1)
		}
		flat = append(flat, row...)
	}
	return &Table{
		columns: append([]string(nil), columns...),
		data:    mat.NewDense(len(rows), len(columns), flat),
	}, nil
}

// FromDense wraps a copy of m with the given column names.
func FromDense(columns []string, m mat.Matrix) (*Table, error) {
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	t := &Table{columns: append([]string(nil), columns...)}
	if m == nil {
		return t, nil
	}
	r, c := m.Dims()
	if r == 0 {
		return t, nil
	}
	if c != len(columns) {
		return nil, scierrors.NewSchemaError("", "matrix width does not match column names", columns)
	}
	t.data = mat.DenseCopyOf(m)
	return t, nil
}

func checkColumns(columns []string) error {
	if len(columns) == 0 {
		return scierrors.NewValidationError("columns", "table needs at least one column", columns)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return scierrors.NewSchemaError(c, "duplicate column name", columns)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || t.data == nil {
		return 0
	}
	r, _ := t.data.Dims()
	return r
}

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, scierrors.NewSchemaError(name, "column not present", t.columns)
	}
	if t.data == nil {
		return []float64{}, nil
	}
	return mat.Col(nil, j, t.data), nil
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) float64 { return t.data.At(i, j) }

// Matrix returns a copy of the values, or nil for an empty table.
func (t *Table) Matrix() *mat.Dense {
	if t.data == nil {
		return nil
	}
	return mat.DenseCopyOf(t.data)
}

// slice returns rows [start, end) sharing storage with t. Tables are never
// written to after construction so the shared view is safe.
func (t *Table) slice(start, end int) *Table {
	out := &Table{columns: t.columns}
	if start >= end || t.data == nil {
		return out
	}
	out.data = t.data.Slice(start, end, 0, len(t.columns)).(*mat.Dense)
	return out
}
