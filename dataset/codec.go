package dataset

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"github.com/ulikunitz/xz"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Snapshot encodings, chosen by file extension.
const (
	FormatGob   = "gob"
	FormatGobXZ = "gob.xz"
	FormatNpy   = "npy"
)

// tableWire is the gob form of a Table.
type tableWire struct {
	Columns []string
	Rows    int
	Values  []float64
}

// readOptions configures snapshot decoding.
type readOptions struct {
	columns []string
}

// Option configures ReadSnapshot and LoadLatest.
type Option func(*readOptions)

// WithColumns names the columns of headerless formats such as .npy.
func WithColumns(columns []string) Option {
	return func(o *readOptions) { o.columns = append([]string(nil), columns...) }
}

// FormatOf maps a file name to one of the snapshot formats.
func FormatOf(path string) (string, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".xz"):
		return FormatGobXZ, nil
	case strings.HasSuffix(base, ".gob"):
		return FormatGob, nil
	case strings.HasSuffix(base, ".npy"):
		return FormatNpy, nil
	default:
		return "", scierrors.NewValidationError("snapshot", "unsupported file extension (want .gob, .gob.xz or .npy)", base)
	}
}

// ReadSnapshot decodes the table stored at path.
func ReadSnapshot(path string, opts ...Option) (*Table, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scierrors.NewNotFoundError("snapshot", path)
		}
		return nil, scierrors.Wrapf(err, "open snapshot %s", path)
	}
	defer f.Close()

	switch format {
	case FormatGobXZ:
		zr, err := xz.NewReader(f)
		if err != nil {
			return nil, scierrors.Wrapf(err, "open xz stream %s", path)
		}
		return decodeGob(zr, path)
	case FormatNpy:
		return decodeNpy(f, path, o.columns)
	default:
		return decodeGob(f, path)
	}
}

func decodeGob(r io.Reader, path string) (*Table, error) {
	var w tableWire
	if err := gob.NewDecoder(r).Decode(&w); err != nil {
		return nil, scierrors.Wrapf(err, "decode snapshot %s", path)
	}
	if len(w.Values) != w.Rows*len(w.Columns) {
		return nil, scierrors.NewSchemaError("", "value count does not match rows x columns", w.Columns)
	}
	if err := checkColumns(w.Columns); err != nil {
		return nil, err
	}
	t := &Table{columns: w.Columns}
	if w.Rows > 0 {
		t.data = mat.NewDense(w.Rows, len(w.Columns), w.Values)
	}
	return t, nil
}

func decodeNpy(r io.Reader, path string, columns []string) (*Table, error) {
	if len(columns) == 0 {
		return nil, scierrors.NewValidationError("columns", ".npy snapshots need schema column names", path)
	}
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, scierrors.Wrapf(err, "read npy header %s", path)
	}
	shape := nr.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, scierrors.NewSchemaError("", "npy array must be two-dimensional", columns)
	}
	if shape[1] != len(columns) {
		return nil, scierrors.NewSchemaError("", "npy width does not match configured columns", columns)
	}
	if shape[0] == 0 {
		return FromDense(columns, nil)
	}

	m := &mat.Dense{}
	if err := nr.Read(m); err != nil {
		return nil, scierrors.Wrapf(err, "read npy data %s", path)
	}
	return FromDense(columns, m)
}

// WriteSnapshot encodes t at path using the format implied by its extension.
// For .npy only the values are written; the column names live in config.
func WriteSnapshot(path string, t *Table) (err error) {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if format == FormatNpy && t.Len() == 0 {
		return scierrors.NewValueError("WriteSnapshot", "cannot write an empty table as .npy")
	}

	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "create snapshot %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = scierrors.Wrapf(cerr, "close snapshot %s", path)
		}
	}()

	switch format {
	case FormatNpy:
		if err := npyio.Write(f, t.Matrix()); err != nil {
			return scierrors.Wrapf(err, "write npy %s", path)
		}
		return nil
	case FormatGobXZ:
		zw, err := xz.NewWriter(f)
		if err != nil {
			return scierrors.Wrap(err, "open xz writer")
		}
		if err := encodeGob(zw, t); err != nil {
			_ = zw.Close()
			return err
		}
		return scierrors.Wrap(zw.Close(), "flush xz stream")
	default:
		return encodeGob(f, t)
	}
}

func encodeGob(w io.Writer, t *Table) error {
	wire := tableWire{Columns: t.Columns(), Rows: t.Len()}
	if t.data != nil {
		m := t.Matrix()
		wire.Values = m.RawMatrix().Data
	}
	if err := gob.NewEncoder(w).Encode(&wire); err != nil {
		return scierrors.Wrap(err, "encode snapshot")
	}
	return nil
}
