package gbdt

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/salesforecast/core/parallel"
)

// DefaultMaxBin is the histogram resolution used when a config leaves it unset.
const DefaultMaxBin = 255

// BinMapper quantises each feature into at most maxBin ordered buckets.
// Bounds[f][b] is the inclusive upper edge of bucket b; the last edge is +Inf.
type BinMapper struct {
	Bounds [][]float64
}

// NewBinMapper computes bucket edges from the training matrix. Features with
// few distinct values get one bucket per value; others use quantile edges.
func NewBinMapper(X *mat.Dense, maxBin int) *BinMapper {
	if maxBin < 2 {
		maxBin = DefaultMaxBin
	}
	if maxBin > math.MaxUint16 {
		maxBin = math.MaxUint16
	}
	rows, cols := X.Dims()
	bm := &BinMapper{Bounds: make([][]float64, cols)}

	parallel.ParallelizeWithThreshold(cols, 4, func(start, end int) {
		values := make([]float64, 0, rows)
		for f := start; f < end; f++ {
			values = values[:0]
			for i := 0; i < rows; i++ {
				if v := X.At(i, f); !math.IsNaN(v) {
					values = append(values, v)
				}
			}
			bm.Bounds[f] = featureBounds(values, maxBin)
		}
	})
	return bm
}

func featureBounds(values []float64, maxBin int) []float64 {
	if len(values) == 0 {
		return []float64{math.Inf(1)}
	}
	sort.Float64s(values)

	unique := values[:1:1]
	for _, v := range values[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	var bounds []float64
	if len(unique) <= maxBin {
		bounds = make([]float64, 0, len(unique))
		for i := 0; i+1 < len(unique); i++ {
			bounds = append(bounds, (unique[i]+unique[i+1])/2)
		}
	} else {
		for k := 1; k < maxBin; k++ {
			q := stat.Quantile(float64(k)/float64(maxBin), stat.Empirical, values, nil)
			// edges sit between distinct values so equal values share a bucket
			j := sort.SearchFloat64s(unique, q)
			if j+1 >= len(unique) {
				break
			}
			edge := (unique[j] + unique[j+1]) / 2
			if len(bounds) == 0 || edge > bounds[len(bounds)-1] {
				bounds = append(bounds, edge)
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// NumBins returns the bucket count of feature f.
func (bm *BinMapper) NumBins(f int) int { return len(bm.Bounds[f]) }

// Bin returns the bucket of value v for feature f. NaN maps to bucket 0.
func (bm *BinMapper) Bin(f int, v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return sort.SearchFloat64s(bm.Bounds[f], v)
}

// Threshold returns the raw split value equivalent to "bucket <= b".
func (bm *BinMapper) Threshold(f, b int) float64 { return bm.Bounds[f][b] }

// BinnedData is a column-major matrix of bucket indices.
type BinnedData struct {
	Rows   int
	Cols   [][]uint16
	Mapper *BinMapper
}

// Transform buckets every value of X.
func (bm *BinMapper) Transform(X *mat.Dense) *BinnedData {
	rows, cols := X.Dims()
	bd := &BinnedData{Rows: rows, Cols: make([][]uint16, cols), Mapper: bm}
	parallel.ParallelizeWithThreshold(cols, 4, func(start, end int) {
		for f := start; f < end; f++ {
			col := make([]uint16, rows)
			for i := 0; i < rows; i++ {
				col[i] = uint16(bm.Bin(f, X.At(i, f)))
			}
			bd.Cols[f] = col
		}
	})
	return bd
}

// NumFeatures returns the column count.
func (bd *BinnedData) NumFeatures() int { return len(bd.Cols) }
