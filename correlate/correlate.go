// Package correlate provides the correlation primitives used by the
// similarity computations: pairwise Pearson correlation, upper triangle
// extraction over observation matrices and NaN-aware averaging.
package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RowLengthError is returned by UpperTriangle when observation rows do
// not share a common length.
type RowLengthError struct {
	Row      int
	Expected int
	Actual   int
}

func (e *RowLengthError) Error() string {
	return fmt.Sprintf("correlate: row %d has length %d, want %d", e.Row, e.Actual, e.Expected)
}

// Pairwise calculates the Pearson correlation between two observations
// of equal length. The boolean result reports whether the correlation
// is defined: it is false when the lengths differ, fewer than two
// samples are present, or either observation has zero variance.
func Pairwise(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) < 2 {
		return math.NaN(), false
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return r, false
	}
	return r, true
}

// UpperTriangle calculates the pairwise correlation matrix over the
// given observation rows and returns its strictly upper triangular
// entries in row major order, i.e. (0,1), (0,2), ..., (1,2), ...
// Fewer than two rows yield an empty result. Undefined pairs are kept
// as NaN entries so that callers can decide how to treat them (see
// MeanDefined).
func UpperTriangle(rows [][]float64) ([]float64, error) {
	if len(rows) < 2 {
		return nil, nil
	}

	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, &RowLengthError{Row: i, Expected: width, Actual: len(row)}
		}
	}

	out := make([]float64, 0, len(rows)*(len(rows)-1)/2)
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			r, _ := Pairwise(rows[i], rows[j])
			out = append(out, r)
		}
	}

	return out, nil
}

// MeanDefined averages the defined (non-NaN) entries of values. The
// boolean result is false when no entry is defined.
func MeanDefined(values []float64) (float64, bool) {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), false
	}
	return sum / float64(n), true
}
