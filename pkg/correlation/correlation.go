// Package correlation computes pairwise Pearson correlation over a batch of
// delimited rows.
package correlation

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/stats"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// DefaultMaxRows bounds the rows read by Compute.
const DefaultMaxRows = 10000

// Sentinel errors.
var (
	ErrColumnOutOfRange = errors.New("column index out of range")
	ErrDuplicateColumn  = errors.New("column requested twice")
)

// Matrix is a symmetric correlation matrix with a unit diagonal. Counts
// holds, per pair, the number of rows where both columns were numeric.
type Matrix struct {
	Columns   []string    `json:"columns"   yaml:"columns"`
	Indices   []int       `json:"indices"   yaml:"indices"`
	Values    [][]float64 `json:"values"    yaml:"values"`
	Counts    [][]int64   `json:"counts"    yaml:"counts"`
	RowsUsed  int         `json:"rows_used" yaml:"rows_used"`
	Truncated bool        `json:"truncated" yaml:"truncated"`
}

// Options bound a computation.
type Options struct {
	// MaxRows caps the rows read; later rows are ignored. Zero means no cap.
	MaxRows int
}

// Compute correlates numericCols over rows with the default row cap.
func Compute(headers []string, rows [][]string, numericCols []int) (*Matrix, error) {
	return Options{MaxRows: DefaultMaxRows}.Compute(headers, rows, numericCols)
}

// Compute correlates every pair of numericCols over rows. A pair only uses
// rows where both fields parse as numbers. Pairs with fewer than two such
// rows, or with a constant side, correlate as 0.
func (o Options) Compute(headers []string, rows [][]string, numericCols []int) (*Matrix, error) {
	width := len(headers)
	if width == 0 {
		for _, r := range rows {
			width = max(width, len(r))
		}
	}

	seen := make(map[int]bool, len(numericCols))

	for _, col := range numericCols {
		if col < 0 || col >= width {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrColumnOutOfRange, col, width)
		}

		if seen[col] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateColumn, col)
		}

		seen[col] = true
	}

	truncated := o.MaxRows > 0 && len(rows) > o.MaxRows
	if truncated {
		rows = rows[:o.MaxRows]
	}

	k := len(numericCols)
	m := &Matrix{
		Columns:   make([]string, k),
		Indices:   append([]int(nil), numericCols...),
		Values:    square[float64](k),
		Counts:    square[int64](k),
		RowsUsed:  len(rows),
		Truncated: truncated,
	}

	for i, col := range numericCols {
		if col < len(headers) {
			m.Columns[i] = headers[col]
		} else {
			m.Columns[i] = parser.ColumnName(col)
		}
	}

	pairs := make([]stats.CoMoments, k*k)
	vals := make([]float64, k)
	ok := make([]bool, k)

	for _, r := range rows {
		for i, col := range numericCols {
			vals[i], ok[i] = 0, false
			if col < len(r) {
				vals[i], ok[i] = profile.ParseNumber(r[col])
			}
		}

		for i := range k {
			if !ok[i] {
				continue
			}

			for j := i; j < k; j++ {
				if ok[j] {
					pairs[i*k+j].Add(vals[i], vals[j])
				}
			}
		}
	}

	for i := range k {
		m.Values[i][i] = 1
		m.Counts[i][i] = pairs[i*k+i].N

		for j := i + 1; j < k; j++ {
			cm := &pairs[i*k+j]
			m.Values[i][j], m.Values[j][i] = cm.Pearson(), cm.Pearson()
			m.Counts[i][j], m.Counts[j][i] = cm.N, cm.N
		}
	}

	return m, nil
}

func square[T any](k int) [][]T {
	out := make([][]T, k)
	for i := range out {
		out[i] = make([]T, k)
	}

	return out
}
