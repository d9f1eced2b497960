// Package cms provides a Count-Min Sketch for frequency estimation.
//
// The sketch answers "how many times has this value been seen?" with an
// estimate that never undercounts (for positive additions) and overcounts by
// at most epsilon * total with probability 1 - delta. The top-k table uses it
// to estimate the count of a newcomer value that was never tracked exactly.
package cms

import (
	"errors"
	"math"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"
)

var (
	// ErrInvalidEpsilon is returned when epsilon is not positive.
	ErrInvalidEpsilon = errors.New("cms: epsilon must be positive")

	// ErrInvalidDelta is returned when delta is not in the open interval (0, 1).
	ErrInvalidDelta = errors.New("cms: delta must be in the open interval (0, 1)")
)

// Sketch is a Count-Min Sketch. It is not safe for concurrent use.
type Sketch struct {
	counters   []int64  // depth rows × width columns, row-major.
	seeds      []uint64 // one per row.
	width      uint
	depth      uint
	totalCount int64
}

// New creates a sketch sized from the error bounds:
// width = ceil(e / epsilon), depth = ceil(ln(1 / delta)).
func New(epsilon, delta float64) (*Sketch, error) {
	if epsilon <= 0 {
		return nil, ErrInvalidEpsilon
	}

	if delta <= 0 || delta >= 1 {
		return nil, ErrInvalidDelta
	}

	width := uint(math.Ceil(math.E / epsilon))
	depth := uint(math.Ceil(math.Log(1 / delta)))

	return &Sketch{
		counters: make([]int64, width*depth),
		seeds:    hashutil.GenerateSeeds(int(depth), hashutil.Mix64),
		width:    width,
		depth:    depth,
	}, nil
}

// Width returns the number of columns in the sketch.
func (s *Sketch) Width() uint {
	return s.width
}

// Depth returns the number of rows (hash functions) in the sketch.
func (s *Sketch) Depth() uint {
	return s.depth
}

// Add increments the counter for key by count and returns the new estimate.
// A count of zero only reads.
func (s *Sketch) Add(key string, count int64) int64 {
	base := hashutil.String64(key)
	minVal := int64(math.MaxInt64)

	for row := range s.depth {
		idx := row*s.width + s.column(row, base)
		s.counters[idx] += count

		minVal = min(minVal, s.counters[idx])
	}

	s.totalCount += count

	return minVal
}

// Count returns the estimated frequency of key.
func (s *Sketch) Count(key string) int64 {
	base := hashutil.String64(key)
	minVal := int64(math.MaxInt64)

	for row := range s.depth {
		minVal = min(minVal, s.counters[row*s.width+s.column(row, base)])
	}

	return minVal
}

// TotalCount returns the sum of all counts added to the sketch.
func (s *Sketch) TotalCount() int64 {
	return s.totalCount
}

func (s *Sketch) column(row uint, base uint64) uint {
	return uint(hashutil.Mix64(base^s.seeds[row]) % uint64(s.width))
}
