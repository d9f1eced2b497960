// Package bloom provides a space-efficient probabilistic set membership filter.
//
// A Bloom filter answers "definitely not seen" or "possibly seen" with a
// tunable false-positive rate. Sessions use it to estimate duplicate rows
// without keeping every row in memory.
//
// Bit positions use the double-hashing technique from Kirsch and Mitzenmacher
// (2006): h(i) = h1 + i*h2 mod m, derived from one 64-bit row hash.
package bloom

import (
	"errors"
	"math"
	"math/bits"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"
)

const (
	// bitsPerWord is the number of bits in each uint64 word.
	bitsPerWord = 64

	// ln2Squared is ln(2) squared, used in the optimal bit-array size formula.
	ln2Squared = math.Ln2 * math.Ln2
)

var (
	// ErrZeroN is returned when n (expected element count) is zero.
	ErrZeroN = errors.New("bloom: n must be positive")

	// ErrInvalidFP is returned when fp is not in the open interval (0, 1).
	ErrInvalidFP = errors.New("bloom: fp must be in the open interval (0, 1)")
)

// Filter is a Bloom filter. It is not safe for concurrent use.
type Filter struct {
	bits  []uint64
	m     uint // Total bits.
	k     uint // Number of hash functions.
	count uint // Number of TestAndAdd calls.
}

// NewWithEstimates creates a filter sized for n expected elements at a
// false-positive rate of fp.
func NewWithEstimates(n uint, fp float64) (*Filter, error) {
	if n == 0 {
		return nil, ErrZeroN
	}

	if fp <= 0 || fp >= 1 {
		return nil, ErrInvalidFP
	}

	m := optimalM(n, fp)
	k := optimalK(m, n)

	return &Filter{
		bits: make([]uint64, (m+bitsPerWord-1)/bitsPerWord),
		m:    m,
		k:    k,
	}, nil
}

// BitCount returns the size of the bit array in bits.
func (f *Filter) BitCount() uint {
	return f.m
}

// HashCount returns the number of hash functions used by the filter.
func (f *Filter) HashCount() uint {
	return f.k
}

// TestAndAdd reports whether hash was possibly present, then adds it.
func (f *Filter) TestAndAdd(hash uint64) bool {
	h1, h2 := hash, hashutil.Mix64(hash^hashutil.BaseSeed)|1
	present := true

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		mask := uint64(1) << (pos % bitsPerWord)

		if f.bits[pos/bitsPerWord]&mask == 0 {
			present = false
			f.bits[pos/bitsPerWord] |= mask
		}
	}

	f.count++

	return present
}

// Count returns the number of elements offered to the filter.
func (f *Filter) Count() uint {
	return f.count
}

// FillRatio returns the fraction of bits that are set, in the range [0, 1].
// A ratio close to 1 means the filter is over capacity and duplicate
// estimates become unreliable.
func (f *Filter) FillRatio() float64 {
	total := 0
	for _, word := range f.bits {
		total += bits.OnesCount64(word)
	}

	return float64(total) / float64(f.m)
}

// optimalM computes m = ceil(-n * ln(fp) / ln(2)^2).
func optimalM(n uint, fp float64) uint {
	return uint(math.Ceil(-float64(n) * math.Log(fp) / ln2Squared))
}

// optimalK computes k = round(m/n * ln(2)).
func optimalK(m, n uint) uint {
	return max(uint(math.Round(float64(m)/float64(n)*math.Ln2)), 1)
}
