// Package hll provides a HyperLogLog cardinality estimator.
//
// The sketch estimates the number of distinct values in a column using 2^p
// one-byte registers (16 KiB at precision 14, about 0.8% standard error).
// It uses the LogLog-Beta bias correction from Qin et al. (2016), which is
// accurate across small and large cardinalities without HLL++ tables.
package hll

import (
	"errors"
	"math"
	"math/bits"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"
)

const (
	// minPrecision is the minimum allowed precision (2^4 = 16 registers).
	minPrecision = 4

	// maxPrecision is the maximum allowed precision (2^18 = 262144 registers).
	maxPrecision = 18

	// hashBits is the total number of bits in the hash output.
	hashBits = 64

	// precisionP5 is precision 5 for alpha constant lookup.
	precisionP5 = 5

	// precisionP6 is precision 6 for alpha constant lookup.
	precisionP6 = 6

	// alphaP4 is the alpha constant for 2^4 = 16 registers.
	alphaP4 = 0.673

	// alphaP5 is the alpha constant for 2^5 = 32 registers.
	alphaP5 = 0.697

	// alphaP6 is the alpha constant for 2^6 = 64 registers.
	alphaP6 = 0.709

	// alphaGenericNumerator is the numerator in the generic alpha formula.
	alphaGenericNumerator = 0.7213

	// alphaGenericDenominatorCoeff is the coefficient in the generic alpha denominator.
	alphaGenericDenominatorCoeff = 1.079

	// LogLog-Beta polynomial coefficients from Qin et al. (2016).
	betaC0 = -0.370393911
	betaC1 = 0.070471823
	betaC2 = 0.17393686
	betaC3 = 0.16339839
	betaC4 = -0.09237745
	betaC5 = 0.03738027
	betaC6 = -0.005384159
	betaC7 = 0.00042419
)

// DefaultPrecision is the precision used for per-column distinct estimates.
const DefaultPrecision = 14

// ErrPrecisionOutOfRange is returned when precision is not in [4, 18].
var ErrPrecisionOutOfRange = errors.New("hll: precision must be in [4, 18]")

// Sketch is a HyperLogLog cardinality estimator. It is not safe for concurrent use;
// each profiling session owns its sketches exclusively.
type Sketch struct {
	registers []uint8
	precision uint8
}

// New creates a sketch with the given precision p in [4, 18].
func New(precision uint8) (*Sketch, error) {
	if precision < minPrecision || precision > maxPrecision {
		return nil, ErrPrecisionOutOfRange
	}

	return &Sketch{
		registers: make([]uint8, uint(1)<<precision),
		precision: precision,
	}, nil
}

// Precision returns the configured precision.
func (s *Sketch) Precision() uint8 {
	return s.precision
}

// Add hashes data and inserts it.
func (s *Sketch) Add(data []byte) {
	s.AddHash(hashutil.Mix64(hashutil.FNV64a(data)))
}

// AddString hashes s and inserts it. Equivalent to Add([]byte(s)).
func (s *Sketch) AddString(v string) {
	s.AddHash(hashutil.String64(v))
}

// AddHash inserts an already mixed 64-bit hash. The upper p bits select the
// register and the remaining bits provide the leading-zero rank.
func (s *Sketch) AddHash(hashVal uint64) {
	idx := hashVal >> (hashBits - s.precision)

	remaining := hashBits - uint(s.precision)
	mask := (uint64(1) << remaining) - 1
	rho := uint8(remaining-uint(bits.Len64(hashVal&mask))) + 1

	if rho > s.registers[idx] {
		s.registers[idx] = rho
	}
}

// Count returns the estimated number of distinct values added so far.
// Uses alpha * m * (m - ez) / (beta(ez) + sum).
func (s *Sketch) Count() uint64 {
	regCount := float64(uint(1) << s.precision)
	zeros := float64(countZeroRegisters(s.registers))

	if zeros == regCount {
		return 0
	}

	alphaM := alpha(s.precision)
	harmonicSum := computeHarmonicSum(s.registers)
	estimate := alphaM * regCount * (regCount - zeros) / (betaCorrection(zeros) + harmonicSum)

	return uint64(math.Round(estimate))
}

// countZeroRegisters counts registers that are still at zero.
func countZeroRegisters(registers []uint8) int {
	count := 0

	for _, val := range registers {
		if val == 0 {
			count++
		}
	}

	return count
}

// invPow2 caches 2^-k for every possible register value.
var invPow2 = func() [hashBits + 2]float64 {
	var table [hashBits + 2]float64
	for k := range table {
		table[k] = math.Exp2(-float64(k))
	}

	return table
}()

// computeHarmonicSum computes the sum of 2^(-M[j]) for all registers.
func computeHarmonicSum(registers []uint8) float64 {
	sum := 0.0

	for _, val := range registers {
		sum += invPow2[val]
	}

	return sum
}

// alpha returns the alpha_m constant used in the HLL estimate formula.
// For m >= 128, alpha_m = 0.7213 / (1 + 1.079/m).
func alpha(precision uint8) float64 {
	regCount := float64(uint(1) << precision)

	switch precision {
	case minPrecision:
		return alphaP4
	case precisionP5:
		return alphaP5
	case precisionP6:
		return alphaP6
	default:
		return alphaGenericNumerator / (1 + alphaGenericDenominatorCoeff/regCount)
	}
}

// betaCorrection computes the LogLog-Beta bias correction term from Qin et al. (2016).
// This polynomial approximation corrects for bias across all cardinality ranges.
func betaCorrection(zeroCount float64) float64 {
	zl := math.Log(zeroCount + 1)
	zl2 := zl * zl
	zl3 := zl2 * zl
	zl4 := zl3 * zl
	zl5 := zl4 * zl
	zl6 := zl5 * zl
	zl7 := zl6 * zl

	return betaC0*zeroCount +
		betaC1*zl +
		betaC2*zl2 +
		betaC3*zl3 +
		betaC4*zl4 +
		betaC5*zl5 +
		betaC6*zl6 +
		betaC7*zl7
}
