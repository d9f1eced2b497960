// Package stats provides the numeric building blocks of column profiling:
// two-pass reference statistics, interpolated percentiles, and the single-pass
// Welford moment and co-moment accumulators in moments.go.
//
// MeanStdDev uses the population stddev (÷n); SampleVariance and the
// accumulators use the sample variance (÷(n−1)).
package stats

import (
	"cmp"
	"math"
	"slices"
)

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// SampleVariance returns the two-pass sample variance (÷(n−1)).
// Returns 0 for fewer than two values.
func SampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return sumSq / float64(len(values)-1)
}

// Percentiles reported for numeric columns.
const (
	PercentileP25    = 0.25
	PercentileMedian = 0.5
	PercentileP75    = 0.75
	PercentileP90    = 0.9
	PercentileP95    = 0.95
	PercentileP99    = 0.99
)

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified (a copy is sorted internally).
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for an already ascending slice.
func PercentileSorted(sorted []float64, p float64) float64 {
	count := len(sorted)
	if count == 0 {
		return 0
	}

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 50th percentile of values.
// Returns 0 for an empty slice.
func Median(values []float64) float64 {
	return Percentile(values, PercentileMedian)
}

// Clamp restricts val to the range [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}
