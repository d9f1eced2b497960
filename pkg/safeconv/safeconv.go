// Package safeconv converts between integer types without silent wraparound.
package safeconv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow indicates a value that does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Uint64ToInt64 converts v, failing when it exceeds math.MaxInt64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d exceeds int64", ErrOverflow, v)
	}

	return int64(v), nil
}

// ClampToInt64 converts v, saturating at math.MaxInt64.
func ClampToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// NonNegative converts v to uint64, mapping negative values to zero.
func NonNegative[T ~int | ~int32 | ~int64](v T) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

// MustIntToUint converts int to uint, panics if negative.
// Use only when negative values are logically impossible.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}

// MustIntToUint8 converts int to uint8, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint8(v int) uint8 {
	if v < 0 || v > math.MaxUint8 {
		panic("safeconv: int to uint8 out of bounds")
	}

	return uint8(v)
}
