package profile

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/hll"
)

// Default accumulator bounds.
const (
	DefaultTopKCapacity     = 1000
	DefaultTopValues        = 10
	DefaultMaxRowIndices    = 100
	DefaultSampleSize       = 10
	DefaultQuantileSamples  = 8192
	DefaultMaxColumns       = 1000
	DefaultDuplicateRows    = 1_000_000
	DefaultDuplicateFPRate  = 0.001
	DefaultOutlierSigma     = 3.0
	DefaultOutlierMinValues = 10
)

// Option validation errors.
var (
	ErrInvalidTopK      = errors.New("top-k capacity must be positive")
	ErrInvalidBound     = errors.New("bounds must not be negative")
	ErrInvalidSigma     = errors.New("outlier sigma must be positive")
	ErrInvalidPrecision = errors.New("hll precision out of range")
)

// Options bound the memory of every accumulator and of the row-level checks.
type Options struct {
	TopKCapacity     int
	TopValues        int
	MaxRowIndices    int
	SampleSize       int
	QuantileSamples  int
	MaxColumns       int
	HLLPrecision     uint8
	OutlierSigma     float64
	OutlierMinValues int64

	// DuplicateRows sizes the duplicate-row filter; zero disables the check.
	DuplicateRows   uint
	DuplicateFPRate float64
}

// DefaultOptions returns the bounds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TopKCapacity:     DefaultTopKCapacity,
		TopValues:        DefaultTopValues,
		MaxRowIndices:    DefaultMaxRowIndices,
		SampleSize:       DefaultSampleSize,
		QuantileSamples:  DefaultQuantileSamples,
		MaxColumns:       DefaultMaxColumns,
		HLLPrecision:     hll.DefaultPrecision,
		OutlierSigma:     DefaultOutlierSigma,
		OutlierMinValues: DefaultOutlierMinValues,
		DuplicateRows:    DefaultDuplicateRows,
		DuplicateFPRate:  DefaultDuplicateFPRate,
	}
}

// Validate checks the options for values the accumulators cannot honor.
func (o Options) Validate() error {
	if o.TopKCapacity <= 0 {
		return ErrInvalidTopK
	}

	if o.TopValues < 0 || o.MaxRowIndices < 0 || o.SampleSize < 0 || o.QuantileSamples < 0 || o.MaxColumns < 0 {
		return ErrInvalidBound
	}

	if o.OutlierSigma <= 0 {
		return ErrInvalidSigma
	}

	if _, err := hll.New(o.HLLPrecision); err != nil {
		return fmt.Errorf("%w: %d", ErrInvalidPrecision, o.HLLPrecision)
	}

	return nil
}
