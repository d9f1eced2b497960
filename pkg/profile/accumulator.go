package profile

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/hll"
	"github.com/Sumatoshi-tech/datalens/pkg/alg/reservoir"
	"github.com/Sumatoshi-tech/datalens/pkg/alg/stats"
	"github.com/Sumatoshi-tech/datalens/pkg/alg/topk"
)

// Reservoir seeds. Fixed so that profiles are reproducible.
const (
	quantileSeed = 0x5eed_0001
	sampleSeed   = 0x5eed_0002
)

// arraySentinelFormat is the synthetic value recorded for an array field.
const arraySentinelFormat = "[array:%d]"

// rowList keeps the first cap row indices of an occurrence and counts the rest.
type rowList struct {
	rows  []int64
	limit int
	total int64
}

func (l *rowList) add(row int64) {
	l.total++

	if len(l.rows) < l.limit {
		l.rows = append(l.rows, row)
	}
}

func (l *rowList) reset() {
	l.rows = l.rows[:0]
	l.total = 0
}

func (l *rowList) snapshot() []int64 {
	out := make([]int64, len(l.rows))
	copy(out, l.rows)

	return out
}

// numericState is the running state of a column while it is numeric.
type numericState struct {
	moments   stats.Moments
	sum       float64
	min       float64
	max       float64
	quantiles *reservoir.Sample[float64]
}

// arrayState tracks lengths of array values.
type arrayState struct {
	count int64
	total int64
	min   int
	max   int
}

// Accumulator is the single-pass running state of one column.
// It is owned by one profiler and is not safe for concurrent use.
type Accumulator struct {
	name string
	opts *Options

	count   int64
	missing int64
	typ     DataType

	numeric *numericState

	distinct     *hll.Sketch
	lastDistinct uint64

	top     *topk.Table
	samples *reservoir.Sample[string]

	missingRows rowList
	outlierRows rowList
	piiRows     rowList

	minLen, maxLen int

	numericSeen int64
	piiCounts   [piiKindCount]int64
	arrays      *arrayState
	invalidUTF8 int64
}

// NewAccumulator creates the state for one column.
func NewAccumulator(name string, opts *Options) (*Accumulator, error) {
	distinct, err := hll.New(opts.HLLPrecision)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}

	top, err := topk.New(opts.TopKCapacity)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}

	return &Accumulator{
		name:        name,
		opts:        opts,
		distinct:    distinct,
		top:         top,
		samples:     reservoir.New[string](opts.SampleSize, sampleSeed),
		missingRows: rowList{limit: opts.MaxRowIndices},
		outlierRows: rowList{limit: opts.MaxRowIndices},
		piiRows:     rowList{limit: opts.MaxRowIndices},
	}, nil
}

// Name returns the column name.
func (a *Accumulator) Name() string {
	return a.name
}

// Count returns the number of non-missing values observed.
func (a *Accumulator) Count() int64 {
	return a.count
}

// Missing returns the number of missing observations, including rows in which
// the column was absent.
func (a *Accumulator) Missing() int64 {
	return a.missing
}

// Type returns the current inferred type.
func (a *Accumulator) Type() DataType {
	return a.typ
}

// DistinctEstimate returns the cardinality estimate. It is exact while the
// top-k table has never filled up. Successive calls never return a smaller
// value.
func (a *Accumulator) DistinctEstimate() uint64 {
	est := a.distinct.Count()
	if a.top.Len() < a.opts.TopKCapacity {
		est = uint64(a.top.Len())
	}

	a.lastDistinct = max(a.lastDistinct, est)

	return a.lastDistinct
}

// Observe ingests one raw textual value found in row.
func (a *Accumulator) Observe(row int64, raw string) {
	trimmed := strings.TrimSpace(raw)
	if IsMissing(trimmed) {
		a.ObserveMissing(row)

		return
	}

	kind, num := Classify(trimmed)
	a.observe(row, raw, trimmed, kind, num)
}

// ObserveMissing records a missing value (empty, null token, JSON null, or an
// absent field) in row.
func (a *Accumulator) ObserveMissing(row int64) {
	a.missing++
	a.missingRows.add(row)
}

// ObserveArray records an array of n elements in row. Array columns are
// always Mixed; the value is the sentinel "[array:n]".
func (a *Accumulator) ObserveArray(row int64, n int) {
	if a.arrays == nil {
		a.arrays = &arrayState{min: n, max: n}
	}

	a.arrays.count++
	a.arrays.total += int64(n)
	a.arrays.min = min(a.arrays.min, n)
	a.arrays.max = max(a.arrays.max, n)

	sentinel := fmt.Sprintf(arraySentinelFormat, n)
	a.observe(row, sentinel, sentinel, TypeMixed, 0)
}

// backfillMissing records rows [0, n) as missing for a column first seen at row n.
func (a *Accumulator) backfillMissing(n int64) {
	for row := range n {
		if len(a.missingRows.rows) >= a.missingRows.limit {
			break
		}

		a.missingRows.rows = append(a.missingRows.rows, row)
	}

	a.missing += n
	a.missingRows.total += n
}

func (a *Accumulator) observe(row int64, raw, trimmed string, kind DataType, num float64) {
	a.count++

	if !utf8.ValidString(raw) {
		a.invalidUTF8++
	}

	a.vote(kind)

	if kind.IsNumeric() {
		a.numericSeen++

		if a.numeric != nil {
			a.observeNumeric(row, num)
		}
	}

	a.distinct.AddString(raw)
	a.top.Add(raw)

	n := utf8.RuneCountInString(raw)
	if a.count == 1 {
		a.minLen, a.maxLen = n, n
	} else {
		a.minLen = min(a.minLen, n)
		a.maxLen = max(a.maxLen, n)
	}

	if pii := DetectPII(trimmed); pii != PIINone {
		a.piiCounts[pii]++
		a.piiRows.add(row)
	}

	a.samples.Offer(raw)
}

// vote joins kind into the column type. Entering a numeric type creates the
// numeric state; leaving the numeric types discards it for good.
func (a *Accumulator) vote(kind DataType) {
	prev := a.typ
	a.typ = Join(a.typ, kind)

	switch {
	case prev == TypeNull && a.typ.IsNumeric():
		a.numeric = &numericState{
			min:       math.Inf(1),
			max:       math.Inf(-1),
			quantiles: reservoir.New[float64](a.opts.QuantileSamples, quantileSeed),
		}
	case prev.IsNumeric() && !a.typ.IsNumeric():
		a.numeric = nil
		a.outlierRows.reset()
	}
}

func (a *Accumulator) observeNumeric(row int64, v float64) {
	ns := a.numeric

	if ns.moments.N >= a.opts.OutlierMinValues {
		if sd := ns.moments.StdDev(); sd > 0 && math.Abs(v-ns.moments.Mean) > a.opts.OutlierSigma*sd {
			a.outlierRows.add(row)
		}
	}

	ns.moments.Add(v)
	ns.sum += v
	ns.min = min(ns.min, v)
	ns.max = max(ns.max, v)
	ns.quantiles.Offer(v)
}

// Progress returns the running counters reported after each chunk.
func (a *Accumulator) Progress() ColumnProgress {
	return ColumnProgress{
		Name:             a.name,
		Count:            a.count,
		Missing:          a.missing,
		DistinctEstimate: a.DistinctEstimate(),
	}
}
