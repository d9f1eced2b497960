package profile

import (
	"math"
	"slices"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/stats"
)

// percentScale converts a fraction to a percentage.
const percentScale = 100

// Profile finalizes the accumulated state into a ColumnProfile. It does not
// mutate the accumulator beyond the monotonic distinct estimate.
func (a *Accumulator) Profile() ColumnProfile {
	distinct := a.DistinctEstimate()

	cp := ColumnProfile{
		Name: a.name,
		BaseStats: BaseStats{
			Count:            a.count,
			Missing:          a.missing,
			DistinctEstimate: distinct,
			InferredType:     a.typ,
		},
		SampleValues: slices.Clone(a.samples.Items()),
		MissingRows:  a.missingRows.snapshot(),
		PIIRows:      a.piiRows.snapshot(),
		OutlierRows:  a.outlierRows.snapshot(),
	}

	if cp.SampleValues == nil {
		cp.SampleValues = []string{}
	}

	if a.count > 0 {
		minLen, maxLen := a.minLen, a.maxLen
		cp.MinLength = &minLen
		cp.MaxLength = &maxLen
	}

	if a.typ.IsNumeric() && a.numeric != nil && a.numeric.moments.N > 0 {
		sorted := slices.Clone(a.numeric.quantiles.Items())
		slices.Sort(sorted)

		cp.NumericStats = a.numericStats(sorted)
		cp.Histogram = buildHistogram(sorted, a.numeric.min, a.numeric.max, a.numeric.moments.N)
	}

	if a.count > 0 && !a.typ.IsNumeric() {
		cp.CategoricalStats = a.categoricalStats(distinct)
	}

	if a.arrays != nil {
		cp.ArrayStats = &ArrayStats{
			Count:      a.arrays.count,
			MinLength:  a.arrays.min,
			MaxLength:  a.arrays.max,
			MeanLength: float64(a.arrays.total) / float64(a.arrays.count),
		}
	}

	cp.Quality = a.quality(distinct)

	cp.Notes = make([]string, 0, len(cp.Quality.Issues))
	for _, issue := range cp.Quality.Issues {
		cp.Notes = append(cp.Notes, issue.Message)
	}

	return cp
}

func (a *Accumulator) numericStats(sorted []float64) *NumericStats {
	ns := a.numeric
	m := &ns.moments

	return &NumericStats{
		Min:      ns.min,
		Max:      ns.max,
		Mean:     m.Mean,
		Median:   stats.PercentileSorted(sorted, stats.PercentileMedian),
		StdDev:   m.StdDev(),
		Variance: m.Variance(),
		Skewness: m.Skewness(),
		Kurtosis: m.Kurtosis(),
		Sum:      ns.sum,
		P25:      stats.PercentileSorted(sorted, stats.PercentileP25),
		P75:      stats.PercentileSorted(sorted, stats.PercentileP75),
		P90:      stats.PercentileSorted(sorted, stats.PercentileP90),
		P95:      stats.PercentileSorted(sorted, stats.PercentileP95),
		P99:      stats.PercentileSorted(sorted, stats.PercentileP99),
	}
}

func (a *Accumulator) categoricalStats(distinct uint64) *CategoricalStats {
	entries := a.top.Top(a.opts.TopValues)
	top := make([]TopValue, len(entries))

	for i, e := range entries {
		top[i] = TopValue{
			Value:      e.Value,
			Count:      e.Count,
			Percentage: roundTo(float64(e.Count)/float64(a.count)*percentScale, percentDecimals),
		}
	}

	return &CategoricalStats{TopValues: top, UniqueCount: distinct}
}

// percentDecimals is the precision of reported percentages.
const percentDecimals = 4

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)

	return math.Round(v*p) / p
}
