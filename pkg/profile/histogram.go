package profile

import (
	"cmp"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/stats"
)

// Histogram bin count bounds.
const (
	minBins = 5
	maxBins = 50
)

// binCount applies Sturges' rule, ceil(log2 n) + 1, clamped to [minBins, maxBins].
func binCount(n int64) int {
	if n <= 1 {
		return minBins
	}

	return stats.Clamp(int(math.Ceil(math.Log2(float64(n))))+1, minBins, maxBins)
}

// buildHistogram bins the sorted sample over [lo, hi] and scales the counts to
// a population of size total. A constant column yields one bin.
func buildHistogram(sorted []float64, lo, hi float64, total int64) *Histogram {
	if len(sorted) == 0 {
		return nil
	}

	if lo == hi {
		return &Histogram{
			Bins: []HistogramBin{{Start: lo, End: hi, Count: total}},
			Min:  lo,
			Max:  hi,
		}
	}

	bins := binCount(total)
	width := (hi - lo) / float64(bins)
	counts := make([]int64, bins)

	for _, v := range sorted {
		idx := int((v - lo) / width)
		counts[stats.Clamp(idx, 0, bins-1)]++
	}

	if int64(len(sorted)) != total {
		counts = scaleCounts(counts, int64(len(sorted)), total)
	}

	out := &Histogram{
		Bins:     make([]HistogramBin, bins),
		Min:      lo,
		Max:      hi,
		BinWidth: width,
	}

	for i := range bins {
		out.Bins[i] = HistogramBin{
			Start: lo + float64(i)*width,
			End:   lo + float64(i+1)*width,
			Count: counts[i],
		}
	}

	out.Bins[bins-1].End = hi

	return out
}

// scaleCounts rescales sample counts to total with the largest-remainder
// method, so the scaled counts sum to exactly total.
func scaleCounts(counts []int64, sampled, total int64) []int64 {
	type remainder struct {
		idx  int
		frac float64
	}

	scaled := make([]int64, len(counts))
	rems := make([]remainder, len(counts))
	assigned := int64(0)
	factor := float64(total) / float64(sampled)

	for i, c := range counts {
		exact := float64(c) * factor
		scaled[i] = int64(math.Floor(exact))
		rems[i] = remainder{idx: i, frac: exact - float64(scaled[i])}
		assigned += scaled[i]
	}

	slices.SortStableFunc(rems, func(a, b remainder) int {
		return cmp.Compare(b.frac, a.frac)
	})

	for i := int64(0); i < total-assigned && int(i) < len(rems); i++ {
		scaled[rems[i].idx]++
	}

	return scaled
}
