package stats

import "math"

// Moments accumulates count, mean, and the central moment sums M2, M3, M4 in
// one pass using the incremental update of Terriberry (2007), an extension of
// Welford's method. The zero value is ready to use.
type Moments struct {
	N    int64
	Mean float64
	M2   float64
	M3   float64
	M4   float64
}

// Add incorporates x.
func (m *Moments) Add(x float64) {
	prev := float64(m.N)
	m.N++
	n := float64(m.N)

	delta := x - m.Mean
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * prev

	m.Mean += deltaN
	m.M4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*m.M2 - 4*deltaN*m.M3
	m.M3 += term1*deltaN*(n-2) - 3*deltaN*m.M2
	m.M2 += term1
}

// Variance returns the sample variance M2/(n−1), or 0 for fewer than two values.
func (m *Moments) Variance() float64 {
	if m.N < 2 {
		return 0
	}

	return m.M2 / float64(m.N-1)
}

// StdDev returns the sample standard deviation.
func (m *Moments) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// Skewness returns the sample skewness g1 = sqrt(n)·M3 / M2^1.5, or 0 for a
// constant series.
func (m *Moments) Skewness() float64 {
	if m.M2 == 0 {
		return 0
	}

	return math.Sqrt(float64(m.N)) * m.M3 / math.Pow(m.M2, 1.5)
}

// Kurtosis returns the excess kurtosis n·M4 / M2² − 3, or 0 for a constant series.
func (m *Moments) Kurtosis() float64 {
	if m.M2 == 0 {
		return 0
	}

	return float64(m.N)*m.M4/(m.M2*m.M2) - 3
}

// CoMoments accumulates the running co-moment of paired observations for a
// single-pass Pearson correlation. The zero value is ready to use.
type CoMoments struct {
	N     int64
	MeanX float64
	MeanY float64
	M2X   float64
	M2Y   float64
	C     float64
}

// Add incorporates the pair (x, y).
func (c *CoMoments) Add(x, y float64) {
	c.N++
	n := float64(c.N)

	dx := x - c.MeanX
	dy := y - c.MeanY

	c.MeanX += dx / n
	c.MeanY += dy / n

	c.M2X += dx * (x - c.MeanX)
	c.M2Y += dy * (y - c.MeanY)
	c.C += dx * (y - c.MeanY)
}

// Pearson returns the correlation coefficient clamped to [-1, 1]. It returns 0
// for fewer than two pairs or when either side has zero variance.
func (c *CoMoments) Pearson() float64 {
	if c.N < 2 || c.M2X == 0 || c.M2Y == 0 {
		return 0
	}

	return Clamp(c.C/math.Sqrt(c.M2X*c.M2Y), -1, 1)
}
