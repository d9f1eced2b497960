package bloom_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/bloom"
	"github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"
)

const (
	expectedN = 10_000
	fpRate    = 0.01

	// m = ceil(-10000 * ln(0.01) / ln(2)^2) = 95851, k = round(m/n * ln 2) = 7.
	expectedBits   = uint(95851)
	expectedHashes = uint(7)

	// Fresh probes after the filter is full; each probe is also inserted.
	freshProbes = 1000

	// Allowed false positives among the fresh probes (about 3x the expected rate).
	maxFalsePositives = 50
)

func TestNewWithEstimates(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(expectedN, fpRate)
	require.NoError(t, err)
	assert.Equal(t, expectedBits, f.BitCount())
	assert.Equal(t, expectedHashes, f.HashCount())

	_, err = bloom.NewWithEstimates(0, fpRate)
	require.ErrorIs(t, err, bloom.ErrZeroN)

	_, err = bloom.NewWithEstimates(expectedN, 1)
	require.ErrorIs(t, err, bloom.ErrInvalidFP)
}

func TestTestAndAdd(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(expectedN, fpRate)
	require.NoError(t, err)

	for i := range expectedN {
		f.TestAndAdd(hashutil.String64(fmt.Sprintf("row-%d", i)))
	}

	// Every inserted element is reported present.
	for i := range expectedN {
		assert.True(t, f.TestAndAdd(hashutil.String64(fmt.Sprintf("row-%d", i))))
	}

	falsePositives := 0

	for i := range freshProbes {
		if f.TestAndAdd(hashutil.String64(fmt.Sprintf("fresh-%d", i))) {
			falsePositives++
		}
	}

	assert.Less(t, falsePositives, maxFalsePositives)
	assert.Equal(t, uint(2*expectedN+freshProbes), f.Count())
	assert.Greater(t, f.FillRatio(), 0.0)
	assert.LessOrEqual(t, f.FillRatio(), 1.0)
}
