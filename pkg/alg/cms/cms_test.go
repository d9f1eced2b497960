package cms_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/cms"
)

const (
	standardEpsilon = 0.001
	standardDelta   = 0.001

	// width=ceil(e/0.001)=2719, depth=ceil(ln(1/0.001))=7.
	expectedWidth = uint(2719)
	expectedDepth = uint(7)

	overestN    = 10_000
	overestFreq = 100
)

func TestNew_Parameters(t *testing.T) {
	t.Parallel()

	sk, err := cms.New(standardEpsilon, standardDelta)
	require.NoError(t, err)
	assert.Equal(t, expectedWidth, sk.Width())
	assert.Equal(t, expectedDepth, sk.Depth())
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		epsilon float64
		delta   float64
		wantErr error
	}{
		{"zero_epsilon", 0, standardDelta, cms.ErrInvalidEpsilon},
		{"negative_epsilon", -1, standardDelta, cms.ErrInvalidEpsilon},
		{"zero_delta", standardEpsilon, 0, cms.ErrInvalidDelta},
		{"delta_one", standardEpsilon, 1, cms.ErrInvalidDelta},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := cms.New(tc.epsilon, tc.delta)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAdd_ExactForFewKeys(t *testing.T) {
	t.Parallel()

	sk, err := cms.New(standardEpsilon, standardDelta)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sk.Add("a", 1))
	assert.Equal(t, int64(3), sk.Add("a", 2))
	assert.Equal(t, int64(5), sk.Add("b", 5))

	assert.Equal(t, int64(3), sk.Count("a"))
	assert.Equal(t, int64(5), sk.Count("b"))
	assert.Equal(t, int64(0), sk.Count("missing"))
	assert.Equal(t, int64(8), sk.TotalCount())
}

func TestCount_NeverUnderestimates(t *testing.T) {
	t.Parallel()

	sk, err := cms.New(standardEpsilon, standardDelta)
	require.NoError(t, err)

	for i := range overestN {
		sk.Add(fmt.Sprintf("k-%d", i), 1)
	}

	sk.Add("hot", overestFreq)

	assert.GreaterOrEqual(t, sk.Count("hot"), int64(overestFreq))

	// Error bound: epsilon * total with high probability.
	bound := int64(overestFreq) + int64(standardEpsilon*float64(sk.TotalCount()))
	assert.LessOrEqual(t, sk.Count("hot"), bound)

	for i := range overestN {
		assert.GreaterOrEqual(t, sk.Count(fmt.Sprintf("k-%d", i)), int64(1))
	}
}
