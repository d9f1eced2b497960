package reservoir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/reservoir"
)

const (
	capacity   = 100
	streamLen  = 100_000
	testSeed   = 42
	bucketSize = streamLen / 10

	// Every tenth of the stream must be represented in the sample.
	minBucketShare = 1
)

func TestSample_KeepsAllUntilFull(t *testing.T) {
	t.Parallel()

	s := reservoir.New[int](capacity, testSeed)

	for i := range capacity {
		s.Offer(i)
	}

	require.Len(t, s.Items(), capacity)
	assert.True(t, s.Complete())

	for i, v := range s.Items() {
		assert.Equal(t, i, v)
	}

	s.Offer(capacity)
	assert.Len(t, s.Items(), capacity)
	assert.False(t, s.Complete())
	assert.Equal(t, uint64(capacity+1), s.Seen())
}

func TestSample_Deterministic(t *testing.T) {
	t.Parallel()

	a := reservoir.New[int](capacity, testSeed)
	b := reservoir.New[int](capacity, testSeed)

	for i := range streamLen {
		a.Offer(i)
		b.Offer(i)
	}

	assert.Equal(t, a.Items(), b.Items())
}

func TestSample_Uniform(t *testing.T) {
	t.Parallel()

	s := reservoir.New[int](capacity, testSeed)

	for i := range streamLen {
		s.Offer(i)
	}

	buckets := make([]int, streamLen/bucketSize)
	for _, v := range s.Items() {
		buckets[v/bucketSize]++
	}

	for i, n := range buckets {
		assert.GreaterOrEqual(t, n, minBucketShare, "bucket %d", i)
	}
}

func TestSample_ZeroCapacity(t *testing.T) {
	t.Parallel()

	s := reservoir.New[string](0, testSeed)
	s.Offer("x")

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Cap())
	assert.Equal(t, uint64(1), s.Seen())
}
