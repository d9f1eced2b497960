package topk_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/topk"
)

const (
	smallCapacity = 3
	heavyHitters  = 5
	heavyCount    = 200
	noiseValues   = 5_000
)

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	_, err := topk.New(0)
	require.ErrorIs(t, err, topk.ErrInvalidCapacity)
}

func TestTable_ExactBelowCapacity(t *testing.T) {
	t.Parallel()

	tbl, err := topk.New(smallCapacity)
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "a", "c", "a", "b"} {
		tbl.Add(v)
	}

	assert.Equal(t, []topk.Entry{{"a", 3}, {"b", 2}, {"c", 1}}, tbl.Top(10))
	assert.Equal(t, 3, tbl.Len())
	assert.Zero(t, tbl.Evictions())
}

func TestTable_TieKeepsEarlierKey(t *testing.T) {
	t.Parallel()

	tbl, err := topk.New(2)
	require.NoError(t, err)

	tbl.Add("first")
	tbl.Add("second")

	// Newcomer's count (1) does not exceed the minimum (1): rejected.
	tbl.Add("third")

	assert.Equal(t, []topk.Entry{{"first", 1}, {"second", 1}}, tbl.Top(2))
	assert.Zero(t, tbl.Evictions())
}

func TestTable_NewcomerEvictsLatestOfTiedMinimum(t *testing.T) {
	t.Parallel()

	tbl, err := topk.New(2)
	require.NoError(t, err)

	tbl.Add("first")
	tbl.Add("second")
	tbl.Add("third")
	tbl.Add("third")

	// "third" has been seen twice; it replaces "second", the later of the tied keys.
	assert.Equal(t, []topk.Entry{{"third", 2}, {"first", 1}}, tbl.Top(2))
	assert.Equal(t, int64(1), tbl.Evictions())
}

func TestTable_HeavyHittersSurviveNoise(t *testing.T) {
	t.Parallel()

	tbl, err := topk.New(heavyHitters * 2)
	require.NoError(t, err)

	for i := range noiseValues {
		tbl.Add(fmt.Sprintf("noise-%d", i))

		if i%(noiseValues/heavyCount) == 0 {
			for h := range heavyHitters {
				tbl.Add(fmt.Sprintf("heavy-%d", h))
			}
		}
	}

	top := tbl.Top(heavyHitters)
	require.Len(t, top, heavyHitters)

	for _, e := range top {
		assert.Contains(t, e.Value, "heavy-")
		assert.GreaterOrEqual(t, e.Count, int64(heavyCount))
	}
}

func TestTable_SketchBuiltOnFirstOverflow(t *testing.T) {
	t.Parallel()

	tbl, err := topk.New(2)
	require.NoError(t, err)

	for _, v := range []string{"a", "a", "b", "a"} {
		tbl.Add(v)
	}

	assert.False(t, tbl.Sketched())

	// The seeded sketch still knows "a" and "b", so "c" needs two hits.
	tbl.Add("c")
	assert.True(t, tbl.Sketched())
	assert.Equal(t, []topk.Entry{{"a", 3}, {"b", 1}}, tbl.Top(2))

	tbl.Add("c")
	assert.Equal(t, []topk.Entry{{"a", 3}, {"c", 2}}, tbl.Top(2))
	assert.Equal(t, int64(1), tbl.Evictions())
}
