package profile_test

import (
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

func newProfiler(t *testing.T, mutate ...func(*profile.Options)) *profile.Profiler {
	t.Helper()

	opts := profile.DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}

	p, err := profile.NewProfiler(opts, nil)
	require.NoError(t, err)

	return p
}

const (
	wideColumns     = 500
	wideHeapBudget  = 24 << 20
	lowCardinality  = 20
	wideProfileRows = 200
)

func heapInUse() uint64 {
	runtime.GC()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return ms.HeapAlloc
}

func text(name, value string) profile.Field {
	return profile.Field{Name: name, Text: value}
}

func TestNewProfiler_InvalidOptions(t *testing.T) {
	t.Parallel()

	opts := profile.DefaultOptions()
	opts.TopKCapacity = 0

	_, err := profile.NewProfiler(opts, nil)
	require.ErrorIs(t, err, profile.ErrInvalidTopK)

	opts = profile.DefaultOptions()
	opts.HLLPrecision = 30

	_, err = profile.NewProfiler(opts, nil)
	require.ErrorIs(t, err, profile.ErrInvalidPrecision)
}

func TestProfiler_HeterogeneousRecords(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)

	require.NoError(t, p.Row([]profile.Field{text("a", "1")}))
	require.NoError(t, p.Row([]profile.Field{text("a", "2"), text("b", "x")}))
	require.NoError(t, p.Row([]profile.Field{text("b", "y"), {Name: "c", Kind: profile.FieldNull}}))

	res := p.Finalize()

	assert.Equal(t, int64(3), res.TotalRows)
	assert.Equal(t, []string{"a", "b", "c"}, p.Columns())

	for _, cp := range res.ColumnProfiles {
		assert.Equal(t, res.TotalRows, cp.BaseStats.Count+cp.BaseStats.Missing, cp.Name)
	}

	b := res.Column("b")
	require.NotNil(t, b)
	assert.Equal(t, []int64{0}, b.MissingRows)

	c := res.Column("c")
	require.NotNil(t, c)
	assert.Equal(t, []int64{0, 1, 2}, c.MissingRows)
	assert.Equal(t, profile.TypeNull, c.BaseStats.InferredType)

	assert.Nil(t, res.Column("missing"))
}

func TestProfiler_DuplicateKeyKeepsFirst(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)
	require.NoError(t, p.Row([]profile.Field{text("a", "1"), text("a", "x")}))

	a := p.Finalize().Column("a")
	require.NotNil(t, a)
	assert.Equal(t, int64(1), a.BaseStats.Count)
	assert.Equal(t, profile.TypeInteger, a.BaseStats.InferredType)
}

func TestProfiler_DuplicateRows(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)
	require.NoError(t, p.DeclareColumns([]string{"k", "v"}))

	for range 3 {
		require.NoError(t, p.Row([]profile.Field{text("k", "1"), text("v", "a")}))
	}

	require.NoError(t, p.Row([]profile.Field{text("k", "2"), text("v", "a")}))

	res := p.Finalize()
	assert.Equal(t, int64(2), res.DuplicateRows)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, profile.IssueDuplicateRows, res.Issues[0].ID)
	assert.Equal(t, profile.SeverityError, res.Issues[0].Severity)
}

func TestProfiler_DuplicateCheckDisabled(t *testing.T) {
	t.Parallel()

	p := newProfiler(t, func(o *profile.Options) { o.DuplicateRows = 0 })

	for range 2 {
		require.NoError(t, p.Row([]profile.Field{text("k", "1")}))
	}

	assert.Zero(t, p.Finalize().DuplicateRows)
}

func TestProfiler_ColumnLimit(t *testing.T) {
	t.Parallel()

	p := newProfiler(t, func(o *profile.Options) { o.MaxColumns = 2 })

	require.NoError(t, p.Row([]profile.Field{text("a", "1"), text("b", "2"), text("c", "3")}))
	require.NoError(t, p.Row([]profile.Field{text("a", "1"), text("c", "3")}))

	res := p.Finalize()
	assert.Len(t, res.ColumnProfiles, 2)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, profile.IssueDroppedColumns, res.Issues[0].ID)
	assert.Contains(t, res.Issues[0].Message, "[c]")
}

func TestProfiler_Malformed(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)
	require.NoError(t, p.Row([]profile.Field{text("a", "1")}))
	p.Malformed()

	res := p.Finalize()
	assert.Equal(t, int64(1), res.MalformedRows)
	assert.Equal(t, profile.IssueMalformedRows, res.Issues[0].ID)
}

func TestProfiler_HeaderOnly(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)
	require.NoError(t, p.DeclareColumns([]string{"x", "y", "x"}))

	res := p.Finalize()
	assert.Zero(t, res.TotalRows)
	require.Len(t, res.ColumnProfiles, 2)

	for _, cp := range res.ColumnProfiles {
		assert.Equal(t, profile.TypeNull, cp.BaseStats.InferredType)
		assert.Zero(t, cp.Quality.Completeness)
		assert.Empty(t, cp.Quality.Issues)
		assert.InDelta(t, 1, cp.Quality.Score, 1e-12)
	}
}

func TestProfiler_Progress(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)

	var last []profile.ColumnProgress

	for i := range largeColumn {
		require.NoError(t, p.Row([]profile.Field{text("id", strconv.Itoa(i)), text("flag", "yes")}))

		if i%5000 == 4999 {
			progress := p.Progress()
			require.Len(t, progress, 2)

			if last != nil {
				assert.GreaterOrEqual(t, progress[0].DistinctEstimate, last[0].DistinctEstimate)
			}

			assert.Equal(t, int64(i+1), progress[0].Count)
			assert.Equal(t, uint64(1), progress[1].DistinctEstimate)

			last = progress
		}
	}

	res := p.Finalize()
	assert.Equal(t, int64(largeColumn), res.TotalRows)
	assert.InDelta(t, largeColumn, float64(res.Column("id").BaseStats.DistinctEstimate), 0.03*largeColumn)
	assert.Zero(t, res.DuplicateRows)
}

func TestProfiler_InvalidUTF8ResultIssue(t *testing.T) {
	t.Parallel()

	p := newProfiler(t)
	require.NoError(t, p.Row([]profile.Field{text("a", "caf\xe9"), text("b", "ok")}))
	require.NoError(t, p.Row([]profile.Field{text("a", "ok"), text("b", "\xff\xfe")}))

	res := p.Finalize()

	var ids []string
	for _, issue := range res.Issues {
		ids = append(ids, issue.ID)
	}

	assert.Contains(t, ids, profile.IssueInvalidUTF8)
	assert.Contains(t, res.Issues[len(res.Issues)-1].Message, "2 values")
}

// Not parallel: it measures the heap.
func TestProfiler_WideLowCardinalityMemory(t *testing.T) {
	names := make([]string, wideColumns)
	for i := range names {
		names[i] = "c" + strconv.Itoa(i)
	}

	before := heapInUse()

	p := newProfiler(t)
	require.NoError(t, p.DeclareColumns(names))

	fields := make([]profile.Field, len(names))
	for row := range wideProfileRows {
		for i, name := range names {
			fields[i] = text(name, strconv.Itoa(row%lowCardinality))
		}

		require.NoError(t, p.Row(fields))
	}

	after := heapInUse()
	runtime.KeepAlive(p)

	var grown uint64
	if after > before {
		grown = after - before
	}

	assert.Less(t, grown, uint64(wideHeapBudget))
	assert.Equal(t, int64(wideProfileRows), p.Rows())
}
