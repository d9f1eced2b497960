package engine_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

const (
	peopleCSV   = "id,name,score\n1,Ann,3.5\n2,\"Bob, Jr.\",x\n3,Cy,4\n4,Dee,\n"
	quotedRow   = "1,\"Bob, Jr.\",x\n"
	linesJSON   = "{\"id\":1,\"tags\":[1,2]}\n{\"id\":2,\"user\":{\"name\":\"a\"}}\n{\"id\":\"x\"}\n"
	smallBuffer = 8

	// firstRowEnd is the offset just past "1,Ann,3.5\n" in peopleCSV.
	firstRowEnd = 24
)

func newEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()

	e, err := engine.New(opts)
	require.NoError(t, err)

	return e
}

func profileChunks(t *testing.T, cfg engine.SessionConfig, data string, size int) *profile.ProfileResult {
	t.Helper()

	ctx := context.Background()
	e := newEngine(t, engine.Options{})

	require.NoError(t, e.Start(ctx, cfg))

	for start := 0; start < len(data); start += size {
		_, err := e.ProcessChunk(ctx, []byte(data[start:min(start+size, len(data))]))
		require.NoError(t, err)
	}

	res, err := e.Finalize(ctx)
	require.NoError(t, err)

	return res
}

func TestEngine_DelimitedLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, engine.Options{})
	assert.Equal(t, engine.StateIdle, e.State())

	require.NoError(t, e.Start(ctx, engine.SessionConfig{HasHeader: true}))
	assert.Equal(t, engine.StateInitialized, e.State())

	out, err := e.ProcessChunk(ctx, []byte(peopleCSV[:firstRowEnd+1]))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, engine.StateAccumulating, e.State())
	assert.Equal(t, int64(1), out.RowsInChunk)
	assert.Positive(t, out.BufferedBytes)
	require.Len(t, out.Columns, 3)
	assert.Equal(t, "id", out.Columns[0].Name)

	out, err = e.ProcessChunk(ctx, []byte(peopleCSV[firstRowEnd+1:]))
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.TotalRows)

	res, err := e.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StateFinalized, e.State())

	assert.Equal(t, int64(4), res.TotalRows)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, ",", res.Delimiter)
	assert.Equal(t, "utf-8", res.Encoding)

	name := res.Column("name")
	require.NotNil(t, name)
	assert.Equal(t, profile.TypeString, name.BaseStats.InferredType)

	score := res.Column("score")
	require.NotNil(t, score)
	assert.Equal(t, int64(3), score.BaseStats.Count)
	assert.Equal(t, int64(1), score.BaseStats.Missing)
	assert.Equal(t, profile.TypeString, score.BaseStats.InferredType)
}

func TestEngine_QuotedDelimiter(t *testing.T) {
	t.Parallel()

	res := profileChunks(t, engine.SessionConfig{}, quotedRow, 1)

	require.Len(t, res.ColumnProfiles, 3)
	assert.Equal(t, int64(1), res.TotalRows)
	assert.Equal(t, []string{"Bob, Jr."}, res.ColumnProfiles[1].SampleValues)
	assert.Equal(t, []string{"x"}, res.ColumnProfiles[2].SampleValues)
}

func TestEngine_ChunkInvariance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  engine.SessionConfig
		data string
	}{
		{"csv", engine.SessionConfig{HasHeader: true}, peopleCSV},
		{"jsonl", engine.SessionConfig{Format: parser.FormatJSON}, linesJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want, err := json.Marshal(profileChunks(t, tt.cfg, tt.data, len(tt.data)))
			require.NoError(t, err)

			for _, size := range []int{1, 2, 7, 16} {
				got, err := json.Marshal(profileChunks(t, tt.cfg, tt.data, size))
				require.NoError(t, err)
				assert.JSONEq(t, string(want), string(got), "chunk size %d", size)
			}
		})
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, format := range []parser.Format{parser.FormatDelimited, parser.FormatJSON, parser.FormatParquet} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			e := newEngine(t, engine.Options{})

			require.NoError(t, e.Start(ctx, engine.SessionConfig{Format: format, HasHeader: true}))

			res, err := e.Finalize(ctx)
			require.NoError(t, err)

			assert.Equal(t, int64(0), res.TotalRows)
			assert.Empty(t, res.ColumnProfiles)
			assert.Empty(t, res.Issues)
			assert.Equal(t, engine.StateFinalized, e.State())
		})
	}
}

func TestEngine_StateErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, engine.Options{})

	_, err := e.ProcessChunk(ctx, []byte("a\n"))
	require.ErrorIs(t, err, engine.ErrState)
	assert.Equal(t, engine.StateIdle, e.State())

	_, err = e.Finalize(ctx)
	require.ErrorIs(t, err, engine.ErrState)

	require.NoError(t, e.Start(ctx, engine.SessionConfig{}))
	_, err = e.Finalize(ctx)
	require.NoError(t, err)

	_, err = e.ProcessChunk(ctx, []byte("a\n"))
	require.ErrorIs(t, err, engine.ErrState)
	assert.Equal(t, engine.StateFinalized, e.State())

	_, err = e.Finalize(ctx)
	require.ErrorIs(t, err, engine.ErrState)
	assert.Equal(t, engine.StateFinalized, e.State())

	e.Discard(ctx)
	assert.Equal(t, engine.StateIdle, e.State())
}

func TestEngine_ImplicitDiscard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	e := newEngine(t, engine.Options{Metrics: rec})

	require.NoError(t, e.Start(ctx, engine.SessionConfig{HasHeader: true}))
	_, err := e.ProcessChunk(ctx, []byte(peopleCSV))
	require.NoError(t, err)

	require.NoError(t, e.Start(ctx, engine.SessionConfig{Format: parser.FormatJSONLines}))
	assert.Equal(t, engine.StateInitialized, e.State())

	res, err := e.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalRows)
	assert.Equal(t, "jsonl", res.Format)

	assert.Equal(t, []string{observability.OutcomeDiscarded, observability.OutcomeFinalized}, rec.outcomes())
}

func TestEngine_InvalidConfigKeepsSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, engine.Options{})

	require.NoError(t, e.Start(ctx, engine.SessionConfig{HasHeader: true}))
	_, err := e.ProcessChunk(ctx, []byte(peopleCSV))
	require.NoError(t, err)

	tests := []engine.SessionConfig{
		{Format: "toml"},
		{Encoding: "ebcdic"},
		{Delimiter: '"'},
	}

	for _, cfg := range tests {
		require.ErrorIs(t, e.Start(ctx, cfg), engine.ErrConfig)
	}

	assert.Equal(t, engine.StateAccumulating, e.State())

	res, err := e.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.TotalRows)
}

func TestEngine_ResourceErrorIsTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	e := newEngine(t, engine.Options{MaxBufferBytes: smallBuffer, Metrics: rec})

	require.NoError(t, e.Start(ctx, engine.SessionConfig{Format: parser.FormatParquet}))

	out, err := e.ProcessChunk(ctx, []byte("PAR1"))
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = e.ProcessChunk(ctx, []byte("more than eight bytes"))
	require.ErrorIs(t, err, engine.ErrResource)
	require.ErrorIs(t, err, parser.ErrBufferLimit)
	assert.Equal(t, engine.StateErrored, e.State())

	_, err = e.ProcessChunk(ctx, []byte("x"))
	require.ErrorIs(t, err, engine.ErrState)

	_, err = e.Finalize(ctx)
	require.ErrorIs(t, err, engine.ErrState)
	assert.Equal(t, engine.StateErrored, e.State())

	assert.Equal(t, []string{observability.OutcomeErrored}, rec.outcomes())

	require.NoError(t, e.Start(ctx, engine.SessionConfig{}))
	assert.Equal(t, engine.StateInitialized, e.State())
}

func TestEngine_FormatErrorOnCorruptContainer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, engine.Options{})

	require.NoError(t, e.Start(ctx, engine.SessionConfig{Format: parser.FormatAvro}))

	_, err := e.ProcessChunk(ctx, []byte("definitely not an avro container"))
	require.NoError(t, err)

	_, err = e.Finalize(ctx)
	require.ErrorIs(t, err, engine.ErrFormat)
	assert.Equal(t, engine.StateErrored, e.State())
}

func TestEngine_RecordsMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	e := newEngine(t, engine.Options{Metrics: rec})

	require.NoError(t, e.Start(ctx, engine.SessionConfig{HasHeader: true}))

	_, err := e.ProcessChunk(ctx, []byte(peopleCSV))
	require.NoError(t, err)

	_, err = e.Finalize(ctx)
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 1, rec.chunks)
	assert.Equal(t, len(peopleCSV), rec.bytes)
	assert.Equal(t, 4, rec.rows)
	assert.Equal(t, []string{observability.OutcomeFinalized}, rec.ended)
}

func TestNew_RejectsInvalidProfileOptions(t *testing.T) {
	t.Parallel()

	opts := profile.DefaultOptions()
	opts.TopKCapacity = 0

	_, err := engine.New(engine.Options{Profile: &opts})
	require.ErrorIs(t, err, engine.ErrConfig)
	require.ErrorIs(t, err, profile.ErrInvalidTopK)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "accumulating", engine.StateAccumulating.String())
	assert.Equal(t, "unknown", engine.State(99).String())
}

type recorder struct {
	mu      sync.Mutex
	started int
	chunks  int
	bytes   int
	rows    int
	ended   []string
}

func (r *recorder) SessionStarted(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started++
}

func (r *recorder) ChunkProcessed(_ context.Context, _ string, size, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chunks++
	r.bytes += size
	r.rows += rows
}

func (r *recorder) SessionEnded(_ context.Context, _, outcome string, _ int64, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ended = append(r.ended, outcome)
}

func (r *recorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.ended...)
}
