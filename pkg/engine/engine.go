// Package engine runs a single profiling session over an ordered stream of
// chunks: Start, any number of ProcessChunk calls, then Finalize.
//
// An Engine is not safe for concurrent use. Hosts serialize calls and keep
// one Engine per session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

const (
	tracerName = "datalens"

	spanStart    = "datalens.engine.start"
	spanFinalize = "datalens.engine.finalize"
)

// Recorder receives session lifecycle measurements.
// [observability.ProfileMetrics] implements it.
type Recorder interface {
	SessionStarted(ctx context.Context, format string)
	ChunkProcessed(ctx context.Context, format string, size, rows int)
	SessionEnded(ctx context.Context, format, outcome string, bufferedRows int64, dur time.Duration)
}

// Options configure an Engine. The zero value of each field selects its default.
type Options struct {
	// Profile bounds the accumulators. Zero value means profile.DefaultOptions.
	Profile *profile.Options

	// MaxBufferBytes caps the input buffered by whole-buffer formats.
	MaxBufferBytes int64

	// MaxDepth limits nested object flattening for structured formats.
	MaxDepth int

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics Recorder
}

// SessionConfig describes the source of one session.
type SessionConfig struct {
	// Format selects the parser. Empty means delimited text.
	Format parser.Format
	// Delimiter separates delimited fields. Zero means a comma.
	Delimiter byte
	// HasHeader treats the first delimited or spreadsheet row as column names.
	HasHeader bool
	// Encoding of text formats. Empty means UTF-8.
	Encoding parser.Encoding
}

// ChunkOutcome reports session progress after one chunk of a streaming format.
type ChunkOutcome struct {
	RowsInChunk   int64                    `json:"rows_in_chunk"  yaml:"rows_in_chunk"`
	TotalRows     int64                    `json:"total_rows"     yaml:"total_rows"`
	BufferedBytes int                      `json:"buffered_bytes" yaml:"buffered_bytes"`
	Columns       []profile.ColumnProgress `json:"columns"        yaml:"columns"`
}

// Engine holds at most one profiling session.
type Engine struct {
	profileOpts    profile.Options
	maxBufferBytes int64
	maxDepth       int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics Recorder

	state    State
	cfg      SessionConfig
	profiler *profile.Profiler
	parser   parser.Parser
}

// New creates an idle Engine.
func New(opts Options) (*Engine, error) {
	profileOpts := profile.DefaultOptions()
	if opts.Profile != nil {
		profileOpts = *opts.Profile
	}

	err := profileOpts.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	e := &Engine{
		profileOpts:    profileOpts,
		maxBufferBytes: opts.MaxBufferBytes,
		maxDepth:       opts.MaxDepth,
		logger:         opts.Logger,
		tracer:         opts.Tracer,
		metrics:        opts.Metrics,
	}

	if e.maxBufferBytes <= 0 {
		e.maxBufferBytes = parser.DefaultMaxBufferBytes
	}

	if e.maxDepth <= 0 {
		e.maxDepth = parser.DefaultMaxDepth
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}

	return e, nil
}

// State returns the current session state.
func (e *Engine) State() State {
	return e.state
}

// Config returns the configuration of the current or last session.
func (e *Engine) Config() SessionConfig {
	return e.cfg
}

// Start opens a new session. An unfinalized session is discarded with a
// warning. An invalid config leaves the current session untouched.
func (e *Engine) Start(ctx context.Context, cfg SessionConfig) error {
	ctx, span := e.tracer.Start(ctx, spanStart)
	defer span.End()

	cfg, err := normalize(cfg)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, observability.ErrSourceClient)

		return err
	}

	prof, err := profile.NewProfiler(e.profileOpts, e.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	p, err := parser.New(cfg.Format, parser.Options{
		Delimiter:      cfg.Delimiter,
		HasHeader:      cfg.HasHeader,
		Encoding:       cfg.Encoding,
		MaxDepth:       e.maxDepth,
		MaxBufferBytes: e.maxBufferBytes,
	}, prof)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, observability.ErrSourceClient)

		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if e.state.active() {
		e.logger.WarnContext(ctx, "discarding unfinalized session",
			"format", string(e.cfg.Format), "rows", e.profiler.Rows())
		e.end(ctx, observability.OutcomeDiscarded, 0, 0)
	}

	e.cfg = cfg
	e.profiler = prof
	e.parser = p
	e.state = StateInitialized

	span.SetAttributes(
		attribute.String("session.format", string(cfg.Format)),
		attribute.String("session.encoding", string(cfg.Encoding)),
		attribute.Bool("session.has_header", cfg.HasHeader),
	)

	if e.metrics != nil {
		e.metrics.SessionStarted(ctx, string(cfg.Format))
	}

	e.logger.DebugContext(ctx, "session started",
		"format", string(cfg.Format), "encoding", string(cfg.Encoding), "has_header", cfg.HasHeader)

	return nil
}

// ProcessChunk feeds the next chunk of input. For streaming formats it
// returns the progress after the chunk; whole-buffer formats only buffer the
// chunk and return a nil outcome. Parse failures are terminal.
func (e *Engine) ProcessChunk(ctx context.Context, chunk []byte) (*ChunkOutcome, error) {
	if !e.state.active() {
		return nil, stateError("process chunk", e.state)
	}

	ctx, span := e.tracer.Start(ctx, observability.SpanProcessChunk,
		trace.WithAttributes(attribute.Int("chunk.bytes", len(chunk))))
	defer span.End()

	before := e.profiler.Rows()

	err := e.parser.Feed(chunk)
	if err != nil {
		return nil, e.fail(ctx, span, err)
	}

	e.state = StateAccumulating
	rows := e.profiler.Rows() - before

	span.SetAttributes(attribute.Int64("chunk.rows", rows))

	if e.metrics != nil {
		e.metrics.ChunkProcessed(ctx, string(e.cfg.Format), len(chunk), int(rows))
	}

	if !e.parser.Streaming() {
		return nil, nil //nolint:nilnil // whole-buffer formats report no progress.
	}

	return &ChunkOutcome{
		RowsInChunk:   rows,
		TotalRows:     e.profiler.Rows(),
		BufferedBytes: e.parser.Buffered(),
		Columns:       e.profiler.Progress(),
	}, nil
}

// Finalize completes the input and returns the profile. It is accepted
// directly after Start for empty input. The session is terminal afterwards.
func (e *Engine) Finalize(ctx context.Context) (*profile.ProfileResult, error) {
	if !e.state.active() {
		return nil, stateError("finalize", e.state)
	}

	ctx, span := e.tracer.Start(ctx, spanFinalize)
	defer span.End()

	start := time.Now()

	err := e.parser.Finish()
	if err != nil {
		return nil, e.fail(ctx, span, err)
	}

	res := e.profiler.Finalize()
	res.Format = string(e.cfg.Format)
	res.Encoding = string(e.cfg.Encoding)

	if e.cfg.Format == parser.FormatDelimited {
		res.Delimiter = string(e.cfg.Delimiter)
	}

	var buffered int64
	if !e.parser.Streaming() {
		buffered = res.TotalRows
	}

	span.SetAttributes(
		attribute.Int64("rows", res.TotalRows),
		attribute.Int("columns", len(res.ColumnProfiles)),
	)

	e.state = StateFinalized
	e.end(ctx, observability.OutcomeFinalized, buffered, time.Since(start))

	e.logger.InfoContext(ctx, "session finalized",
		"format", res.Format, "rows", res.TotalRows, "columns", len(res.ColumnProfiles),
		"issues", len(res.Issues))

	return res, nil
}

// Discard drops the session in any state and returns the Engine to Idle.
func (e *Engine) Discard(ctx context.Context) {
	if e.state.active() {
		e.end(ctx, observability.OutcomeDiscarded, 0, 0)
	}

	e.state = StateIdle
	e.profiler = nil
	e.parser = nil
}

// fail moves the session to Errored and returns the classified error.
func (e *Engine) fail(ctx context.Context, span trace.Span, err error) error {
	classified := classify(err)

	errType := observability.ErrTypeFormat
	if errors.Is(classified, ErrResource) {
		errType = observability.ErrTypeResource
	}

	observability.RecordSpanError(span, classified, errType, observability.ErrSourceInput)

	e.logger.WarnContext(ctx, "session failed",
		"format", string(e.cfg.Format), "rows", e.profiler.Rows(), "error", err)

	e.state = StateErrored
	e.end(ctx, observability.OutcomeErrored, 0, 0)

	return classified
}

// end reports the session outcome and releases its parser and profiler.
func (e *Engine) end(ctx context.Context, outcome string, bufferedRows int64, dur time.Duration) {
	e.profiler = nil
	e.parser = nil

	if e.metrics != nil {
		e.metrics.SessionEnded(ctx, string(e.cfg.Format), outcome, bufferedRows, dur)
	}
}

// normalize fills defaults and validates cfg.
func normalize(cfg SessionConfig) (SessionConfig, error) {
	if cfg.Format == "" {
		cfg.Format = parser.FormatDelimited
	}

	format, err := parser.ParseFormat(string(cfg.Format))
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg.Format = format

	enc, err := parser.ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg.Encoding = enc

	if cfg.Delimiter == 0 {
		cfg.Delimiter = parser.DefaultDelimiter
	}

	return cfg, nil
}
