// Package runner streams local files through the profiling engine, the row
// extractor, and the correlation batch. It backs the CLI and MCP hosts.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/extract"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
	"github.com/Sumatoshi-tech/datalens/pkg/source"
	"github.com/Sumatoshi-tech/datalens/pkg/units"
)

// SampleSize is the number of leading bytes used for detection.
const SampleSize = 64 * units.KiB

// Sentinel errors.
var (
	// ErrNotDelimited indicates a row-level operation on a non-delimited source.
	ErrNotDelimited = errors.New("operation needs delimited text")
	// ErrUnknownColumn indicates a column name missing from the header.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNoColumns indicates a correlation request without columns.
	ErrNoColumns = errors.New("at least one column is required")
)

// errStop ends a chunk loop early without failing it.
var errStop = errors.New("stop")

// Options configure a Runner. Empty Format, zero Delimiter, and empty
// Encoding are detected from the file.
type Options struct {
	Engine      engine.Options
	Correlation correlation.Options

	ChunkSize int
	Format    string
	Delimiter byte
	Encoding  string
	HasHeader bool

	// OnProgress is called after every chunk of a streaming format.
	OnProgress func(outcome *engine.ChunkOutcome, bytesRead int64)

	Logger *slog.Logger
}

// Runner runs one-shot file operations.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// FileDetection is a Detection plus the source compression.
type FileDetection struct {
	engine.Detection `yaml:",inline"`

	Path        string `json:"path"                  yaml:"path"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = source.DefaultChunkSize
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}

	return &Runner{opts: opts, logger: opts.Logger}
}

// Detect guesses how path should be read.
func (r *Runner) Detect(path string) (*FileDetection, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	det, err := detect(src)
	if err != nil {
		return nil, err
	}

	return &FileDetection{Detection: det, Path: path, Compression: string(src.Compression())}, nil
}

// Profile streams path through a new engine session and returns the profile.
func (r *Runner) Profile(ctx context.Context, path string) (*profile.ProfileResult, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	cfg, err := r.sessionConfig(src)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(r.opts.Engine)
	if err != nil {
		return nil, err
	}

	err = eng.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "profiling file",
		"path", path, "format", string(cfg.Format), "compression", string(src.Compression()))

	err = src.Chunks(ctx, r.opts.ChunkSize, func(chunk []byte) error {
		outcome, chunkErr := eng.ProcessChunk(ctx, chunk)
		if chunkErr != nil {
			return chunkErr
		}

		if outcome != nil && r.opts.OnProgress != nil {
			r.opts.OnProgress(outcome, src.BytesRead())
		}

		return nil
	})
	if err != nil {
		eng.Discard(ctx)

		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	res, err := eng.Finalize(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	return res, nil
}

// Extract returns the fields of the given 0-based data rows of a delimited
// file, in ascending row order. Reading stops once every row is found.
func (r *Runner) Extract(ctx context.Context, path string, rows []int64) ([]extract.ExtractedRow, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	cfg, err := r.delimitedConfig(src)
	if err != nil {
		return nil, err
	}

	x, err := extract.New(rows, extract.Options{
		Delimiter: cfg.Delimiter,
		HasHeader: cfg.HasHeader,
		Encoding:  cfg.Encoding,
		Tracer:    r.opts.Engine.Tracer,
	})
	if err != nil {
		return nil, err
	}

	err = src.Chunks(ctx, r.opts.ChunkSize, func(chunk []byte) error {
		_, procErr := x.ProcessChunk(ctx, chunk)
		if procErr != nil {
			return procErr
		}

		if x.Done() {
			return errStop
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	return x.Finalize(), nil
}

// Correlate reads up to the correlation row cap from a delimited file and
// correlates the given columns. A column is a header name or a 0-based index.
func (r *Runner) Correlate(ctx context.Context, path string, columns []string) (*correlation.Matrix, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	cfg, err := r.delimitedConfig(src)
	if err != nil {
		return nil, err
	}

	limit := r.opts.Correlation.MaxRows
	if limit <= 0 {
		limit = correlation.DefaultMaxRows
	}

	var (
		header []string
		rows   [][]string
	)

	decoder, err := parser.NewTextDecoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	scanner := parser.NewScanner(cfg.Delimiter)
	needHeader := cfg.HasHeader

	// One row past the cap lets Compute report truncation.
	emit := func(record []string) bool {
		if needHeader {
			header, needHeader = slices.Clone(record), false

			return true
		}

		rows = append(rows, slices.Clone(record))

		return len(rows) <= limit
	}

	err = src.Chunks(ctx, r.opts.ChunkSize, func(chunk []byte) error {
		text, decErr := decoder.Decode(chunk)
		if decErr != nil {
			return decErr
		}

		if !scanner.Feed(text, emit) {
			return errStop
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("correlate %s: %w", path, err)
	}

	if err == nil && scanner.Feed(decoder.Flush(), emit) {
		scanner.Flush(emit)
	}

	indices, err := resolveColumns(header, columns)
	if err != nil {
		return nil, err
	}

	opts := r.opts.Correlation
	opts.MaxRows = limit

	return opts.Compute(header, rows, indices)
}

func (r *Runner) sessionConfig(src *source.Source) (engine.SessionConfig, error) {
	det, err := detect(src)
	if err != nil {
		return engine.SessionConfig{}, err
	}

	cfg := det.SessionConfig(r.opts.HasHeader)

	if r.opts.Format != "" {
		format, err := parser.ParseFormat(r.opts.Format)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", engine.ErrConfig, err)
		}

		cfg.Format = format
	}

	if r.opts.Delimiter != 0 {
		cfg.Delimiter = r.opts.Delimiter
	}

	if r.opts.Encoding != "" {
		enc, err := parser.ParseEncoding(r.opts.Encoding)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", engine.ErrConfig, err)
		}

		cfg.Encoding = enc
	}

	return cfg, nil
}

func (r *Runner) delimitedConfig(src *source.Source) (engine.SessionConfig, error) {
	cfg, err := r.sessionConfig(src)
	if err != nil {
		return cfg, err
	}

	if cfg.Format != parser.FormatDelimited {
		return cfg, fmt.Errorf("%w: detected %s", ErrNotDelimited, cfg.Format)
	}

	if cfg.Delimiter == 0 {
		cfg.Delimiter = parser.DefaultDelimiter
	}

	return cfg, nil
}

func detect(src *source.Source) (engine.Detection, error) {
	sample, err := src.Sample(SampleSize)
	if err != nil {
		return engine.Detection{}, err
	}

	return engine.Detect(src.Name(), sample), nil
}

func resolveColumns(header, columns []string) ([]int, error) {
	indices := make([]int, 0, len(columns))

	for _, col := range columns {
		idx := -1

		for i, name := range header {
			if name == col {
				idx = i

				break
			}
		}

		if idx < 0 {
			n, err := strconv.Atoi(col)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
			}

			idx = n
		}

		indices = append(indices, idx)
	}

	return indices, nil
}
