package protocol

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/config"
	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/extract"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
)

//go:embed request.schema.json
var requestSchema []byte

const (
	tracerName = "datalens"
	spanPrefix = "datalens.protocol."
	opPrefix   = "protocol."
)

// Options configure a Worker.
type Options struct {
	Engine      engine.Options
	Correlation correlation.Options

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.REDMetrics
}

// Worker answers protocol requests against one engine and one row
// extractor. Requests are handled one at a time.
type Worker struct {
	schema      *gojsonschema.Schema
	engine      *engine.Engine
	extractor   *extract.Extractor
	correlation correlation.Options

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.REDMetrics
}

// NewWorker creates a Worker with an idle engine.
func NewWorker(opts Options) (*Worker, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}

	if opts.Engine.Tracer == nil {
		opts.Engine.Tracer = opts.Tracer
	}

	if opts.Correlation.MaxRows == 0 {
		opts.Correlation.MaxRows = correlation.DefaultMaxRows
	}

	eng, err := engine.New(opts.Engine)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &Worker{
		schema:      schema,
		engine:      eng,
		correlation: opts.Correlation,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		metrics:     opts.Metrics,
	}, nil
}

// Serve reads requests from r and writes one response per request to w until
// r is exhausted or ctx is canceled. Blank lines are ignored. An unfinalized
// session is discarded on return.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	defer w.engine.Discard(ctx)

	reader := bufio.NewReader(r)
	enc := json.NewEncoder(out)

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("worker: %w", ctx.Err())
		}

		line, readErr := reader.ReadBytes('\n')

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			encodeErr := enc.Encode(w.Handle(ctx, line))
			if encodeErr != nil {
				return fmt.Errorf("write response: %w", encodeErr)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return fmt.Errorf("read request: %w", readErr)
		}
	}
}

// Handle validates and answers one request line.
func (w *Worker) Handle(ctx context.Context, line []byte) Response {
	err := w.validate(line)
	if err != nil {
		return failure(nil, err)
	}

	var req Request

	err = json.Unmarshal(line, &req)
	if err != nil {
		return failure(nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	return w.Do(ctx, &req)
}

// Do answers a decoded request.
func (w *Worker) Do(ctx context.Context, req *Request) Response {
	start := time.Now()
	op := opPrefix + req.Type

	done := w.metrics.TrackInflight(ctx, op)
	defer done()

	ctx, span := w.tracer.Start(ctx, spanPrefix+req.Type,
		trace.WithAttributes(attribute.String("request_type", req.Type)))
	defer span.End()

	result, err := w.dispatch(ctx, req)
	if err != nil {
		kind := ErrorKind(err)
		recordError(span, err, kind)
		w.metrics.RecordRequest(ctx, op, observability.StatusError, time.Since(start))
		w.logger.DebugContext(ctx, "request failed", "type", req.Type, "kind", kind, "error", err)

		return failure(req.ID, err)
	}

	w.metrics.RecordRequest(ctx, op, observability.StatusOK, time.Since(start))

	return Response{ID: req.ID, OK: true, Result: result}
}

func (w *Worker) validate(line []byte) error {
	res, err := w.schema.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, verr := range res.Errors() {
		msgs = append(msgs, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func (w *Worker) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Type {
	case TypeStartSession:
		return w.startSession(ctx, req)
	case TypeProcessChunk:
		outcome, err := w.engine.ProcessChunk(ctx, req.Data)
		if err != nil {
			return nil, err
		}

		return ChunkResult{Partial: outcome}, nil
	case TypeFinalize:
		return w.engine.Finalize(ctx)
	case TypeDetectDelimiter:
		return engine.Detect(req.Name, req.Data), nil
	case TypeInitExtractor:
		return w.initExtractor(req)
	case TypeExtractChunk:
		return w.extractChunk(ctx, req)
	case TypeFinalizeExtraction:
		return w.finalizeExtraction()
	case TypeComputeCorrelation:
		return w.computeCorrelation(req)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, req.Type)
	}
}

func (w *Worker) startSession(ctx context.Context, req *Request) (any, error) {
	delim, err := config.ParseDelimiter(req.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	err = w.engine.Start(ctx, engine.SessionConfig{
		Format:    parser.Format(req.Format),
		Delimiter: delim,
		HasHeader: hasHeader(req),
		Encoding:  parser.Encoding(req.Encoding),
	})
	if err != nil {
		return nil, err
	}

	return Ack{State: w.engine.State().String()}, nil
}

func (w *Worker) initExtractor(req *Request) (any, error) {
	var targets []int64

	err := json.Unmarshal(req.Rows, &targets)
	if err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrInvalidRequest, err)
	}

	delim, err := config.ParseDelimiter(req.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	enc, err := parser.ParseEncoding(req.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	x, err := extract.New(targets, extract.Options{
		Delimiter: delim,
		HasHeader: hasHeader(req),
		Encoding:  enc,
		Tracer:    w.tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	w.extractor = x

	return Ack{State: "extracting"}, nil
}

func (w *Worker) extractChunk(ctx context.Context, req *Request) (any, error) {
	if w.extractor == nil {
		return nil, ErrNoExtractor
	}

	_, err := w.extractor.ProcessChunk(ctx, req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrFormat, err)
	}

	found := w.extractor.Found()

	return Ack{Found: &found}, nil
}

func (w *Worker) finalizeExtraction() (any, error) {
	if w.extractor == nil {
		return nil, ErrNoExtractor
	}

	rows := w.extractor.Finalize()
	w.extractor = nil

	if rows == nil {
		rows = []extract.ExtractedRow{}
	}

	return rows, nil
}

func (w *Worker) computeCorrelation(req *Request) (any, error) {
	var rows [][]string

	err := json.Unmarshal(req.Rows, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrInvalidRequest, err)
	}

	m, err := w.correlation.Compute(req.Headers, rows, req.NumericColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return m, nil
}

func hasHeader(req *Request) bool {
	if req.HasHeader == nil {
		return true
	}

	return *req.HasHeader
}

func recordError(span trace.Span, err error, kind string) {
	switch kind {
	case KindFormat:
		observability.RecordSpanError(span, err, observability.ErrTypeFormat, observability.ErrSourceInput)
	case KindState:
		observability.RecordSpanError(span, err, observability.ErrTypeState, observability.ErrSourceClient)
	case KindResource:
		observability.RecordSpanError(span, err, observability.ErrTypeResource, observability.ErrSourceInput)
	default:
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, observability.ErrSourceClient)
	}
}
