// Package source reads a file or stream as an ordered sequence of chunks,
// transparently removing gzip, bzip2, zstd, xz, or lz4 compression.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/units"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = units.MiB

const tracerName = "datalens.source"

// Sentinel errors.
var (
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrCompressed             = errors.New("corrupt compressed stream")
	ErrChunkSize              = errors.New("chunk size must be positive")
)

// Source is a decompressed input stream with a peekable head.
type Source struct {
	name        string
	compression Compression
	buf         *bufio.Reader
	closers     []func() error
	read        int64
}

// Open opens path for chunked reading. Compression is taken from the
// extension, or from the magic number when the extension names none.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	src, err := New(f, path)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	src.closers = append(src.closers, f.Close)

	return src, nil
}

// New wraps r. name is used for compression and format hints and may be empty.
// Closing the Source does not close r.
func New(r io.Reader, name string) (*Source, error) {
	raw := bufio.NewReaderSize(r, DefaultChunkSize)

	kind := CompressionFromName(name)
	if kind == CompressionNone {
		head, _ := raw.Peek(maxMagicLen)
		kind = CompressionFromMagic(head)
	}

	dec, closeDec, err := decompress(kind, raw)
	if err != nil {
		return nil, err
	}

	return &Source{
		name:        TrimCompressionExt(name),
		compression: kind,
		buf:         bufio.NewReaderSize(dec, DefaultChunkSize),
		closers:     []func() error{closeDec},
	}, nil
}

// Name returns the source name without its compression extension.
func (s *Source) Name() string {
	return s.name
}

// Compression returns the detected compression.
func (s *Source) Compression() Compression {
	return s.compression
}

// BytesRead returns the decompressed bytes handed out so far.
func (s *Source) BytesRead() int64 {
	return s.read
}

// Sample returns up to n leading decompressed bytes without consuming them.
func (s *Source) Sample(n int) ([]byte, error) {
	head, err := s.buf.Peek(n)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, s.readError(err)
	}

	return head, nil
}

// Chunks reads the rest of the stream in chunks of at most size bytes and
// calls fn for each, in order. The chunk buffer is reused between calls.
// ctx is checked before every read.
func (s *Source) Chunks(ctx context.Context, size int, fn func(chunk []byte) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrChunkSize, size)
	}

	tracer := otel.Tracer(tracerName)
	chunk := make([]byte, size)

	for {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		n, readErr := s.readChunk(ctx, tracer, chunk)
		if n > 0 {
			err = fn(chunk[:n])
			if err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return readErr
		}
	}
}

func (s *Source) readChunk(ctx context.Context, tracer trace.Tracer, chunk []byte) (int, error) {
	_, span := tracer.Start(ctx, observability.SpanSourceRead)
	defer span.End()

	n, err := io.ReadFull(s.buf, chunk)
	s.read += int64(n)

	span.SetAttributes(attribute.Int("source.bytes", n))

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, io.EOF
	default:
		wrapped := s.readError(err)
		observability.RecordSpanError(span, wrapped, observability.ErrTypeFormat, observability.ErrSourceInput)

		return n, wrapped
	}
}

func (s *Source) readError(err error) error {
	if s.compression == CompressionNone {
		return fmt.Errorf("read source: %w", err)
	}

	return fmt.Errorf("%w: %s: %w", ErrCompressed, s.compression, err)
}

// Close releases the decompressor and, for Open, the file.
func (s *Source) Close() error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}

	err := errors.Join(errs...)
	if err != nil {
		return fmt.Errorf("close source: %w", err)
	}

	return nil
}
