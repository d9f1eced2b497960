// Package protocol implements the datalens worker protocol: one JSON request
// per line in, one JSON response per line out. Byte buffers travel as
// base64 strings.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
)

// Request types.
const (
	TypeStartSession       = "start_session"
	TypeProcessChunk       = "process_chunk"
	TypeFinalize           = "finalize"
	TypeDetectDelimiter    = "detect_delimiter"
	TypeInitExtractor      = "init_extractor"
	TypeExtractChunk       = "extract_chunk"
	TypeFinalizeExtraction = "finalize_extraction"
	TypeComputeCorrelation = "compute_correlation"
)

// Error kinds reported in Response.Error.
const (
	KindFormat   = "format"
	KindState    = "state"
	KindResource = "resource"
	KindInvalid  = "invalid"
)

// Sentinel errors.
var (
	// ErrInvalidRequest indicates a request that fails schema validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoExtractor indicates an extraction request before init_extractor.
	ErrNoExtractor = errors.New("extractor not initialized")
)

// Request is one line of worker input. Rows holds target row indices for
// init_extractor and string rows for compute_correlation.
type Request struct {
	ID             json.RawMessage `json:"id,omitempty"`
	Type           string          `json:"type"`
	Format         string          `json:"format,omitempty"`
	Delimiter      string          `json:"delimiter,omitempty"`
	HasHeader      *bool           `json:"has_header,omitempty"`
	Encoding       string          `json:"encoding,omitempty"`
	Name           string          `json:"name,omitempty"`
	Data           []byte          `json:"data,omitempty"`
	Rows           json.RawMessage `json:"rows,omitempty"`
	Headers        []string        `json:"headers,omitempty"`
	NumericColumns []int           `json:"numeric_columns,omitempty"`
}

// Response is one line of worker output.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error describes a failed request.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Ack acknowledges a request that produces no data.
type Ack struct {
	State string `json:"state,omitempty"`
	Found *int   `json:"found,omitempty"`
}

// ChunkResult wraps a chunk outcome. Partial is null for whole-buffer formats.
type ChunkResult struct {
	Partial *engine.ChunkOutcome `json:"partial"`
}

// ErrorKind maps an error to its protocol kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrFormat):
		return KindFormat
	case errors.Is(err, engine.ErrState), errors.Is(err, ErrNoExtractor):
		return KindState
	case errors.Is(err, engine.ErrResource):
		return KindResource
	default:
		return KindInvalid
	}
}

func failure(id json.RawMessage, err error) Response {
	return Response{ID: id, Error: &Error{Kind: ErrorKind(err), Message: err.Error()}}
}
