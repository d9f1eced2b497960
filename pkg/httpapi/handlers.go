package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/config"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/protocol"
)

// ErrBadRequest indicates a request body that cannot be decoded.
var ErrBadRequest = errors.New("bad request")

// SessionRequest is the optional body of POST /v1/sessions.
type SessionRequest struct {
	Format    string `json:"format,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	HasHeader *bool  `json:"has_header,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
}

// SessionResponse describes a created session.
type SessionResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// CorrelateRequest is the body of POST /v1/correlate.
type CorrelateRequest struct {
	Headers        []string   `json:"headers"`
	Rows           [][]string `json:"rows"`
	NumericColumns []int      `json:"numeric_columns"`
}

// ErrorResponse wraps a failed request.
type ErrorResponse struct {
	Error protocol.Error `json:"error"`
}

func (s *Server) handleCreateSession(rw http.ResponseWriter, hr *http.Request) {
	var req SessionRequest

	err := decodeJSON(rw, hr, s.opts.MaxChunkBytes, &req, true)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	delim, err := config.ParseDelimiter(req.Delimiter)
	if err != nil {
		s.respondError(rw, hr, fmt.Errorf("%w: %w", ErrBadRequest, err))

		return
	}

	hasHeader := true
	if req.HasHeader != nil {
		hasHeader = *req.HasHeader
	}

	eng, err := engine.New(s.opts.Engine)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	err = eng.Start(hr.Context(), engine.SessionConfig{
		Format:    parser.Format(req.Format),
		Delimiter: delim,
		HasHeader: hasHeader,
		Encoding:  parser.Encoding(req.Encoding),
	})
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	id, err := s.sessions.add(eng)
	if err != nil {
		eng.Discard(hr.Context())
		s.respondError(rw, hr, err)

		return
	}

	ctx := observability.ContextWithSession(hr.Context(), id)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.id", id))
	s.logger.InfoContext(ctx, "session created", "format", string(eng.Config().Format))

	writeJSON(rw, hr, http.StatusCreated, SessionResponse{ID: id, State: eng.State().String()})
}

func (s *Server) handleProcessChunk(rw http.ResponseWriter, hr *http.Request) {
	s.withSession(rw, hr, func(sess *session) (int, any, error) {
		chunk, err := readBody(rw, hr, s.opts.MaxChunkBytes)
		if err != nil {
			return 0, nil, err
		}

		outcome, err := sess.engine.ProcessChunk(hr.Context(), chunk)
		if err != nil {
			return 0, nil, err
		}

		return http.StatusOK, protocol.ChunkResult{Partial: outcome}, nil
	})
}

func (s *Server) handleFinalize(rw http.ResponseWriter, hr *http.Request) {
	s.withSession(rw, hr, func(sess *session) (int, any, error) {
		res, err := sess.engine.Finalize(hr.Context())
		if err != nil {
			return 0, nil, err
		}

		return http.StatusOK, res, nil
	})
}

func (s *Server) handleDeleteSession(rw http.ResponseWriter, hr *http.Request) {
	id := chi.URLParam(hr, "id")

	err := s.sessions.remove(hr.Context(), id)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	s.logger.InfoContext(observability.ContextWithSession(hr.Context(), id), "session deleted")
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetect(rw http.ResponseWriter, hr *http.Request) {
	sample, err := readBody(rw, hr, s.opts.MaxChunkBytes)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	writeJSON(rw, hr, http.StatusOK, engine.Detect(hr.URL.Query().Get("name"), sample))
}

func (s *Server) handleCorrelate(rw http.ResponseWriter, hr *http.Request) {
	var req CorrelateRequest

	err := decodeJSON(rw, hr, s.opts.MaxChunkBytes, &req, false)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	m, err := s.opts.Correlation.Compute(req.Headers, req.Rows, req.NumericColumns)
	if err != nil {
		s.respondError(rw, hr, fmt.Errorf("%w: %w", ErrBadRequest, err))

		return
	}

	writeJSON(rw, hr, http.StatusOK, m)
}

// withSession resolves the {id} session, holds its lock, and writes fn's
// result.
func (s *Server) withSession(rw http.ResponseWriter, hr *http.Request, fn func(*session) (int, any, error)) {
	id := chi.URLParam(hr, "id")

	ctx := observability.ContextWithSession(hr.Context(), id)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.id", id))
	hr = hr.WithContext(ctx)

	sess, err := s.sessions.get(id)
	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	sess.mu.Lock()
	code, body, err := fn(sess)
	sess.mu.Unlock()

	if err != nil {
		s.respondError(rw, hr, err)

		return
	}

	writeJSON(rw, hr, code, body)
}

func readBody(rw http.ResponseWriter, hr *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(rw, hr.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", engine.ErrResource, tooLarge.Limit)
		}

		return nil, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}

	return data, nil
}

func decodeJSON(rw http.ResponseWriter, hr *http.Request, limit int64, dst any, optional bool) error {
	data, err := readBody(rw, hr, limit)
	if err != nil {
		return err
	}

	if optional && len(data) == 0 {
		return nil
	}

	err = json.Unmarshal(data, dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return nil
}
