package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/protocol"
)

// kindNotFound is the error kind for unknown session ids.
const kindNotFound = "not_found"

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrState):
		return http.StatusConflict
	case errors.Is(err, engine.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrResource):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func kindFor(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return kindNotFound
	case errors.Is(err, ErrTooManySessions):
		return protocol.KindResource
	default:
		return protocol.ErrorKind(err)
	}
}

func (s *Server) respondError(rw http.ResponseWriter, hr *http.Request, err error) {
	code := statusFor(err)

	s.logger.WarnContext(hr.Context(), "request failed",
		"method", hr.Method,
		"path", hr.URL.Path,
		"status", code,
		"request_id", middleware.GetReqID(hr.Context()),
		"error", err,
	)

	writeJSON(rw, hr, code, ErrorResponse{Error: protocol.Error{Kind: kindFor(err), Message: err.Error()}})
}

func writeJSON(rw http.ResponseWriter, hr *http.Request, code int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		slog.Default().ErrorContext(hr.Context(), "failed to encode JSON response", "error", encodeErr)
	}
}
