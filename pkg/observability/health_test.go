package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
)

var errNotReady = errors.New("session store closed")

func serveHealth(t *testing.T, h http.Handler) (int, map[string]string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	var body map[string]string

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	return rec.Code, body
}

func TestHealthHandler_AlwaysOK(t *testing.T) {
	t.Parallel()

	code, body := serveHealth(t, observability.HealthHandler())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()

	pass := observability.ReadyCheck{Name: "engine", Check: func(context.Context) error { return nil }}
	fail := observability.ReadyCheck{Name: "sessions", Check: func(context.Context) error { return errNotReady }}

	tests := []struct {
		name   string
		checks []observability.ReadyCheck
		code   int
		failed string
	}{
		{"no checks", nil, http.StatusOK, ""},
		{"all pass", []observability.ReadyCheck{pass}, http.StatusOK, ""},
		{"one fails", []observability.ReadyCheck{pass, fail}, http.StatusServiceUnavailable, "sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := serveHealth(t, observability.ReadyHandler(tt.checks...))

			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.failed, body["failed"])

			if tt.failed != "" {
				assert.Equal(t, "unavailable", body["status"])
				assert.Equal(t, errNotReady.Error(), body["reason"])
			}
		})
	}
}
