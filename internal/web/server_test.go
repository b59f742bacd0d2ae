package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/opsgraph/opsgraph/internal/incident"
	"github.com/opsgraph/opsgraph/internal/logger"
)

// Handler error logs must go through the logger the middleware stored
// in the request context, so they carry the request id.
func TestHandlerErrorsUseRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reqLogger := zap.New(core).With(zap.String("request_id", "req-123"))

	srv := newTestServer(&mockIncidents{
		listFn: func(ctx context.Context, limit int) ([]incident.Incident, error) {
			return nil, errors.New("backend down")
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.ContextWithLogger(req.Context(), reqLogger))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	entries := logs.FilterMessage("list incidents").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries for %q, want 1", len(entries), "list incidents")
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want %q", fields["request_id"], "req-123")
	}
}

// Without a context logger the server falls back to its own.
func TestHandlerErrorsFallBackToServerLogger(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	incidents := &mockIncidents{
		listFn: func(ctx context.Context, limit int) ([]incident.Incident, error) {
			return nil, errors.New("backend down")
		},
	}
	srv := NewServer(incidents, &mockEmbedder{}, &mockPinger{}, zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if got := len(logs.FilterMessage("list incidents").All()); got != 1 {
		t.Fatalf("got %d entries for %q, want 1", got, "list incidents")
	}
}
