package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "financas/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.1" })

	var seenID string
	var flushed bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		if applog.FromContext(r.Context()).Component() != applog.ComponentTrace {
			t.Errorf("request logger not installed in context")
		}
		w.WriteHeader(http.StatusTeapot)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if !strings.HasPrefix(seenID, "req_") || rec.Header().Get(RequestIDHeader) != seenID {
		t.Fatalf("request id %q, header %q", seenID, rec.Header().Get(RequestIDHeader))
	}
	if !flushed {
		t.Fatal("wrapped writer should still be an http.Flusher")
	}
	if !strings.Contains(buf.String(), `"status_code":418`) {
		t.Fatalf("completion log missing status: %s", buf.String())
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("incoming ID not kept: %q", rec.Header().Get(RequestIDHeader))
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "has space")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(RequestIDHeader); got == "has space" || !strings.HasPrefix(got, "req_") {
		t.Fatalf("invalid incoming ID should be replaced, got %q", got)
	}
}
