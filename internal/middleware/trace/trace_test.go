package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brandonwu32/financedashboard/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	var hasLogger bool
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		_, hasLogger = r.Context().Value(log.LoggerContextKey).(*log.Logger)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("request id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
	}
	if !hasLogger {
		t.Error("request-scoped logger not attached")
	}
}

func TestMiddlewareTagsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: log.NewHandler(&buf, "text", slog.LevelWarn)})
	h := log.Middleware(logger)(NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Warn("handler says hi")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "handler says hi") || !strings.Contains(out, "request_id=abc-123") {
		t.Errorf("output = %q", out)
	}
}

func TestMiddlewareHonoursRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"valid", "abc-123_x.y", true},
		{"spaces", "abc 123", false},
		{"injection", "id\nforged=1", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(nil, nil)
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if (got == tt.header) != tt.keep {
				t.Errorf("request id = %q, keep=%v", got, tt.keep)
			}
		})
	}
}

func TestMiddlewareMetrics(t *testing.T) {
	m := NewMiddleware(nil, func(*http.Request) string { return "10.0.0.1" })
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	for _, p := range []string{"/ok", "/boom", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ServerErrors != 1 {
		t.Errorf("metrics = %+v", got)
	}
}
