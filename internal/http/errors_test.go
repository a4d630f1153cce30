package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brandonwu32/financedashboard/internal/core"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter bool
	}{
		{"input", core.Errorf(core.ErrInput, "op", "bad"), http.StatusBadRequest, "invalid_input", false},
		{"unauthenticated", core.E(core.ErrUnauthenticated, "op", nil), http.StatusUnauthorized, "unauthenticated", false},
		{"forbidden", core.E(core.ErrForbidden, "op", nil), http.StatusForbidden, "forbidden", false},
		{"not onboarded", fmt.Errorf("wrapped: %w", core.E(core.ErrNotOnboarded, "op", nil)), http.StatusConflict, "not_onboarded", false},
		{"schema", core.E(core.ErrSchemaMismatch, "op", nil), http.StatusUnprocessableEntity, "schema_mismatch", false},
		{"transient", core.E(core.ErrUpstreamTransient, "op", errors.New("429")), http.StatusServiceUnavailable, "upstream_unavailable", true},
		{"permanent", core.E(core.ErrUpstreamPermanent, "op", nil), http.StatusInternalServerError, "upstream_failure", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			body := decodeBody[errorBody](t, rr)
			if body.Code != tt.code || body.Error == "" {
				t.Errorf("body = %+v", body)
			}
			if got := rr.Header().Get("Retry-After") != ""; got != tt.retryAfter {
				t.Errorf("Retry-After present = %v", got)
			}
		})
	}
}

func TestWriteErrorHidesUnknownCause(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil), errors.New("dial tcp 10.0.0.1: secret"))
	body := decodeBody[errorBody](t, rr)
	if body.Error != "internal server error" || body.Details != "" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteErrorSplitsKindAndCause(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil), core.Errorf(core.ErrInput, "parse cadence", "unknown cadence %q", "hourly"))
	body := decodeBody[errorBody](t, rr)
	if body.Error != core.ErrInput.Error() || body.Details != `unknown cadence "hourly"` {
		t.Errorf("body = %+v", body)
	}
}
