package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
)

// retryAfterSeconds is what a client is told to wait after a transient
// upstream failure.
const retryAfterSeconds = 5

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error kind to its HTTP status and stable code.
func statusFor(err error) (int, string) {
	switch core.KindOf(err) {
	case core.ErrInput:
		return http.StatusBadRequest, "invalid_input"
	case core.ErrUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case core.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case core.ErrNotOnboarded:
		return http.StatusConflict, "not_onboarded"
	case core.ErrSchemaMismatch:
		return http.StatusUnprocessableEntity, "schema_mismatch"
	case core.ErrUpstreamTransient:
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case core.ErrUpstreamPermanent:
		return http.StatusInternalServerError, "upstream_failure"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Response encode failed", log.FieldComponent, log.ComponentHTTP, log.FieldError, err)
	}
}

// writeError renders err as {error, code, details?}. Errors that carry no
// kind are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	body := errorBody{Error: err.Error(), Code: code}
	var kinded *core.Error
	if errors.As(err, &kinded) && kinded.Err != nil {
		body.Error = kinded.Kind.Error()
		body.Details = kinded.Err.Error()
	}

	if core.KindOf(err) == nil {
		body = errorBody{Error: "internal server error", Code: code}
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRequestError(r.Context(), r, status, code, err)

	if core.IsTransient(err) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, status, body)
}
