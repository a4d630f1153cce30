package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx that carries logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware puts logger in every request context. Later middleware
// enriches it with the request id and the caller.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request at a level chosen by status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, levelForStatus(statusCode), "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionsAppended logs a successful ledger append
func (sl *StructuredLogger) LogTransactionsAppended(ctx context.Context, user, ledgerID string, count, warnings int) {
	fields := NewFields().
		WithUser(user).
		WithLedger(ledgerID).
		WithBatch(count, warnings).
		WithOperation(OpAppend).
		WithComponent(ComponentLedger)

	sl.logger.InfoContext(ctx, "Transactions appended", fields.ToSlice()...)
}

// LogRequestError records why a request failed. Server-side failures are
// errors; rejected input only shows at debug level.
func (sl *StructuredLogger) LogRequestError(ctx context.Context, r *http.Request, statusCode int, kind string, err error) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, "", "", "").
		WithErrorKind(kind).
		WithError(err).
		WithComponent(ComponentHTTP)

	level, msg := slog.LevelDebug, "Request rejected"
	if statusCode >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "Request failed"
	}
	sl.logger.Logger.Log(ctx, level, msg, fields.ToSlice()...)
}

func levelForStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
