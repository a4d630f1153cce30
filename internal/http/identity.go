package http

import (
	"context"
	"net/http"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
)

type contextKey string

const (
	peerKey  contextKey = "peer_addr"
	emailKey contextKey = "email"
)

// capturePeer records the socket address before RealIP rewrites
// RemoteAddr from forwarded headers.
func capturePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func peerAddr(r *http.Request) string {
	if addr, ok := r.Context().Value(peerKey).(string); ok {
		return addr
	}
	return r.RemoteAddr
}

// clientIP resolves forwarded addresses against the original peer so a
// client cannot pick its own rate limit bucket.
func (s *Server) clientIP(r *http.Request) string {
	direct := *r
	direct.RemoteAddr = peerAddr(r)
	return s.detector.ExtractClientIP(&direct)
}

// identity admits a request only when a trusted proxy vouched for the
// email header and the email passes the allowlist.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "identify"
		if !s.detector.TrustedAddr(peerAddr(r)) {
			writeError(w, r, core.Errorf(core.ErrUnauthenticated, op, "identity header from untrusted peer"))
			return
		}
		email := core.NormalizeEmail(r.Header.Get(s.opts.IdentityHeader))
		if email == "" {
			writeError(w, r, core.Errorf(core.ErrUnauthenticated, op, "missing %s header", s.opts.IdentityHeader))
			return
		}
		if !s.opts.Allow(email) {
			writeError(w, r, core.Errorf(core.ErrForbidden, op, "%s is not on the allowlist", email))
			return
		}

		logger := log.FromContext(r.Context()).With(log.FieldUser, email)
		ctx := context.WithValue(r.Context(), emailKey, email)
		ctx = log.NewContext(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userEmail(r *http.Request) string {
	email, _ := r.Context().Value(emailKey).(string)
	return email
}
