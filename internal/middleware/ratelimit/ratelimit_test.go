package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request inside the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are limited independently")
	}

	// Steady traffic must not keep the window open forever.
	*now = now.Add(30 * time.Second)
	rl.Allow("a")
	*now = now.Add(30 * time.Second)
	if !rl.Allow("a") {
		t.Error("a new window should start one minute after the first request")
	}
	if got := rl.GetMetrics(); got.TotalHits != 2 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("fresh")

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("active = %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ana@example.com" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/transactions", nil))
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do(http.MethodGet); code != http.StatusOK {
			t.Fatalf("GET #%d = %d", i, code)
		}
	}
	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d", code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Errorf("second POST = %d, Retry-After %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
