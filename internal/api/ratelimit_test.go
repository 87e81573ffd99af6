package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/authgate/internal/infrastructure/config"
)

func TestClientLimiters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newClientLimiters(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	c.now = func() time.Time { return now }

	for i := range 2 {
		if ok, _ := c.reserve("10.0.0.1"); !ok {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	ok, wait := c.reserve("10.0.0.1")
	if ok {
		t.Fatal("request beyond burst allowed")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want (0, 1s]", wait)
	}

	if ok, _ := c.reserve("10.0.0.2"); !ok {
		t.Error("other client throttled by a neighbour")
	}

	now = now.Add(time.Second)
	if ok, _ := c.reserve("10.0.0.1"); !ok {
		t.Error("token not refilled after one second")
	}
}

func TestClientLimiters_EvictIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newClientLimiters(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 10, Burst: 1})
	c.now = func() time.Time { return now }

	c.reserve("idle")
	now = now.Add(limiterIdleTTL / 2)
	c.reserve("busy")
	now = now.Add(limiterIdleTTL/2 + time.Second)

	if n := c.evictIdle(); n != 1 {
		t.Errorf("evictIdle() = %d, want 1", n)
	}
	if c.size() != 1 {
		t.Errorf("size() = %d, want 1", c.size())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	})

	body := `{"email":"ghost@example.com","password":"whatever"}`
	for i := range 2 {
		if w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, w.Code)
		}
	}

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	var e Error
	decodeBody(t, w, &e)
	if e.Code != ErrCodeTooManyRequests {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeTooManyRequests)
	}

	// Other routes are not throttled.
	if w := f.do(t, http.MethodGet, "/api/v1/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}

	// A different client address has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("other client status = %d, want 401", rec.Code)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	f := newFixture(t)
	if f.srv.limiters != nil {
		t.Fatal("limiters built with rate limiting disabled")
	}

	for range 5 {
		w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"email":"ghost@example.com","password":"x"}`)
		if w.Code == http.StatusTooManyRequests {
			t.Fatal("throttled with rate limiting disabled")
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"not-an-addr", "not-an-addr"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
