package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limited(t *testing.T, cfg RateLimitConfig) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimiter(ctx, cfg)(okHandler())
}

func serveFrom(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/group", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 100, Burst: 10})

	for range 5 {
		rec := serveFrom(h, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 1, Burst: 2})

	for range 2 {
		require.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.1:1234").Code)
	}

	rec := serveFrom(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.InDelta(t, float64(429), body["code"], 0.001)
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	require.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(h, "10.0.0.1:5678").Code)
	assert.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.2:1234").Code)
}

func TestLimiterStore_Sweep(t *testing.T) {
	store := newLimiterStore(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()

	store.get("a", now.Add(-2*time.Minute))
	store.get("b", now)
	require.Equal(t, 2, store.size())

	store.sweep(now)
	assert.Equal(t, 1, store.size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{name: "ipv4_with_port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6_with_port", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "no_port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "forwarded_header_ignored", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.50", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
