package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscan-tech/labxtract/internal/config"
	"github.com/medscan-tech/labxtract/internal/pipeline"
)

func TestRateLimiter_MinuteLimit(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("1.2.3.4", 0))
	require.NoError(t, rl.CheckRateLimit("1.2.3.4", 0))

	err := rl.CheckRateLimit("1.2.3.4", 0)
	require.Error(t, err)

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "minute", rateErr.Type)
	assert.Equal(t, 2, rateErr.Limit)
	assert.Greater(t, rateErr.RetryAfter.Seconds(), 0.0)

	// Other clients are unaffected.
	assert.NoError(t, rl.CheckRateLimit("5.6.7.8", 0))
}

func TestRateLimiter_DailyRequestQuota(t *testing.T) {
	rl := NewRateLimiter(0, 0, 3, 0)

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("1.2.3.4", 0))
	}

	err := rl.CheckRateLimit("1.2.3.4", 0)
	require.Error(t, err)

	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, "requests", quotaErr.Type)
	assert.Equal(t, int64(3), quotaErr.Limit)
	assert.Equal(t, int64(3), quotaErr.Used)
}

func TestRateLimiter_DataQuota(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 1000)

	require.NoError(t, rl.CheckRateLimit("1.2.3.4", 600))

	err := rl.CheckRateLimit("1.2.3.4", 600)
	require.Error(t, err)

	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, "data", quotaErr.Type)
	assert.Equal(t, int64(600), quotaErr.Used)
}

func TestRateLimiter_ZeroLimitsDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)
	for range 100 {
		require.NoError(t, rl.CheckRateLimit("1.2.3.4", 1<<20))
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	s, err := NewServer(Config{
		CORSOrigin:     "*",
		MaxUploadMB:    10,
		TimeoutSec:     5,
		PipelineConfig: pipeline.DefaultConfig(),
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 1,
		},
	})
	require.NoError(t, err)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	first := httptest.NewRecorder()
	mux.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("[]")))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	mux.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("[]")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "minute", second.Header().Get("X-RateLimit-Type"))
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.2, 203.0.113.9")
	assert.Equal(t, "198.51.100.2", getClientIP(req))
}
