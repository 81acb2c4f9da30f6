package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourusername/authfence/pkg/authfence"
)

type recordedDecision struct {
	purpose string
	allowed bool
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []recordedDecision
}

func (f *fakeRecorder) RecordDecision(purpose string, allowed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, recordedDecision{purpose, allowed})
}

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newLimiter(t *testing.T, opts ...authfence.Option) *authfence.Limiter {
	t.Helper()
	opts = append([]authfence.Option{authfence.WithClock(func() time.Time { return fixedNow })}, opts...)
	limiter, err := authfence.NewLimiter(opts...)
	require.NoError(t, err)
	return limiter
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})
}

func loginRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", ip)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	return req
}

func TestRateLimit_AllowedRequest(t *testing.T) {
	limiter := newLimiter(t, authfence.WithPolicy("login", 5, time.Minute))
	handler := RateLimit(RateLimitConfig{Limiter: limiter, Purpose: "login"})(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, loginRequest("192.168.1.1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", rr.Body.String())
	assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1735732860", rr.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rr.Header().Get("Retry-After"))
}

func TestRateLimit_RateLimited(t *testing.T) {
	limiter := newLimiter(t, authfence.WithPolicy("login", 3, 90*time.Second))
	recorder := &fakeRecorder{}
	core, logs := observer.New(zap.InfoLevel)
	handler := RateLimit(RateLimitConfig{
		Limiter: limiter,
		Purpose: "login",
		Logger:  zap.New(core),
		Metrics: recorder,
	})(okHandler())

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, loginRequest("192.168.1.1"))
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, loginRequest("192.168.1.1"))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "90", rr.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Equal(t, int64(90_000), body.RetryAfterMs)

	require.Len(t, recorder.decisions, 4)
	assert.Equal(t, recordedDecision{"login", false}, recorder.decisions[3])
	assert.Equal(t, 1, logs.FilterMessage("request rate limited").Len())
}

func TestRateLimit_DifferentClients(t *testing.T) {
	limiter := newLimiter(t, authfence.WithPolicy("signup", 1, time.Minute))
	handler := RateLimit(RateLimitConfig{Limiter: limiter, Purpose: "signup"})(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, loginRequest(ip))
		assert.Equal(t, http.StatusOK, rr.Code, ip)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, loginRequest("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRateLimit_LimiterError(t *testing.T) {
	limiter := newLimiter(t)
	core, logs := observer.New(zap.ErrorLevel)
	handler := RateLimit(RateLimitConfig{
		Limiter: limiter,
		Purpose: "unconfigured",
		Logger:  zap.New(core),
	})(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, loginRequest("10.0.0.1"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "rate_limit_unavailable", body.Error)
	assert.Equal(t, 1, logs.Len())
}

func TestRateLimit_KeyExtractionFailed(t *testing.T) {
	limiter := newLimiter(t, authfence.WithKeyExtractor(authfence.ExtractHeader("X-API-Key")))
	recorder := &fakeRecorder{}
	core, logs := observer.New(zap.ErrorLevel)
	handler := RateLimit(RateLimitConfig{
		Limiter: limiter,
		Purpose: "login",
		Logger:  zap.New(core),
		Metrics: recorder,
	})(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, loginRequest("10.0.0.1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "invalid_request", body.Error)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, recorder.decisions)
	assert.Equal(t, 0, logs.Len())

	req := loginRequest("10.0.0.1")
	req.Header.Set("X-API-Key", "crm-web")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
