package middleware

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yourusername/authfence/pkg/authfence"
)

// Recorder receives one call per rate limit decision
type Recorder interface {
	RecordDecision(purpose string, allowed bool)
}

// RateLimitConfig for creating a rate limiting middleware
type RateLimitConfig struct {
	Limiter *authfence.Limiter // Required
	Purpose string             // Policy label, e.g. "login"
	Logger  *zap.Logger        // Optional
	Metrics Recorder           // Optional
}

// ErrorBody is the JSON body written for rejected requests
type ErrorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

// RateLimit returns middleware that throttles requests under the policy for
// cfg.Purpose.
//
// Headers set on every checked response:
//   - X-RateLimit-Limit: requests allowed per window
//   - X-RateLimit-Remaining: requests left in the current window
//   - X-RateLimit-Reset: Unix timestamp when the window ends
//   - Retry-After: seconds to wait (only when rate limited)
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := cfg.Limiter.Allow(r.Context(), cfg.Purpose, r)
			if err != nil && !errors.Is(err, authfence.ErrUnknownPurpose) && authfence.IsInputError(err) {
				logger.Debug("rate limit key unavailable",
					zap.String("purpose", cfg.Purpose),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				WriteError(w, http.StatusBadRequest, ErrorBody{
					Error:   "invalid_request",
					Message: "Request is missing the headers needed to identify the client.",
				})
				return
			}
			if err != nil {
				logger.Error("rate limit check failed",
					zap.String("purpose", cfg.Purpose),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				WriteError(w, http.StatusInternalServerError, ErrorBody{
					Error:   "rate_limit_unavailable",
					Message: "Unable to evaluate rate limit.",
				})
				return
			}

			if cfg.Metrics != nil {
				cfg.Metrics.RecordDecision(cfg.Purpose, decision.Allowed)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(cfg.Limiter.Now())
				retryAfterSec := int64(math.Ceil(retryAfter.Seconds()))
				if retryAfterSec < 1 {
					retryAfterSec = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))

				logger.Info("request rate limited",
					zap.String("purpose", cfg.Purpose),
					zap.String("origin", authfence.Origin(r.Header)),
					zap.String("request_id", GetRequestID(r.Context())))

				WriteError(w, http.StatusTooManyRequests, ErrorBody{
					Error:        "rate_limit_exceeded",
					Message:      "Too many requests. Please try again later.",
					RetryAfterMs: retryAfter.Milliseconds(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes body as JSON with the given status code
func WriteError(w http.ResponseWriter, statusCode int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
