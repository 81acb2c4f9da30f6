package api

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/authfence/pkg/authfence"
)

// Handler handles rate limit check requests
type Handler struct {
	limiter *authfence.Limiter
	metrics MetricsRecorder
	logger  *zap.Logger
}

// MetricsRecorder defines the interface for recording metrics
type MetricsRecorder interface {
	RecordDecision(purpose string, allowed bool)
}

// NewHandler creates a new API handler
func NewHandler(limiter *authfence.Limiter, metrics MetricsRecorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// maxWindowMs is the largest window_ms that fits in a time.Duration
const maxWindowMs = math.MaxInt64 / int64(time.Millisecond)

// CheckRequest represents the incoming rate limit check request.
// Either Key or Purpose must be set. Without Key the key is derived from this
// request's headers for Purpose. Limit and WindowMs fall back to the purpose's
// configured policy.
type CheckRequest struct {
	Key      string `json:"key,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
	WindowMs *int64 `json:"window_ms,omitempty"`
}

// CheckResponse represents the rate limit check response
type CheckResponse struct {
	Allowed      bool  `json:"allowed"`
	Remaining    int   `json:"remaining"`
	Limit        int   `json:"limit"`
	ResetAt      int64 `json:"reset_at"`       // Epoch milliseconds when the window ends
	RetryAfterMs int64 `json:"retry_after_ms"` // Milliseconds until retry, 0 when allowed
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CheckRateLimit handles POST /check requests
func (h *Handler) CheckRateLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST requests are allowed")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Key == "" && req.Purpose == "" {
		h.sendError(w, http.StatusBadRequest, "missing_key", "key or purpose is required")
		return
	}

	var policy authfence.PolicyConfig
	if req.Purpose != "" {
		configured, ok := h.limiter.Policy(req.Purpose)
		if !ok && (req.Limit == nil || req.WindowMs == nil) {
			h.sendError(w, http.StatusBadRequest, "unknown_purpose", "no policy configured for purpose "+req.Purpose)
			return
		}
		policy = configured
	}
	if req.Limit != nil {
		policy.Limit = *req.Limit
	}
	if req.WindowMs != nil {
		if *req.WindowMs > maxWindowMs {
			h.sendError(w, http.StatusBadRequest, "invalid_policy", "window_ms is too large")
			return
		}
		policy.Window = time.Duration(*req.WindowMs) * time.Millisecond
	}
	if err := policy.Validate(); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_policy", "limit and window_ms must be positive")
		return
	}

	key := req.Key
	if key == "" {
		derived, err := h.limiter.Key(req.Purpose, r)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "missing_key", err.Error())
			return
		}
		key = derived
	}

	decision, err := h.limiter.CheckAndConsume(r.Context(), key, policy.Limit, policy.Window)
	if err != nil {
		if authfence.IsInputError(err) {
			h.sendError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.Error("check failed", zap.String("purpose", req.Purpose), zap.Error(err))
		h.sendError(w, http.StatusServiceUnavailable, "store_unavailable", "Rate limit store is unavailable")
		return
	}

	if h.metrics != nil {
		purpose := req.Purpose
		if purpose == "" {
			purpose = "custom"
		}
		h.metrics.RecordDecision(purpose, decision.Allowed)
	}

	response := CheckResponse{
		Allowed:      decision.Allowed,
		Remaining:    decision.Remaining,
		Limit:        decision.Limit,
		ResetAt:      decision.ResetAtMillis(),
		RetryAfterMs: decision.RetryAfter(h.limiter.Now()).Milliseconds(),
	}

	statusCode := http.StatusOK
	if !decision.Allowed {
		statusCode = http.StatusTooManyRequests
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
