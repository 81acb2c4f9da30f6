package authfence

import (
	"github.com/yourusername/authfence/middleware"
	"github.com/yourusername/authfence/pkg/authfence"
)

// Re-export main types for convenience
type (
	Limiter         = authfence.Limiter
	Decision        = authfence.Decision
	Config          = authfence.Config
	PolicyConfig    = authfence.PolicyConfig
	Option          = authfence.Option
	KeyExtractor    = authfence.KeyExtractor
	RateLimitConfig = middleware.RateLimitConfig
)

var (
	// NewLimiter creates a new fixed-window limiter
	NewLimiter = authfence.NewLimiter

	// DeriveKey builds the "{purpose}:{origin}:{fingerprint}" key for a request
	DeriveKey = authfence.DeriveKey

	// RateLimit returns HTTP middleware for one purpose
	RateLimit = middleware.RateLimit
)
