package authfence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/authfence/core"
	"github.com/yourusername/authfence/store"
)

// Decision contains the result of a rate limit check.
type Decision = core.Decision

// Limiter decides whether a caller may proceed under a fixed quota per fixed
// window. It owns no state of its own; all windows live in the injected store.
type Limiter struct {
	store        store.Store
	config       *Config
	keyExtractor KeyExtractor
	now          func() time.Time
	logger       *zap.Logger
}

// NewLimiter creates a new Limiter with the given options.
// Without options it uses DefaultConfig and a fresh MemoryStore.
//
// Example:
//
//	limiter, err := NewLimiter(
//	    WithPolicy("login", 20, 10*time.Minute),
//	    WithStore(store.NewMemoryStore()),
//	)
func NewLimiter(opts ...Option) (*Limiter, error) {
	l := &Limiter{
		config: DefaultConfig(),
		now:    time.Now,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if l.keyExtractor == nil {
		extractor, err := ParseKeyExtractorConfig(l.config.KeyExtractor)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key extractor config: %w", err)
		}
		l.keyExtractor = extractor
	}

	if l.store == nil {
		l.store = store.NewMemoryStore()
	}

	return l, nil
}

// CheckAndConsume records one request for key against limit requests per window
// and reports whether it may proceed.
//
// Inputs are validated here so the store only ever sees a non-empty key and a
// positive policy. An error is returned only for invalid input or when a
// remote store fails; the in-memory store cannot fail.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if key == "" {
		return Decision{}, ErrInvalidKey
	}
	policy := PolicyConfig{Limit: limit, Window: window}
	if err := policy.Validate(); err != nil {
		return Decision{}, err
	}

	decision, err := l.store.Consume(ctx, key, core.Policy{Limit: limit, Window: window}, l.now())
	if err != nil {
		l.logger.Warn("rate limit store failed", zap.String("key", key), zap.Error(err))
		return Decision{}, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return decision, nil
}

// Allow derives the key for r and checks it against the policy configured for
// purpose.
func (l *Limiter) Allow(ctx context.Context, purpose string, r *http.Request) (Decision, error) {
	policy, ok := l.config.GetPolicy(purpose)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownPurpose, purpose)
	}

	key, err := l.keyExtractor(purpose, r)
	if err != nil {
		return Decision{}, fmt.Errorf("key extraction failed: %w", err)
	}

	decision, err := l.CheckAndConsume(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allowed {
		l.logger.Debug("rate limit exceeded",
			zap.String("purpose", purpose),
			zap.String("origin", Origin(r.Header)),
			zap.Time("reset_at", decision.ResetAt))
	}
	return decision, nil
}

// Key returns the key Allow would use for r, without consuming quota.
func (l *Limiter) Key(purpose string, r *http.Request) (string, error) {
	return l.keyExtractor(purpose, r)
}

// Policy returns the configured policy for purpose.
func (l *Limiter) Policy(purpose string) (PolicyConfig, bool) {
	return l.config.GetPolicy(purpose)
}

// Purposes returns the configured purpose labels in sorted order.
func (l *Limiter) Purposes() []string {
	return l.config.Purposes()
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Reset forgets the window for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := l.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return nil
}

// StartBackgroundCleanup starts evicting expired windows every
// Config.SweepInterval when the store supports it.
// Returns a function to stop the cleanup goroutine.
func (l *Limiter) StartBackgroundCleanup() func() {
	sweeper, ok := l.store.(interface {
		StartSweeper(time.Duration, func() time.Time) func()
	})
	if !ok || l.config.SweepInterval <= 0 {
		return func() {}
	}

	l.logger.Info("starting window sweeper", zap.Duration("interval", l.config.SweepInterval))
	return sweeper.StartSweeper(l.config.SweepInterval, l.now)
}

// IsInputError reports whether err came from invalid limiter input rather
// than a store failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrUnknownPurpose) ||
		errors.Is(err, ErrKeyExtractionFailed)
}
