package authfence

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/authfence/store"
)

// Option is a functional option for configuring a Limiter.
type Option func(*Limiter) error

// WithStore sets a custom store for the limiter.
// If not provided, a fresh MemoryStore is used.
func WithStore(s store.Store) Option {
	return func(l *Limiter) error {
		if s == nil {
			return fmt.Errorf("%w: store cannot be nil", ErrInvalidConfig)
		}
		l.store = s
		return nil
	}
}

// WithConfig sets the configuration for the limiter.
func WithConfig(config *Config) Option {
	return func(l *Limiter) error {
		if config == nil {
			return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
		}
		if err := config.Validate(); err != nil {
			return err
		}
		l.config = config
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(l *Limiter) error {
		config, err := LoadConfigFromFile(path)
		if err != nil {
			return err
		}
		l.config = config
		return nil
	}
}

// WithPolicy adds or replaces the policy for one purpose.
func WithPolicy(purpose string, limit int, window time.Duration) Option {
	return func(l *Limiter) error {
		return l.config.SetPolicy(purpose, PolicyConfig{Limit: limit, Window: window})
	}
}

// WithKeyExtractor sets a custom key extractor function.
func WithKeyExtractor(extractor KeyExtractor) Option {
	return func(l *Limiter) error {
		if extractor == nil {
			return fmt.Errorf("%w: key extractor cannot be nil", ErrInvalidConfig)
		}
		l.keyExtractor = extractor
		return nil
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) error {
		if clock == nil {
			return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfig)
		}
		l.now = clock
		return nil
	}
}

// WithLogger sets the logger used for store failures and sweeps.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
		}
		l.logger = logger
		return nil
	}
}
