package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/authfence/core"
)

// ErrStoreUnavailable is returned when a backing service cannot be reached
var ErrStoreUnavailable = errors.New("store unavailable")

// Store defines the interface for window state storage.
//
// Consume is the only mutation path for a key's window. Implementations must
// make the read, compare and increment for a single key atomic with respect to
// concurrent calls for the same key.
type Store interface {
	Consume(ctx context.Context, key string, policy core.Policy, now time.Time) (core.Decision, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
