package store

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/authfence/core"
)

// MemoryStore provides thread-safe in-memory storage for fixed windows.
// Contents do not survive a restart and are not shared between processes.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*core.Window
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*core.Window),
	}
}

// Consume checks and records one request for key under a single lock.
// It never returns an error.
func (s *MemoryStore) Consume(_ context.Context, key string, policy core.Policy, now time.Time) (core.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, decision := core.NewFixedWindow(policy).Check(s.windows[key], now)
	s.windows[key] = state
	return decision, nil
}

// Delete removes the window for a given key
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// Clear removes all windows
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows = make(map[string]*core.Window)
	return nil
}

// Len returns the number of keys currently held
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}

// Sweep removes windows whose reset instant has passed and returns how many
// were removed. An evicted key starts a fresh window on its next request,
// exactly as an expired one would.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if w.Expired(now) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until the returned function is called.
// A zero interval disables sweeping and returns a no-op.
func (s *MemoryStore) StartSweeper(interval time.Duration, clock func() time.Time) func() {
	if interval <= 0 {
		return func() {}
	}
	if clock == nil {
		clock = time.Now
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(clock())
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
