package core

import "time"

// Policy defines the quota for one fixed window
type Policy struct {
	Limit  int           // Requests allowed per window
	Window time.Duration // Length of each window
}

// Window is the counting state for one key
type Window struct {
	Count   int       // Requests observed in the current window
	ResetAt time.Time // Instant after which the window is replaced
}

// Expired reports whether the window has passed its reset instant.
// A window is still active at exactly ResetAt.
func (w *Window) Expired(now time.Time) bool {
	return w == nil || now.After(w.ResetAt)
}

// Decision contains the result of a rate limit check
type Decision struct {
	Allowed   bool      // Whether the request may proceed
	Remaining int       // Requests left in the current window, never negative
	Limit     int       // Quota the decision was made against
	ResetAt   time.Time // When the current window ends
}

// ResetAtMillis returns ResetAt as epoch milliseconds.
func (d Decision) ResetAtMillis() int64 {
	return d.ResetAt.UnixMilli()
}

// RetryAfter returns how long a denied caller should wait, or 0 when allowed.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
