package core

import "time"

// FixedWindow implements the fixed window rate limiting algorithm
type FixedWindow struct {
	policy Policy
}

// NewFixedWindow creates a fixed window checker for the given policy
func NewFixedWindow(policy Policy) *FixedWindow {
	return &FixedWindow{policy: policy}
}

// Check consumes one request against state and returns the window that must be
// stored for the key along with the decision.
//
// An active window is updated in place. A missing or expired window is replaced
// by a fresh one with Count 1, it is never reused. A denied request leaves the
// count untouched.
//
// Check does not validate the policy; callers reject non-positive limits and
// windows before reaching it.
func (fw *FixedWindow) Check(state *Window, now time.Time) (*Window, Decision) {
	if state.Expired(now) {
		fresh := &Window{
			Count:   1,
			ResetAt: now.Add(fw.policy.Window),
		}
		return fresh, Decision{
			Allowed:   true,
			Remaining: remaining(fw.policy.Limit, fresh.Count),
			Limit:     fw.policy.Limit,
			ResetAt:   fresh.ResetAt,
		}
	}

	if state.Count >= fw.policy.Limit {
		return state, Decision{
			Allowed:   false,
			Remaining: 0,
			Limit:     fw.policy.Limit,
			ResetAt:   state.ResetAt,
		}
	}

	state.Count++
	return state, Decision{
		Allowed:   true,
		Remaining: remaining(fw.policy.Limit, state.Count),
		Limit:     fw.policy.Limit,
		ResetAt:   state.ResetAt,
	}
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
