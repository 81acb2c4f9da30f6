package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks rate limiting decisions
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	blockedRequests atomic.Int64

	// Per-purpose stats
	mu           sync.RWMutex
	purposeStats map[string]*PurposeStats
	startTime    time.Time
	now          func() time.Time
}

// PurposeStats tracks decisions for one purpose label
type PurposeStats struct {
	Purpose         string    `json:"purpose"`
	TotalRequests   int64     `json:"total_requests"`
	AllowedRequests int64     `json:"allowed_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	FirstRequestAt  time.Time `json:"first_request_at"`
	LastRequestAt   time.Time `json:"last_request_at"`
	LastBlockedAt   time.Time `json:"last_blocked_at,omitempty"`
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return newMetricsWithClock(time.Now)
}

func newMetricsWithClock(now func() time.Time) *Metrics {
	return &Metrics{
		purposeStats: make(map[string]*PurposeStats),
		startTime:    now(),
		now:          now,
	}
}

// RecordDecision records one rate limit decision
func (m *Metrics) RecordDecision(purpose string, allowed bool) {
	m.totalRequests.Add(1)
	if allowed {
		m.allowedRequests.Add(1)
	} else {
		m.blockedRequests.Add(1)
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.purposeStats[purpose]
	if !exists {
		stats = &PurposeStats{
			Purpose:        purpose,
			FirstRequestAt: now,
		}
		m.purposeStats[purpose] = stats
	}

	stats.TotalRequests++
	if allowed {
		stats.AllowedRequests++
	} else {
		stats.BlockedRequests++
		stats.LastBlockedAt = now
	}
	stats.LastRequestAt = now
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() *Snapshot {
	m.mu.RLock()
	purposes := make([]*PurposeStats, 0, len(m.purposeStats))
	for _, stats := range m.purposeStats {
		copied := *stats
		purposes = append(purposes, &copied)
	}
	m.mu.RUnlock()

	sort.Slice(purposes, func(i, j int) bool {
		if purposes[i].TotalRequests != purposes[j].TotalRequests {
			return purposes[i].TotalRequests > purposes[j].TotalRequests
		}
		return purposes[i].Purpose < purposes[j].Purpose
	})

	return &Snapshot{
		TotalRequests:   m.totalRequests.Load(),
		AllowedRequests: m.allowedRequests.Load(),
		BlockedRequests: m.blockedRequests.Load(),
		Purposes:        purposes,
		UptimeSeconds:   int64(m.now().Sub(m.startTime).Seconds()),
		StartTime:       m.startTime,
	}
}

// Snapshot represents a point-in-time view of metrics
type Snapshot struct {
	TotalRequests   int64           `json:"total_requests"`
	AllowedRequests int64           `json:"allowed_requests"`
	BlockedRequests int64           `json:"blocked_requests"`
	Purposes        []*PurposeStats `json:"purposes"`
	UptimeSeconds   int64           `json:"uptime_seconds"`
	StartTime       time.Time       `json:"start_time"`
}
