package monitor

import (
	"sync/atomic"
	"time"
)

// Stats holds the running counters.
type Stats struct {
	requestsOK    atomic.Int64
	requestsError atomic.Int64
	alertsSent    atomic.Int64
	cycles        atomic.Int64
	failedCycles  atomic.Int64
	startedAt     time.Time
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	RequestsOK    int64         `json:"requests_ok"`
	RequestsError int64         `json:"requests_error"`
	AlertsSent    int64         `json:"alerts_sent"`
	Cycles        int64         `json:"cycles"`
	FailedCycles  int64         `json:"failed_cycles"`
	StartedAt     time.Time     `json:"started_at"`
	Uptime        time.Duration `json:"uptime"`
	SuccessRate   float64       `json:"success_rate"`
}

// NewStats starts the uptime clock at startedAt.
func NewStats(startedAt time.Time) *Stats {
	return &Stats{startedAt: startedAt}
}

// RecordRequestOK counts a successful kline fetch.
func (s *Stats) RecordRequestOK() { s.requestsOK.Add(1) }

// RecordRequestError counts a fetch that exhausted its retries.
func (s *Stats) RecordRequestError() { s.requestsError.Add(1) }

// RecordAlertSent counts a delivered alert.
func (s *Stats) RecordAlertSent() { s.alertsSent.Add(1) }

func (s *Stats) recordCycle() { s.cycles.Add(1) }

func (s *Stats) recordFailedCycle() { s.failedCycles.Add(1) }

// StartedAt returns when monitoring started.
func (s *Stats) StartedAt() time.Time { return s.startedAt }

// SuccessRate is the percentage of successful fetches, 0 with no requests.
func (s *Stats) SuccessRate() float64 {
	ok := s.requestsOK.Load()
	total := ok + s.requestsError.Load()
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total) * 100
}

// Uptime returns the time since start.
func (s *Stats) Uptime(now time.Time) time.Duration {
	return now.Sub(s.startedAt)
}

// Snapshot copies the counters.
func (s *Stats) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		RequestsOK:    s.requestsOK.Load(),
		RequestsError: s.requestsError.Load(),
		AlertsSent:    s.alertsSent.Load(),
		Cycles:        s.cycles.Load(),
		FailedCycles:  s.failedCycles.Load(),
		StartedAt:     s.startedAt,
		Uptime:        s.Uptime(now),
		SuccessRate:   s.SuccessRate(),
	}
}
