package model

import "time"

// Run status constants.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run represents one load-generation run: the knobs it was started with and,
// once finished, the final counter totals.
type Run struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Driver      string     `json:"driver"`
	StoreName   string     `json:"store_name"`
	Poolsize    int        `json:"poolsize"`
	Concurrency int        `json:"concurrency"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	// Final totals, populated when the run finishes.
	Requests       uint64  `json:"requests"`
	ResponsesOK    uint64  `json:"responses_ok"`
	Exceptions     uint64  `json:"exceptions"`
	Timeouts       uint64  `json:"timeouts"`
	RateLimited    uint64  `json:"ratelimited"`
	BackendTimeout uint64  `json:"backend_timeouts"`
	Unsupported    uint64  `json:"unsupported"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	AvgLatencyNS   float64 `json:"avg_latency_ns"`
}
