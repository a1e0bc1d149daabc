package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression with a seconds field
	// e.g. "0 30 18 * * 1-5" (weekdays 18:30)
	Schedule() string
}

// JobResult represents the result of one job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const defaultHistoryLimit = 100

// JobHistory keeps the latest results of one job
type JobHistory struct {
	mu      sync.RWMutex
	results []JobResult
	limit   int
}

func newJobHistory(limit int) *JobHistory {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &JobHistory{limit: limit}
}

// AddResult appends a result, dropping the oldest beyond the limit
func (h *JobHistory) AddResult(result JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, result)
	if len(h.results) > h.limit {
		h.results = h.results[len(h.results)-h.limit:]
	}
}

// Len returns the number of stored results
func (h *JobHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// Failures returns every failed result
func (h *JobHistory) Failures() []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	failed := make([]JobResult, 0)
	for _, r := range h.results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate returns successes / runs (0 when empty)
func (h *JobHistory) SuccessRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.results))
}
