package selection

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// MemoryStore keeps runs in process; used without DATABASE_URL and in tests
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]*contracts.RunResult
	latest time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*contracts.RunResult)}
}

var _ contracts.RunStore = (*MemoryStore)(nil)

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SaveRun stores a copy of the result, replacing the same as-of date
func (s *MemoryStore) SaveRun(_ context.Context, result *contracts.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[dateKey(result.AsOf)] = cloneRun(result)
	if s.latest.IsZero() || dateKey(result.AsOf) >= dateKey(s.latest) {
		s.latest = result.AsOf
	}
	return nil
}

// GetRun returns a copy of the stored run
func (s *MemoryStore) GetRun(_ context.Context, asOf time.Time) (*contracts.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[dateKey(asOf)]
	if !ok {
		return nil, contracts.ErrRunNotFound
	}
	return cloneRun(run), nil
}

// LatestAsOf returns the newest as-of date saved
func (s *MemoryStore) LatestAsOf(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest.IsZero() {
		return time.Time{}, contracts.ErrRunNotFound
	}
	return s.latest, nil
}

// cloneRun copies every nested slice, map and pointer of a run
func cloneRun(r *contracts.RunResult) *contracts.RunResult {
	out := *r
	out.Records = make([]contracts.CompositeRecord, len(r.Records))
	for i, rec := range r.Records {
		out.Records[i] = rec.Clone()
	}
	out.Audit = make([]contracts.AuditEntry, len(r.Audit))
	for i, e := range r.Audit {
		e.Evidence = slices.Clone(e.Evidence)
		out.Audit[i] = e
	}
	return &out
}
