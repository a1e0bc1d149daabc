package audit

import (
	"fmt"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// Trail accumulates audit entries of one run.
// Entries are append-only; Seq starts at 1 and increases by one.
// ⭐ SSOT: 실행 내 감사 기록은 Trail 경유로만 생성
type Trail struct {
	asOf    time.Time
	entries []contracts.AuditEntry
}

// NewTrail creates an empty trail for an as-of date
func NewTrail(asOf time.Time) *Trail {
	return &Trail{
		asOf:    asOf,
		entries: make([]contracts.AuditEntry, 0, 256),
	}
}

// AsOf returns the run date
func (t *Trail) AsOf() time.Time {
	return t.asOf
}

// Append records one entry and returns its sequence number.
// Timestamp is the as-of date so reruns produce identical trails.
func (t *Trail) Append(code string, stage contracts.Stage, scoreType contracts.ScoreType, rationale string, evidence ...contracts.Evidence) int {
	ev := make([]contracts.Evidence, len(evidence))
	copy(ev, evidence)

	seq := len(t.entries) + 1
	t.entries = append(t.entries, contracts.AuditEntry{
		Seq:       seq,
		AsOf:      t.asOf,
		Code:      code,
		Stage:     stage,
		ScoreType: scoreType,
		Evidence:  ev,
		Timestamp: t.asOf,
		Rationale: rationale,
	})
	return seq
}

// Appendf is Append with a formatted rationale
func (t *Trail) Appendf(code string, stage contracts.Stage, scoreType contracts.ScoreType, format string, args ...interface{}) int {
	return t.Append(code, stage, scoreType, fmt.Sprintf(format, args...))
}

// Len returns the number of entries
func (t *Trail) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the trail in sequence order
func (t *Trail) Entries() []contracts.AuditEntry {
	out := make([]contracts.AuditEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e
		out[i].Evidence = append([]contracts.Evidence(nil), e.Evidence...)
		if out[i].Evidence == nil {
			out[i].Evidence = []contracts.Evidence{}
		}
	}
	return out
}

// ByCode groups entries per security, preserving sequence order
func ByCode(entries []contracts.AuditEntry) map[string][]contracts.AuditEntry {
	out := make(map[string][]contracts.AuditEntry)
	for _, e := range entries {
		out[e.Code] = append(out[e.Code], e)
	}
	return out
}
