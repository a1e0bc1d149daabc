package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned by RunStore when no run exists for a date
var ErrRunNotFound = errors.New("screening run not found")

// RunStore persists and loads run results
// ⭐ SSOT: 결과 저장소 인터페이스 (Postgres / 메모리 / 캐시)
type RunStore interface {
	SaveRun(ctx context.Context, result *RunResult) error
	GetRun(ctx context.Context, asOf time.Time) (*RunResult, error)
	LatestAsOf(ctx context.Context) (time.Time, error)
}
