package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // 앞의 N번은 실패
	calls    atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("upstream csv not ready")
	}
	return nil
}

func newTestScheduler(opts ...Option) *Scheduler {
	opts = append([]Option{WithRetry(2, time.Millisecond)}, opts...)
	return New(logger.Nop(), opts...)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 30 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	err := s.AddJob(&fakeJob{name: "a", schedule: "@daily"})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob(&fakeJob{name: "bad", schedule: "30 18 * * 1-5"})
	assert.Error(t, err, "five-field expressions are rejected when seconds are enabled")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestScheduler_RunNowRetries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first try", 0, true, 1},
		{"succeeds on retry", 2, true, 3},
		{"exhausts retries", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &fakeJob{name: "screen", schedule: "@daily", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunNow(context.Background(), "screen")
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), job.calls.Load())
			if !tt.wantSuccess {
				assert.Equal(t, "upstream csv not ready", result.Error)
			}

			history, err := s.GetJobHistory("screen")
			require.NoError(t, err)
			assert.Equal(t, 1, history.Len())
		})
	}
}

func TestScheduler_RunNowStopsOnCancel(t *testing.T) {
	s := New(logger.Nop(), WithRetry(3, time.Hour))
	job := &fakeJob{name: "screen", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunNow(ctx, "screen")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := newTestScheduler()

	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
	assert.Error(t, s.RunJob("missing"))
	assert.Error(t, s.RemoveJob("missing"))
	_, err = s.NextRun("missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "screen", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("screen"))
	assert.Empty(t, s.GetAllJobs())
	assert.NoError(t, s.AddJob(&fakeJob{name: "screen", schedule: "@daily"}), "name is free again")
}

func TestScheduler_StatsAndNextRun(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	s := newTestScheduler(WithLocation(tokyo))
	job := &fakeJob{name: "screen", schedule: "0 30 18 * * 1-5", failures: 3}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("screen")
	require.NoError(t, err)
	next = next.In(tokyo)
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())

	_, err = s.RunNow(context.Background(), "screen") // 3 attempts, all fail
	require.NoError(t, err)
	_, err = s.RunNow(context.Background(), "screen") // succeeds
	require.NoError(t, err)

	stats := s.GetJobStats()["screen"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	require.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
	require.NotNil(t, stats.NextRun)
}

func TestJobHistory_Limit(t *testing.T) {
	h := newJobHistory(3)
	for i := 0; i < 5; i++ {
		h.AddResult(JobResult{JobName: "screen", Attempts: i, Success: i%2 == 0})
	}

	assert.Equal(t, 3, h.Len())
	latest := h.Latest(10)
	require.Len(t, latest, 3)
	assert.Equal(t, 2, latest[0].Attempts)
	assert.Equal(t, 4, latest[2].Attempts)
	assert.Len(t, h.Failures(), 1)
	assert.InDelta(t, 2.0/3.0, h.SuccessRate(), 1e-9)

	assert.Zero(t, newJobHistory(0).SuccessRate())
	assert.Empty(t, newJobHistory(0).Latest(5))
}
