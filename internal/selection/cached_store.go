package selection

import (
	"context"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/redis"
)

// resultCache is the subset of redis.Cache used here
type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// CachedStore reads through a Redis cache in front of another RunStore.
// Cache failures are logged and never fail the call.
type CachedStore struct {
	next   contracts.RunStore
	cache  resultCache
	logger *logger.Logger
}

// NewCachedStore wraps next with cache
func NewCachedStore(next contracts.RunStore, cache *redis.Cache, log *logger.Logger) *CachedStore {
	return newCachedStore(next, cache, log)
}

func newCachedStore(next contracts.RunStore, cache resultCache, log *logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		cache:  cache,
		logger: log.WithField("module", "run_cache"),
	}
}

var _ contracts.RunStore = (*CachedStore)(nil)

// SaveRun writes through and refreshes the cached entries
func (s *CachedStore) SaveRun(ctx context.Context, result *contracts.RunResult) error {
	if err := s.next.SaveRun(ctx, result); err != nil {
		return err
	}

	if err := s.cache.Set(ctx, redis.RunKey(result.AsOf), result); err != nil {
		s.logger.WithError(err).Warn("Failed to cache run")
	}
	if err := s.cache.Delete(ctx, redis.LatestRunKey); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate latest run key")
	}
	return nil
}

// GetRun serves from cache, falling back to the wrapped store
func (s *CachedStore) GetRun(ctx context.Context, asOf time.Time) (*contracts.RunResult, error) {
	var cached contracts.RunResult
	found, err := s.cache.Get(ctx, redis.RunKey(asOf), &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Run cache read failed")
	}
	if found {
		return &cached, nil
	}

	result, err := s.next.GetRun(ctx, asOf)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, redis.RunKey(asOf), result); err != nil {
		s.logger.WithError(err).Warn("Failed to cache run")
	}
	return result, nil
}

// LatestAsOf caches the newest date until the next SaveRun
func (s *CachedStore) LatestAsOf(ctx context.Context) (time.Time, error) {
	var cached time.Time
	found, err := s.cache.Get(ctx, redis.LatestRunKey, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Run cache read failed")
	}
	if found {
		return cached, nil
	}

	latest, err := s.next.LatestAsOf(ctx)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.cache.Set(ctx, redis.LatestRunKey, latest); err != nil {
		s.logger.WithError(err).Warn("Failed to cache latest run date")
	}
	return latest, nil
}
