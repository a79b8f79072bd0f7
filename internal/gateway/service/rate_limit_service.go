package service

import (
	"context"
	"time"

	"codecampus/internal/common/cache"
	pkgerrors "codecampus/pkg/errors"
)

// RateLimitService enforces fixed-window counters in the shared cache.
type RateLimitService struct {
	cache cache.Cache
}

// NewRateLimitService creates a rate limit service.
func NewRateLimitService(cacheClient cache.Cache) *RateLimitService {
	return &RateLimitService{cache: cacheClient}
}

// Allow counts one hit against key and rejects once max is exceeded
// within the window. A cache outage fails open: availability of the
// platform beats strictness of the limiter.
func (s *RateLimitService) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil || max <= 0 || window <= 0 {
		return nil
	}
	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		return nil
	}
	if count == 1 {
		_ = s.cache.Expire(ctx, key, window)
	}
	if int(count) > max {
		return pkgerrors.New(pkgerrors.TooManyRequests)
	}
	return nil
}
