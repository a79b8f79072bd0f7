package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"codecampus/internal/common/cache"
	"codecampus/internal/event"
	"codecampus/internal/judge/judgepb"
	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	dedupKeyPrefix = "stats:submission:"
	userKeyPrefix  = "stats:user:"

	fieldSubmissions = "submissions"
	fieldAccepted    = "accepted"

	defaultDedupTTL = 7 * 24 * time.Hour
)

// UserStats holds the per-user counters.
type UserStats struct {
	Submissions int64 `json:"submissions"`
	Accepted    int64 `json:"accepted"`
}

// StatsConsumer maintains per-user submission counters from the event
// stream. Counter bumps are not atomic with the dedup marker, so the
// marker is claimed first: a crash between the two loses at most one
// count instead of double counting on redelivery. A failed bump releases
// the marker again so the broker's retry is not skipped as a duplicate.
type StatsConsumer struct {
	cache    cache.Cache
	dedupTTL time.Duration
}

// NewStatsConsumer creates a stats consumer.
func NewStatsConsumer(cacheClient cache.Cache, dedupTTL time.Duration) (*StatsConsumer, error) {
	if cacheClient == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if dedupTTL <= 0 {
		dedupTTL = defaultDedupTTL
	}
	return &StatsConsumer{cache: cacheClient, dedupTTL: dedupTTL}, nil
}

// RegisterHandlers binds this consumer's actions on a dispatcher.
func (s *StatsConsumer) RegisterHandlers(d *event.Dispatcher) error {
	return d.Register(event.ActionSubmissionCreate, s.HandleSubmissionCreate)
}

// HandleSubmissionCreate bumps the submitting user's counters once per
// request id.
func (s *StatsConsumer) HandleSubmissionCreate(ctx context.Context, env *event.Envelope) error {
	var data event.SubmissionCreateData
	if err := env.DecodeData(&data); err != nil {
		return err
	}
	if data.UserID <= 0 {
		return appErr.ValidationError("userId", "required")
	}
	if env.RequestID == "" {
		return appErr.ValidationError("requestId", "required")
	}

	claimed, err := s.cache.SetNX(ctx, dedupKeyPrefix+env.RequestID, "1", s.dedupTTL)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "claim dedup marker failed")
	}
	if !claimed {
		logger.Debug(ctx, "duplicate submission event skipped",
			zap.String("request_id", env.RequestID))
		return nil
	}

	userKey := userKeyPrefix + strconv.FormatInt(data.UserID, 10)
	if _, err := s.cache.HIncrBy(ctx, userKey, fieldSubmissions, 1); err != nil {
		s.releaseClaim(ctx, env.RequestID)
		return appErr.Wrapf(err, appErr.CacheError, "bump submission counter failed")
	}
	if data.Verdict == judgepb.StatusAccepted {
		if _, err := s.cache.HIncrBy(ctx, userKey, fieldAccepted, 1); err != nil {
			_, _ = s.cache.HIncrBy(ctx, userKey, fieldSubmissions, -1)
			s.releaseClaim(ctx, env.RequestID)
			return appErr.Wrapf(err, appErr.CacheError, "bump accepted counter failed")
		}
	}
	logger.Info(ctx, "submission counted",
		zap.Int64("user_id", data.UserID),
		zap.String("verdict", data.Verdict),
		zap.String("request_id", env.RequestID))
	return nil
}

// releaseClaim drops the dedup marker after a failed counter bump so the
// broker's redelivery is not skipped as a duplicate. Best effort: if the
// delete fails too, the crash-case trade-off applies and one count is lost.
func (s *StatsConsumer) releaseClaim(ctx context.Context, requestID string) {
	if err := s.cache.Del(ctx, dedupKeyPrefix+requestID); err != nil {
		logger.Warn(ctx, "release dedup marker failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// GetUserStats returns the counters for one user.
func (s *StatsConsumer) GetUserStats(ctx context.Context, userID int64) (UserStats, error) {
	if userID <= 0 {
		return UserStats{}, appErr.ValidationError("user_id", "required")
	}
	fields, err := s.cache.HGetAll(ctx, userKeyPrefix+strconv.FormatInt(userID, 10))
	if err != nil {
		return UserStats{}, appErr.Wrapf(err, appErr.CacheError, "load user stats failed")
	}
	var stats UserStats
	stats.Submissions, _ = strconv.ParseInt(fields[fieldSubmissions], 10, 64)
	stats.Accepted, _ = strconv.ParseInt(fields[fieldAccepted], 10, 64)
	return stats, nil
}
