package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codecampus/internal/common/cache"
	"codecampus/internal/event"
	"codecampus/internal/stats/service"
	appErr "codecampus/pkg/errors"
)

func newConsumer(t *testing.T) (*service.StatsConsumer, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	consumer, err := service.NewStatsConsumer(cache.NewRedisCacheWithClient(client), time.Hour)
	if err != nil {
		t.Fatalf("NewStatsConsumer() error = %v", err)
	}
	return consumer, server
}

func submissionEnvelope(t *testing.T, userID int64, verdict, requestID string) *event.Envelope {
	t.Helper()
	env, err := event.NewEnvelope(event.ActionSubmissionCreate, event.SubmissionCreateData{
		SubmissionID: requestID,
		UserID:       userID,
		ProblemID:    7,
		Verdict:      verdict,
	}, requestID)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	return env
}

func TestHandleSubmissionCreate_CountsOncePerRequest(t *testing.T) {
	consumer, _ := newConsumer(t)
	env := submissionEnvelope(t, 42, "AC", "r1")

	// Second delivery of the same request id must be a no-op.
	for i := 0; i < 2; i++ {
		if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
			t.Fatalf("delivery %d: HandleSubmissionCreate() error = %v", i+1, err)
		}
	}

	stats, err := consumer.GetUserStats(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if stats.Submissions != 1 || stats.Accepted != 1 {
		t.Errorf("stats = %+v, want exactly one submission and one accepted", stats)
	}
}

func TestHandleSubmissionCreate_AcceptedOnlyOnAC(t *testing.T) {
	consumer, _ := newConsumer(t)

	for i, verdict := range []string{"AC", "WA", "TLE"} {
		env := submissionEnvelope(t, 42, verdict, "r"+strconv.Itoa(i))
		if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
			t.Fatalf("verdict %q: HandleSubmissionCreate() error = %v", verdict, err)
		}
	}

	stats, err := consumer.GetUserStats(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if stats.Submissions != 3 {
		t.Errorf("Submissions = %d, want 3", stats.Submissions)
	}
	if stats.Accepted != 1 {
		t.Errorf("Accepted = %d, only the AC verdict may count", stats.Accepted)
	}
}

func TestHandleSubmissionCreate_ValidationFailures(t *testing.T) {
	consumer, _ := newConsumer(t)

	tests := []struct {
		name string
		env  func(t *testing.T) *event.Envelope
	}{
		{"missing user", func(t *testing.T) *event.Envelope {
			return submissionEnvelope(t, 0, "AC", "r1")
		}},
		{"missing request id", func(t *testing.T) *event.Envelope {
			env := submissionEnvelope(t, 42, "AC", "r1")
			env.RequestID = ""
			return env
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := consumer.HandleSubmissionCreate(context.Background(), tt.env(t))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !appErr.IsPermanent(err) {
				t.Error("validation failure must be permanent so the envelope is dropped")
			}
		})
	}
}

func TestHandleSubmissionCreate_CacheFailureIsTransient(t *testing.T) {
	consumer, server := newConsumer(t)
	server.Close()

	err := consumer.HandleSubmissionCreate(context.Background(), submissionEnvelope(t, 42, "AC", "r1"))
	if err == nil {
		t.Fatal("expected error against a dead cache")
	}
	if appErr.IsPermanent(err) {
		t.Error("cache failure must stay transient so the broker retries")
	}
	if got := appErr.GetCode(err); got != appErr.CacheError {
		t.Errorf("code = %v, want %v", got, appErr.CacheError)
	}
}

// faultyCounterCache delegates to a real cache but fails the first n
// HIncrBy calls, mimicking a transient redis hiccup mid-handler.
type faultyCounterCache struct {
	cache.Cache
	failures int
}

func (f *faultyCounterCache) HIncrBy(ctx context.Context, key, field string, value int64) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errRedisHiccup
	}
	return f.Cache.HIncrBy(ctx, key, field, value)
}

var errRedisHiccup = errors.New("connection reset by peer")

func TestHandleSubmissionCreate_RetryAfterCounterFailure(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	faulty := &faultyCounterCache{Cache: cache.NewRedisCacheWithClient(client), failures: 1}

	consumer, err := service.NewStatsConsumer(faulty, time.Hour)
	if err != nil {
		t.Fatalf("NewStatsConsumer() error = %v", err)
	}
	env := submissionEnvelope(t, 42, "AC", "r1")

	// First delivery claims the dedup marker, then the counter bump fails
	// transiently. The marker must be released so redelivery still counts.
	err = consumer.HandleSubmissionCreate(context.Background(), env)
	if err == nil {
		t.Fatal("expected error from the failed counter bump")
	}
	if appErr.IsPermanent(err) {
		t.Error("counter failure must stay transient so the broker retries")
	}

	if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
		t.Fatalf("redelivery: HandleSubmissionCreate() error = %v", err)
	}
	stats, err := consumer.GetUserStats(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if stats.Submissions != 1 || stats.Accepted != 1 {
		t.Errorf("stats = %+v, redelivery after a transient failure must apply the count once", stats)
	}
}

func TestHandleSubmissionCreate_AcceptedFailureRollsBackSubmissions(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	// First HIncrBy (submissions) succeeds; simulate the second (accepted)
	// failing by failing call two via a delegating wrapper.
	faulty := &secondCallFaultyCache{Cache: cache.NewRedisCacheWithClient(client)}

	consumer, err := service.NewStatsConsumer(faulty, time.Hour)
	if err != nil {
		t.Fatalf("NewStatsConsumer() error = %v", err)
	}
	env := submissionEnvelope(t, 42, "AC", "r1")

	if err := consumer.HandleSubmissionCreate(context.Background(), env); err == nil {
		t.Fatal("expected error from the failed accepted bump")
	}
	if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
		t.Fatalf("redelivery: HandleSubmissionCreate() error = %v", err)
	}

	stats, _ := consumer.GetUserStats(context.Background(), 42)
	if stats.Submissions != 1 || stats.Accepted != 1 {
		t.Errorf("stats = %+v, partial bump must be rolled back before retry", stats)
	}
}

// secondCallFaultyCache fails exactly the second HIncrBy it sees, then
// behaves normally.
type secondCallFaultyCache struct {
	cache.Cache
	calls int
}

func (f *secondCallFaultyCache) HIncrBy(ctx context.Context, key, field string, value int64) (int64, error) {
	f.calls++
	if f.calls == 2 {
		return 0, errRedisHiccup
	}
	return f.Cache.HIncrBy(ctx, key, field, value)
}

func TestGetUserStats_EmptyUser(t *testing.T) {
	consumer, _ := newConsumer(t)

	stats, err := consumer.GetUserStats(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if stats.Submissions != 0 || stats.Accepted != 0 {
		t.Errorf("stats = %+v, want zero counters for an unseen user", stats)
	}
}

func TestHandleSubmissionCreate_DedupMarkerExpires(t *testing.T) {
	consumer, server := newConsumer(t)
	env := submissionEnvelope(t, 42, "WA", "r1")

	if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
		t.Fatalf("HandleSubmissionCreate() error = %v", err)
	}
	server.FastForward(2 * time.Hour)

	// After the window the marker is gone; the same request id counts again.
	if err := consumer.HandleSubmissionCreate(context.Background(), env); err != nil {
		t.Fatalf("HandleSubmissionCreate() after expiry error = %v", err)
	}
	stats, _ := consumer.GetUserStats(context.Background(), 42)
	if stats.Submissions != 2 {
		t.Errorf("Submissions = %d, want 2 after marker expiry", stats.Submissions)
	}
}
