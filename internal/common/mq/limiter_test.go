package mq_test

import (
	"context"
	"testing"
	"time"

	"codecampus/internal/common/mq"
)

func TestTokenLimiter_TryAcquire(t *testing.T) {
	limiter := mq.NewTokenLimiter(2)

	if !limiter.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if !limiter.TryAcquire() {
		t.Fatal("second acquire should succeed")
	}
	if limiter.TryAcquire() {
		t.Fatal("third acquire must be rejected immediately")
	}

	limiter.Release()
	if !limiter.TryAcquire() {
		t.Fatal("acquire after release should succeed")
	}
}

func TestTokenLimiter_AcquireBlocksUntilRelease(t *testing.T) {
	limiter := mq.NewTokenLimiter(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- limiter.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire must block while no token is free")
	case <-time.After(30 * time.Millisecond):
	}

	limiter.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Acquire() after release error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not resume after release")
	}
}

func TestTokenLimiter_AcquireHonorsContext(t *testing.T) {
	limiter := mq.NewTokenLimiter(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(ctx); err == nil {
		t.Fatal("Acquire must fail when the context expires")
	}
}

func TestNewTokenLimiter_MinimumSize(t *testing.T) {
	limiter := mq.NewTokenLimiter(0)
	if !limiter.TryAcquire() {
		t.Fatal("zero-size limiter must fall back to capacity 1")
	}
	if limiter.TryAcquire() {
		t.Fatal("capacity must be exactly 1")
	}
}
