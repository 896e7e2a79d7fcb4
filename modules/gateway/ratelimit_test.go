package gateway

import (
	"context"
	"testing"
	"time"
)

func TestBucketLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := newBucketLimiter(3, 1)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user-alice")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be within burst", i)
		}
	}

	if ok, _ := l.Allow(ctx, "user-alice"); ok {
		t.Error("expected request over burst to be blocked")
	}
}

func TestBucketLimiterRefills(t *testing.T) {
	l := newBucketLimiter(2, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	l.Allow(ctx, "user-alice")
	l.Allow(ctx, "user-alice")
	if ok, _ := l.Allow(ctx, "user-alice"); ok {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(2 * time.Second)
	if ok, _ := l.Allow(ctx, "user-alice"); !ok {
		t.Error("expected refill after 2s")
	}
}

func TestBucketLimiterIsPerUser(t *testing.T) {
	l := newBucketLimiter(1, 1)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	ctx := context.Background()
	l.Allow(ctx, "user-alice")
	if ok, _ := l.Allow(ctx, "user-alice"); ok {
		t.Fatal("alice should be blocked")
	}
	if ok, _ := l.Allow(ctx, "user-bob"); !ok {
		t.Error("bob has their own bucket and should be allowed")
	}
}

func TestBucketLimiterForgetResets(t *testing.T) {
	l := newBucketLimiter(1, 1)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	ctx := context.Background()
	l.Allow(ctx, "user-alice")
	if ok, _ := l.Allow(ctx, "user-alice"); ok {
		t.Fatal("alice should be blocked")
	}

	l.Forget(ctx, "user-alice")
	if ok, _ := l.Allow(ctx, "user-alice"); !ok {
		t.Error("expected fresh bucket after Forget")
	}
}
