package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/swayam1998/geoquests/internal/repo/redis"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 3)

	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowSubmission(ctx, userID)
		if err != nil {
			t.Fatalf("allow submission #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on attempt #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowSubmission(ctx, userID)
	if err != nil {
		t.Fatalf("allow submission #4: %v", err)
	}
	if allowed {
		t.Fatal("expected limiter block on fourth attempt in a minute")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfterSubmission(ctx, userID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(61 * time.Second)

	retryAfter, allowed, err = limiter.AllowSubmission(ctx, userID)
	if err != nil {
		t.Fatalf("allow submission after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterIsolatesUsers(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 1)

	ctx := context.Background()

	if _, allowed, err := limiter.AllowSubmission(ctx, uuid.New()); err != nil || !allowed {
		t.Fatalf("first user must be allowed: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowSubmission(ctx, uuid.New()); err != nil || !allowed {
		t.Fatalf("second user must not share the first user's window: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewLimiter(nil, 0)

	if _, allowed, err := limiter.AllowSubmission(context.Background(), uuid.New()); err != nil || !allowed {
		t.Fatalf("zero limit must disable throttling: allowed=%v err=%v", allowed, err)
	}
}
