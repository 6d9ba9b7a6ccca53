package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestNilLimiterIsNoOp(t *testing.T) {
	var l *Limiter
	ctx := context.Background()
	if err := l.CheckLogin(ctx, "a", "1.2.3.4"); err != nil {
		t.Fatalf("nil CheckLogin: %v", err)
	}
	if err := l.RecordLoginFailure(ctx, "a", "1.2.3.4"); err != nil {
		t.Fatalf("nil RecordLoginFailure: %v", err)
	}
	if err := l.CheckRequest(ctx, "a", "1.2.3.4"); err != nil {
		t.Fatalf("nil CheckRequest: %v", err)
	}
}

func TestLoginBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginAttempts: 2,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.RecordLoginFailure(ctx, "alice", ""); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	// A different identity has its own budget.
	if err := l.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("unrelated identity limited: %v", err)
	}
}

func TestResetLoginClearsBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "alice", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	if err := l.ResetLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("check after reset: %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "alice", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}

	mr.FastForward(61 * time.Second)

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("check after window: %v", err)
	}
}

func TestIPThrottleSharedAcrossIdentities(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "alice", "9.9.9.9"); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Same IP, different identity: the IP budget is already spent.
	if err := l.CheckLogin(ctx, "bob", "9.9.9.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
}

func TestRequestBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxRequestAttempts: 2,
		RequestCooldown:    time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRequest(ctx, "alice", ""); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.CheckRequest(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
}

func TestOutageSurfacesAsRedisUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	mr.Close()

	err := l.RecordLoginFailure(context.Background(), "alice", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("got %v, want ErrRedisUnavailable", err)
	}
}
