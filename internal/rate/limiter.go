// Package rate provides Redis-backed fixed-window counters bounding abuse
// of the credential endpoints.
//
// Semantics: INCR plus a conditional EXPIRE on the first hit of a window.
// Key prefixes:
//   - agl:    login failures per identity
//   - agli:   login failures per IP
//   - agr:    token requests (reset / verification re-issue) per identity
//   - agri:   token requests per IP
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)

// Config holds the window budgets.
type Config struct {
	EnableIPThrottle bool

	MaxLoginAttempts int
	LoginCooldown    time.Duration

	MaxRequestAttempts int
	RequestCooldown    time.Duration
}

// Limiter enforces per-identity and per-IP budgets. A nil *Limiter is a
// valid no-op so the engine works without Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// CheckLogin reports whether the identity+IP pair is still inside the
// failed-login budget.
func (l *Limiter) CheckLogin(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.check(ctx, "agl:"+identity, l.config.MaxLoginAttempts); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, "agli:"+ip, l.config.MaxLoginAttempts)
	}
	return nil
}

// RecordLoginFailure counts a failed attempt against identity and IP.
func (l *Limiter) RecordLoginFailure(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	count, err := l.increment(ctx, "agl:"+identity, l.config.LoginCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.increment(ctx, "agli:"+ip, l.config.LoginCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful
// authentication or credential change.
func (l *Limiter) ResetLogin(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	keys := []string{"agl:" + identity}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, "agli:"+ip)
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRequest counts and bounds token-issuing requests (password reset,
// verification re-issue) for the identity+IP pair.
func (l *Limiter) CheckRequest(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	count, err := l.increment(ctx, "agr:"+identity, l.config.RequestCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRequestAttempts) {
		return ErrRateLimited
	}
	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.increment(ctx, "agri:"+ip, l.config.RequestCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxRequestAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, key string, budget int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// The budget counts recorded failures: once it is spent, further
	// attempts are refused before any credential check runs.
	if count >= int64(budget) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
