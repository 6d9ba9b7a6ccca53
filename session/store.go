package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList is a Redis-backed denylist of revoked credential IDs.
// Entries carry a TTL equal to the credential's remaining lifetime, so the
// list never grows past the set of still-live revoked credentials.
type RevocationList struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRevocationList creates a RevocationList using the given client.
// prefix defaults to "agrl".
func NewRevocationList(client redis.UniversalClient, prefix string) *RevocationList {
	if prefix == "" {
		prefix = "agrl"
	}
	return &RevocationList{redis: client, prefix: prefix}
}

func (l *RevocationList) key(jti string) string {
	return l.prefix + ":" + jti
}

// Revoke marks jti revoked until the credential's own expiry. Credentials
// already past expiry need no entry.
func (l *RevocationList) Revoke(ctx context.Context, jti string, until, now time.Time) error {
	if jti == "" {
		return errors.New("empty credential id")
	}

	ttl := until.Sub(now)
	if ttl <= 0 {
		return nil
	}

	if err := l.redis.Set(ctx, l.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revocation set: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is on the denylist. A backend failure is
// returned as an error; the caller decides how to fail (the Manager fails
// closed).
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return n > 0, nil
}
