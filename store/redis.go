package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harperbeck/authgate"
)

const consumeRetries = 4

// RedisStore persists principals in Redis. Key layout under the
// configured prefix (default "agp"):
//
//	agp:id:<principal id>        JSON document
//	agp:ident:<identity>         identity index, value is the id
//	agp:tok:v:<token value>      live verification token index, TTL-bounded
//	agp:tok:r:<token value>      live reset token index, TTL-bounded
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. prefix defaults to "agp"; a nil now
// falls back to time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = "agp"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) idKey(id string) string {
	return s.prefix + ":id:" + id
}

func (s *RedisStore) identKey(identity string) string {
	return s.prefix + ":ident:" + authgate.NormalizeIdentity(identity)
}

func (s *RedisStore) tokenKey(kind authgate.TokenKind, value string) string {
	if kind == authgate.TokenReset {
		return s.prefix + ":tok:r:" + value
	}
	return s.prefix + ":tok:v:" + value
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*authgate.Principal, error) {
	return s.load(ctx, s.idKey(id))
}

func (s *RedisStore) FindByIdentity(ctx context.Context, identity string) (*authgate.Principal, error) {
	id, err := s.redis.Get(ctx, s.identKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authgate.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
	return s.load(ctx, s.idKey(id))
}

func (s *RedisStore) FindByToken(ctx context.Context, kind authgate.TokenKind, value string) (*authgate.Principal, error) {
	if value == "" {
		return nil, authgate.ErrTokenNotFound
	}
	id, err := s.redis.Get(ctx, s.tokenKey(kind, value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authgate.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}

	p, err := s.load(ctx, s.idKey(id))
	if err != nil {
		if errors.Is(err, authgate.ErrPrincipalNotFound) {
			return nil, authgate.ErrTokenNotFound
		}
		return nil, err
	}

	// The index key's TTL already bounds expiry; the document is still
	// the source of truth for the exact boundary.
	tok := tokenOf(p, kind)
	if tok == nil || tok.Value != value || !tok.Live(s.now()) {
		return nil, authgate.ErrTokenNotFound
	}
	return p, nil
}

func (s *RedisStore) Insert(ctx context.Context, p *authgate.Principal) error {
	if p == nil || p.ID == "" || p.Identity == "" {
		return errors.New("insert requires id and identity")
	}

	ok, err := s.redis.SetNX(ctx, s.identKey(p.Identity), p.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
	if !ok {
		return authgate.ErrDuplicateIdentity
	}

	if err := s.write(ctx, nil, p); err != nil {
		// Roll the index claim back so the identity is not orphaned.
		_ = s.redis.Del(ctx, s.identKey(p.Identity)).Err()
		return err
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, id string, patch authgate.PrincipalPatch) (*authgate.Principal, error) {
	var updated *authgate.Principal
	key := s.idKey(id)

	for range consumeRetries {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			p, err := s.loadTx(ctx, tx, key)
			if err != nil {
				return err
			}

			before := *p
			applyPatch(p, patch, s.now())
			if err := s.writeTx(ctx, tx, &before, p); err != nil {
				return err
			}
			updated = p
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, s.mapErr(err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: update contention not resolved", authgate.ErrStoreUnavailable)
}

// errIndexMoved aborts a consume round whose pre-resolved token index no
// longer points at the same principal.
var errIndexMoved = errors.New("token index moved")

// ConsumeToken checks the live token and applies patch plus the token
// clear inside one WATCH transaction. The watch set covers the token
// index, the key every concurrent consumption of this token contends on,
// and the principal document itself, so a concurrent Update or a consume
// of the principal's other token kind aborts the EXEC instead of being
// clobbered by a stale full-document write. Exactly one consumer of a
// token wins; the rest observe ErrTokenNotFound.
func (s *RedisStore) ConsumeToken(ctx context.Context, kind authgate.TokenKind, value string, patch authgate.PrincipalPatch) (*authgate.Principal, error) {
	if value == "" {
		return nil, authgate.ErrTokenNotFound
	}

	tokKey := s.tokenKey(kind, value)
	var consumed *authgate.Principal

	for range consumeRetries {
		// Resolve the principal outside the transaction so its document
		// key can join the watch set.
		id, err := s.redis.Get(ctx, tokKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, authgate.ErrTokenNotFound
			}
			return nil, s.mapErr(err)
		}
		idKey := s.idKey(id)

		err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, tokKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return authgate.ErrTokenNotFound
				}
				return err
			}
			if current != id {
				return errIndexMoved
			}

			p, err := s.loadTx(ctx, tx, idKey)
			if err != nil {
				if errors.Is(err, authgate.ErrPrincipalNotFound) {
					return authgate.ErrTokenNotFound
				}
				return err
			}

			tok := tokenOf(p, kind)
			if tok == nil || tok.Value != value || !tok.Live(s.now()) {
				return authgate.ErrTokenNotFound
			}

			before := *p
			if kind == authgate.TokenReset {
				patch.ClearResetToken = true
				patch.ResetToken = nil
			} else {
				patch.ClearVerificationToken = true
				patch.VerificationToken = nil
			}
			applyPatch(p, patch, s.now())

			if err := s.writeTx(ctx, tx, &before, p); err != nil {
				return err
			}
			consumed = p
			return nil
		}, tokKey, idKey)

		if errors.Is(err, redis.TxFailedErr) || errors.Is(err, errIndexMoved) {
			continue
		}
		if err != nil {
			return nil, s.mapErr(err)
		}
		return consumed, nil
	}
	return nil, authgate.ErrTokenNotFound
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	p, err := s.load(ctx, s.idKey(id))
	if err != nil {
		return err
	}

	keys := []string{s.idKey(id), s.identKey(p.Identity)}
	if p.VerificationToken != nil {
		keys = append(keys, s.tokenKey(authgate.TokenVerification, p.VerificationToken.Value))
	}
	if p.ResetToken != nil {
		keys = append(keys, s.tokenKey(authgate.TokenReset, p.ResetToken.Value))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, key string) (*authgate.Principal, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authgate.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
	return decode(data)
}

func (s *RedisStore) loadTx(ctx context.Context, tx *redis.Tx, key string) (*authgate.Principal, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authgate.ErrPrincipalNotFound
		}
		return nil, err
	}
	return decode(data)
}

// write persists the document and reconciles the token index keys with
// the transition from before (nil on insert) to after.
func (s *RedisStore) write(ctx context.Context, before, after *authgate.Principal) error {
	data, err := json.Marshal(toRecord(after))
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.queueWrite(ctx, pipe, before, after, data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) writeTx(ctx context.Context, tx *redis.Tx, before, after *authgate.Principal) error {
	data, err := json.Marshal(toRecord(after))
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.queueWrite(ctx, pipe, before, after, data)
	})
	return err
}

func (s *RedisStore) queueWrite(ctx context.Context, pipe redis.Pipeliner, before, after *authgate.Principal, data []byte) error {
	pipe.Set(ctx, s.idKey(after.ID), data, 0)

	for _, kind := range []authgate.TokenKind{authgate.TokenVerification, authgate.TokenReset} {
		var oldTok, newTok *authgate.TokenState
		if before != nil {
			oldTok = tokenOf(before, kind)
		}
		newTok = tokenOf(after, kind)

		if oldTok != nil && (newTok == nil || newTok.Value != oldTok.Value) {
			pipe.Del(ctx, s.tokenKey(kind, oldTok.Value))
		}
		if newTok != nil && (oldTok == nil || oldTok.Value != newTok.Value) {
			ttl := newTok.ExpiresAt.Sub(s.now())
			if ttl > 0 {
				pipe.Set(ctx, s.tokenKey(kind, newTok.Value), after.ID, ttl)
			}
		}
	}
	return nil
}

func (s *RedisStore) mapErr(err error) error {
	switch {
	case errors.Is(err, authgate.ErrPrincipalNotFound),
		errors.Is(err, authgate.ErrTokenNotFound),
		errors.Is(err, authgate.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", authgate.ErrStoreUnavailable, err)
	}
}

func decode(data []byte) (*authgate.Principal, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt principal document: %v", authgate.ErrStoreUnavailable, err)
	}
	return fromRecord(rec), nil
}
