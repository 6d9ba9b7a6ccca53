// Package store provides reference implementations of the
// authgate.PrincipalStore collaborator.
//
// RedisStore keeps each principal as a JSON document with secondary
// indexes for identity and outstanding tokens; token index keys carry a
// TTL equal to the token's remaining life, so expiry-aware lookup is a
// property of the keyspace rather than a post-filter. MemoryStore is a
// mutex-guarded map for tests and examples.
//
// Both implementations serialize token consumption per principal:
// RedisStore with an optimistic WATCH transaction, MemoryStore with its
// lock. Two concurrent consumptions of the same token cannot both
// succeed.
package store
