// Package token issues cryptographically random, time-bounded, single-use
// opaque tokens for email verification and password reset flows.
//
// A token value carries no relationship to the principal it was issued
// for; lookup is always by token value. Single-use and atomic-consumption
// guarantees are the credential store's responsibility.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// rawSize is the number of random bytes per token: 256 bits, double the
// 128-bit floor required for unguessability.
const rawSize = 32

// Default lifetimes. Reset tokens grant a stronger capability than
// verification tokens, so their window is shorter.
const (
	VerificationTTL = 24 * time.Hour
	ResetTTL        = time.Hour
)

// Token is an issued opaque token together with its expiry instant.
// The token is live while now is strictly before ExpiresAt.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer produces opaque tokens. The zero value is not usable; construct
// with NewIssuer.
type Issuer struct {
	now func() time.Time
}

// NewIssuer returns an Issuer reading time from now. A nil now falls back
// to time.Now.
func NewIssuer(now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{now: now}
}

// Issue generates a fresh random token expiring ttl from now.
func (i *Issuer) Issue(ttl time.Duration) (Token, error) {
	if ttl <= 0 {
		return Token{}, errors.New("token ttl must be positive")
	}

	var raw [rawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return Token{}, err
	}

	return Token{
		Value:     base64.RawURLEncoding.EncodeToString(raw[:]),
		ExpiresAt: i.now().Add(ttl),
	}, nil
}
