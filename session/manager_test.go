package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:        30 * 24 * time.Hour,
		SigningKey: testKey,
		Issuer:     "authgate-test",
		TimeFunc:   now,
	}, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestIssueAndValidate(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	raw, issued, err := m.Issue("p1", "user", false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if issued.ID == "" {
		t.Fatal("expected a generated jti")
	}

	claims, err := m.Validate(ctx, raw)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.PrincipalID != "p1" || claims.Role != "user" || claims.Verified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID != issued.ID {
		t.Fatalf("jti mismatch: issued %s, validated %s", issued.ID, claims.ID)
	}
}

func TestValidateTamperEvidence(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	raw, _, err := m.Issue("p1", "admin", true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Flipping any single byte must produce the uniform failure.
	for i := 0; i < len(raw); i++ {
		mutated := []byte(raw)
		mutated[i] ^= 0x01
		if string(mutated) == raw {
			continue
		}
		if _, err := m.Validate(ctx, string(mutated)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("byte %d flipped: expected ErrInvalid, got %v", i, err)
		}
	}
}

func TestValidateExpiry(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	m := newTestManager(t, func() time.Time { return now })
	ctx := context.Background()

	raw, _, err := m.Issue("p1", "user", true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	now = issuedAt.Add(30*24*time.Hour - time.Second)
	if _, err := m.Validate(ctx, raw); err != nil {
		t.Fatalf("expected credential to be live one second before expiry, got %v", err)
	}

	now = issuedAt.Add(30*24*time.Hour + time.Second)
	if _, err := m.Validate(ctx, raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected expired credential to fail with ErrInvalid, got %v", err)
	}
}

func TestValidateRejectsForeignKey(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	other, err := NewManager(Config{
		TTL:        time.Hour,
		SigningKey: []byte("ffffffffffffffffffffffffffffffff"),
	}, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	raw, _, err := other.Issue("p1", "user", false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := m.Validate(ctx, raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected foreign-key credential to fail with ErrInvalid, got %v", err)
	}
}

func TestValidateRejectsUnsignedAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	claims := &Claims{PrincipalID: "p1", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    "authgate-test",
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims)
	raw, err := tok.SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := m.Validate(ctx, raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected alg=none to fail with ErrInvalid, got %v", err)
	}
}

func TestKeyRotationWithVerifyKeys(t *testing.T) {
	ctx := context.Background()
	oldKey := []byte("oldoldoldoldoldoldoldoldoldold00")
	newKey := []byte("newnewnewnewnewnewnewnewnewnew00")

	oldManager, err := NewManager(Config{
		TTL: time.Hour, SigningKey: oldKey, KeyID: "k1",
		VerifyKeys: map[string][]byte{"k1": oldKey},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager(old) error: %v", err)
	}
	rawOld, _, err := oldManager.Issue("p1", "user", true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// After rotation the new manager signs with k2 but still trusts k1.
	rotated, err := NewManager(Config{
		TTL: time.Hour, SigningKey: newKey, KeyID: "k2",
		VerifyKeys: map[string][]byte{"k1": oldKey, "k2": newKey},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager(rotated) error: %v", err)
	}

	if _, err := rotated.Validate(ctx, rawOld); err != nil {
		t.Fatalf("expected pre-rotation credential to stay valid, got %v", err)
	}

	rawNew, _, err := rotated.Issue("p2", "admin", true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	claims, err := rotated.Validate(ctx, rawNew)
	if err != nil {
		t.Fatalf("Validate(new) error: %v", err)
	}
	if claims.PrincipalID != "p2" {
		t.Fatalf("unexpected principal id %q", claims.PrincipalID)
	}

	// A manager trusting only k2 must reject k1 credentials uniformly.
	strict, err := NewManager(Config{
		TTL: time.Hour, SigningKey: newKey, KeyID: "k2",
		VerifyKeys: map[string][]byte{"k2": newKey},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager(strict) error: %v", err)
	}
	if _, err := strict.Validate(ctx, rawOld); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected retired-key credential to fail with ErrInvalid, got %v", err)
	}
}

func TestRevocation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m, err := NewManager(Config{
		TTL:        time.Hour,
		SigningKey: testKey,
	}, NewRevocationList(rdb, ""))
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	ctx := context.Background()

	raw, claims, err := m.Issue("p1", "user", true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := m.Validate(ctx, raw); err != nil {
		t.Fatalf("Validate before revoke: %v", err)
	}

	if err := m.Revoke(ctx, claims); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, err := m.Validate(ctx, raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected revoked credential to fail with ErrInvalid, got %v", err)
	}

	// Backend outage is reported distinctly, not as a false "valid".
	mr.Close()
	if _, err := m.Validate(ctx, raw); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("expected ErrRevocationUnavailable on backend outage, got %v", err)
	}
}

func TestNewManagerConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningKey: testKey}},
		{"short key", Config{TTL: time.Hour, SigningKey: []byte("short")}},
		{"negative leeway", Config{TTL: time.Hour, SigningKey: testKey, Leeway: -time.Second}},
		{"huge leeway", Config{TTL: time.Hour, SigningKey: testKey, Leeway: time.Hour}},
		{"kid not in verify keys", Config{TTL: time.Hour, SigningKey: testKey, KeyID: "k1", VerifyKeys: map[string][]byte{"k2": testKey}}},
		{"short verify key", Config{TTL: time.Hour, SigningKey: testKey, VerifyKeys: map[string][]byte{"k1": []byte("short")}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg, nil); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}
