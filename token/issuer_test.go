package token

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestIssueUnique(t *testing.T) {
	issuer := NewIssuer(nil)

	const n = 1000
	seen := make(map[string]struct{}, n)
	for range n {
		tok, err := issuer.Issue(time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		if _, dup := seen[tok.Value]; dup {
			t.Fatalf("duplicate token value: %s", tok.Value)
		}
		seen[tok.Value] = struct{}{}
	}
}

func TestIssueEntropySize(t *testing.T) {
	issuer := NewIssuer(nil)

	tok, err := issuer.Issue(time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tok.Value)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != rawSize {
		t.Fatalf("expected %d random bytes, got %d", rawSize, len(raw))
	}
}

func TestIssueExpiry(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer(func() time.Time { return fixed })

	tok, err := issuer.Issue(ResetTTL)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !tok.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", fixed.Add(time.Hour), tok.ExpiresAt)
	}
}

func TestIssueRejectsNonPositiveTTL(t *testing.T) {
	issuer := NewIssuer(nil)

	if _, err := issuer.Issue(0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
	if _, err := issuer.Issue(-time.Minute); err == nil {
		t.Fatal("expected negative ttl to be rejected")
	}
}
