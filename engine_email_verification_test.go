package authgate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authgate "github.com/harperbeck/authgate"
)

func TestEmailVerificationFlow(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.register(t, "a@x.com", "pw12345678")
	stored, _ := te.store.FindByIdentity(ctx, "a@x.com")

	wantExpiry := te.clock.Now().Add(24 * time.Hour)
	if !stored.VerificationToken.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("verification expiry %v, want %v", stored.VerificationToken.ExpiresAt, wantExpiry)
	}

	p, err := te.engine.ConfirmEmailVerification(ctx, stored.VerificationToken.Value)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !p.Verified {
		t.Fatal("principal not marked verified")
	}

	after, _ := te.store.FindByIdentity(ctx, "a@x.com")
	if after.VerificationToken != nil {
		t.Fatal("verification token survived consumption")
	}
}

func TestEmailVerificationTokenSingleUse(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.register(t, "a@x.com", "pw12345678")
	stored, _ := te.store.FindByIdentity(ctx, "a@x.com")
	tok := stored.VerificationToken.Value

	if _, err := te.engine.ConfirmEmailVerification(ctx, tok); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := te.engine.ConfirmEmailVerification(ctx, tok); !errors.Is(err, authgate.ErrInvalidOrExpiredToken) {
		t.Fatalf("replayed token: %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestEmailVerificationTokenExpires(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.register(t, "a@x.com", "pw12345678")
	stored, _ := te.store.FindByIdentity(ctx, "a@x.com")

	te.clock.Advance(24*time.Hour + time.Minute)

	if _, err := te.engine.ConfirmEmailVerification(ctx, stored.VerificationToken.Value); !errors.Is(err, authgate.ErrInvalidOrExpiredToken) {
		t.Fatalf("expired token: %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestRequestEmailVerificationResend(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.register(t, "a@x.com", "pw12345678")
	stored, _ := te.store.FindByIdentity(ctx, "a@x.com")
	original := stored.VerificationToken.Value

	if err := te.engine.RequestEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}

	after, _ := te.store.FindByIdentity(ctx, "a@x.com")
	if after.VerificationToken.Value == original {
		t.Fatal("resend did not rotate the token")
	}
	if n := len(te.sender.Messages()); n != 2 {
		t.Fatalf("sent %d messages, want 2", n)
	}

	// The superseded token is dead.
	if _, err := te.engine.ConfirmEmailVerification(ctx, original); !errors.Is(err, authgate.ErrInvalidOrExpiredToken) {
		t.Fatalf("superseded token still works: %v", err)
	}
	if _, err := te.engine.ConfirmEmailVerification(ctx, after.VerificationToken.Value); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRequestEmailVerificationAlreadyVerified(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.register(t, "a@x.com", "pw12345678")
	stored, _ := te.store.FindByIdentity(ctx, "a@x.com")
	if _, err := te.engine.ConfirmEmailVerification(ctx, stored.VerificationToken.Value); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if err := te.engine.RequestEmailVerification(ctx, "a@x.com"); !errors.Is(err, authgate.ErrAccountVerified) {
		t.Fatalf("got %v, want ErrAccountVerified", err)
	}
}

func TestRequestEmailVerificationUnknownIdentity(t *testing.T) {
	te := newTestEngine(t, nil)

	if err := te.engine.RequestEmailVerification(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("unknown identity must not error: %v", err)
	}
	if n := len(te.sender.Messages()); n != 0 {
		t.Fatalf("unknown identity triggered %d deliveries", n)
	}
}
