package authgate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	authgate "github.com/harperbeck/authgate"
)

func TestUpdateProfile(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	p := te.register(t, "a@x.com", "pw12345678")

	name := "Renamed"
	got, err := te.engine.UpdateProfile(ctx, p.ID, authgate.ProfileUpdate{
		DisplayName: &name,
		Metadata:    map[string]string{"theme": "dark"},
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if got.DisplayName != "Renamed" || got.Metadata["theme"] != "dark" {
		t.Fatalf("profile not applied: %+v", got)
	}
	if got.Role != authgate.RoleUser {
		t.Fatalf("profile update touched the role: %q", got.Role)
	}
}

func TestUpdateProfileRejectsBlankName(t *testing.T) {
	te := newTestEngine(t, nil)

	p := te.register(t, "a@x.com", "pw12345678")
	blank := "   "
	_, err := te.engine.UpdateProfile(context.Background(), p.ID, authgate.ProfileUpdate{DisplayName: &blank})
	if !errors.Is(err, authgate.ErrInvalidDisplayName) {
		t.Fatalf("got %v, want ErrInvalidDisplayName", err)
	}

	long := strings.Repeat("n", 51)
	_, err = te.engine.UpdateProfile(context.Background(), p.ID, authgate.ProfileUpdate{DisplayName: &long})
	if !errors.Is(err, authgate.ErrInvalidDisplayName) {
		t.Fatalf("over-long name: got %v, want ErrInvalidDisplayName", err)
	}
}

func TestChangePassword(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	p := te.register(t, "a@x.com", "pw12345678")

	if err := te.engine.ChangePassword(ctx, p.ID, "wrong-current", "newsecret99"); !errors.Is(err, authgate.ErrInvalidCredentials) {
		t.Fatalf("wrong current secret: %v", err)
	}
	if err := te.engine.ChangePassword(ctx, p.ID, "pw12345678", "short"); !errors.Is(err, authgate.ErrPasswordPolicy) {
		t.Fatalf("weak new secret: %v", err)
	}
	if err := te.engine.ChangePassword(ctx, p.ID, "pw12345678", "newsecret99"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := te.engine.Authenticate(ctx, "a@x.com", "pw12345678"); !errors.Is(err, authgate.ErrInvalidCredentials) {
		t.Fatalf("old secret still accepted: %v", err)
	}
	if _, err := te.engine.Authenticate(ctx, "a@x.com", "newsecret99"); err != nil {
		t.Fatalf("new secret rejected: %v", err)
	}
}

func TestSetRole(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	p := te.register(t, "a@x.com", "pw12345678")

	if _, err := te.engine.SetRole(ctx, p.ID, authgate.Role("superuser")); !errors.Is(err, authgate.ErrInvalidRole) {
		t.Fatalf("unknown role accepted: %v", err)
	}

	got, err := te.engine.SetRole(ctx, p.ID, authgate.RoleAdmin)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if got.Role != authgate.RoleAdmin {
		t.Fatalf("role = %q, want admin", got.Role)
	}
}

func TestDeleteAccount(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	p := te.register(t, "a@x.com", "pw12345678")

	if err := te.engine.DeleteAccount(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := te.engine.Authenticate(ctx, "a@x.com", "pw12345678"); !errors.Is(err, authgate.ErrInvalidCredentials) {
		t.Fatalf("deleted account still authenticates: %v", err)
	}
}
