package authgate

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Role determines the access gate's admin-path decision. The profile
// update path never changes it; only SetRole does.
type Role string

const (
	// RoleUser is the default role for new principals.
	RoleUser Role = "user"
	// RoleAdmin grants access to admin-only paths.
	RoleAdmin Role = "admin"
	// RoleModerator is an intermediate role with no built-in gate
	// semantics; applications attach meaning in their handlers.
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// TokenKind distinguishes the two single-use token lifecycles on a
// principal record.
type TokenKind uint8

const (
	// TokenVerification authorizes the unverified→verified transition.
	TokenVerification TokenKind = iota
	// TokenReset authorizes replacing the credential secret.
	TokenReset
)

func (k TokenKind) String() string {
	if k == TokenReset {
		return "reset"
	}
	return "verification"
}

// TokenState is an outstanding token value with its expiry. Present on a
// principal only while the corresponding flow is outstanding.
type TokenState struct {
	Value     string
	ExpiresAt time.Time
}

// Live reports whether the token is usable at instant now. Expiry exactly
// at now is rejected; only a strictly future expiry is live.
func (t TokenState) Live(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Principal is the persisted identity record.
type Principal struct {
	ID          string
	Identity    string // unique, lowercased email
	DisplayName string

	// SecretHash never leaves the store boundary; Sanitized strips it
	// before a Principal is returned to callers.
	SecretHash string

	Role     Role
	Verified bool

	VerificationToken *TokenState
	ResetToken        *TokenState

	LastAuthenticatedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Metadata map[string]string
}

// Sanitized returns a copy with secret material removed. Every Principal
// that crosses the engine boundary goes through it.
func (p *Principal) Sanitized() *Principal {
	if p == nil {
		return nil
	}
	out := *p
	out.SecretHash = ""
	out.VerificationToken = nil
	out.ResetToken = nil
	return &out
}

// PrincipalPatch is a partial update applied by PrincipalStore.Update and
// ConsumeToken. Nil pointer fields are left untouched.
type PrincipalPatch struct {
	DisplayName *string
	SecretHash  *string
	Verified    *bool
	Role        *Role

	LastAuthenticatedAt *time.Time

	// Metadata replaces the stored map when non-nil.
	Metadata map[string]string

	// Token fields: a non-nil state replaces the outstanding token; the
	// clear flags remove token and expiry together.
	VerificationToken      *TokenState
	ResetToken             *TokenState
	ClearVerificationToken bool
	ClearResetToken        bool
}

// PrincipalStore is the persistence collaborator. Implementations must
// provide case-insensitive identity lookup, expiry-aware token lookup
// (expiry > now evaluated by the store, not post-filtered by callers),
// and per-record atomic update semantics for ConsumeToken.
//
// Implementations return ErrPrincipalNotFound, ErrDuplicateIdentity, and
// ErrTokenNotFound for the corresponding conditions, and wrap backend
// failures in ErrStoreUnavailable.
type PrincipalStore interface {
	FindByID(ctx context.Context, id string) (*Principal, error)
	FindByIdentity(ctx context.Context, identity string) (*Principal, error)
	// FindByToken resolves a live (unexpired) token of the given kind.
	FindByToken(ctx context.Context, kind TokenKind, value string) (*Principal, error)
	Insert(ctx context.Context, p *Principal) error
	Update(ctx context.Context, id string, patch PrincipalPatch) (*Principal, error)
	// ConsumeToken atomically checks that the token of the given kind is
	// present and live, applies patch, and clears the token and its expiry
	// in the same update. Of two concurrent consumptions exactly one wins;
	// the loser observes ErrTokenNotFound.
	ConsumeToken(ctx context.Context, kind TokenKind, value string, patch PrincipalPatch) (*Principal, error)
	Delete(ctx context.Context, id string) error
}

// NormalizeIdentity lowercases and trims an identity for case-insensitive
// comparison and storage.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ValidIdentity reports whether identity parses as a bare email address.
func ValidIdentity(identity string) bool {
	if identity == "" {
		return false
	}
	addr, err := mail.ParseAddress(identity)
	return err == nil && addr.Address == identity
}
