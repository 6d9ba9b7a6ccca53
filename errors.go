package authgate

import "errors"

var (
	// ErrInvalidCredentials rejects a login attempt. Unknown identity and
	// wrong secret are deliberately indistinguishable through it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredToken rejects a verification or reset token that
	// is absent, foreign, already consumed, or past expiry: all
	// indistinguishable by design.
	ErrInvalidOrExpiredToken = errors.New("token invalid or expired")
	// ErrPrincipalNotFound reports a missing principal record.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicateIdentity rejects an insert whose identity is taken.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrTokenNotFound is the store-level miss for token lookups. Flows
	// translate it to ErrInvalidOrExpiredToken before it leaves the engine.
	ErrTokenNotFound = errors.New("token not found")
	// ErrAccountUnverified rejects a login when the engine is configured
	// to require verification before authentication.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountVerified rejects a verification re-request for an account
	// that is already verified.
	ErrAccountVerified = errors.New("account already verified")
	// ErrInvalidRole rejects an unknown role name.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidIdentity rejects an identity that is not email-shaped.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidDisplayName rejects a missing or over-long display name.
	ErrInvalidDisplayName = errors.New("invalid display name")
	// ErrPasswordPolicy rejects a secret that fails the hashing policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrRateLimited rejects a request that exceeded an abuse budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable reports a persistence collaborator failure. It is
	// retryable infrastructure, never an auth decision.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrDeliveryUnavailable reports an email collaborator failure.
	ErrDeliveryUnavailable = errors.New("email delivery unavailable")
	// ErrEngineNotReady reports an Engine used before Build wired its
	// collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)
