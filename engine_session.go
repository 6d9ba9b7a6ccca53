package authgate

import (
	"context"
	"errors"

	"github.com/harperbeck/authgate/session"
)

// SessionClaims is the signed content of a session credential.
type SessionClaims = session.Claims

// ErrSessionRevocationUnavailable reports a revocation backend outage
// during validation. Callers in the request path must still treat the
// session as absent.
var ErrSessionRevocationUnavailable = session.ErrRevocationUnavailable

// IssueSession signs a session credential for an authenticated
// principal.
func (e *Engine) IssueSession(p *Principal) (string, *SessionClaims, error) {
	if e == nil {
		return "", nil, ErrEngineNotReady
	}
	if p == nil || p.ID == "" {
		return "", nil, ErrInvalidCredentials
	}

	credential, claims, err := e.sessions.Issue(p.ID, string(p.Role), p.Verified)
	if err != nil {
		return "", nil, err
	}
	e.metricInc(MetricSessionIssued)
	return credential, claims, nil
}

// ValidateSession verifies a raw credential and returns its claims.
// Every rejection reason collapses into session.ErrInvalid.
func (e *Engine) ValidateSession(ctx context.Context, raw string) (*SessionClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	claims, err := e.sessions.Validate(ctx, raw)
	e.metrics.Observe(e.now().Sub(start))

	if err != nil {
		e.metricInc(MetricSessionValidateFailure)
		return nil, err
	}
	e.metricInc(MetricSessionValidateSuccess)
	return claims, nil
}

// Logout revokes the credential when a revocation list is configured;
// without one it is a no-op beyond audit, and the credential stays
// valid until expiry. Invalid credentials are ignored so logout is
// idempotent.
func (e *Engine) Logout(ctx context.Context, raw string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.sessions.Validate(ctx, raw)
	if err != nil {
		if errors.Is(err, session.ErrInvalid) {
			return nil
		}
		return err
	}

	if err := e.sessions.Revoke(ctx, claims); err != nil {
		return err
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditLogout, claims.PrincipalID, "", nil)
	return nil
}
