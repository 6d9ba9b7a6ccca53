package authgate

import (
	"context"
	"errors"
)

// Authenticate verifies an identity/secret pair and returns the
// sanitized principal. Unknown identity and wrong secret both surface as
// ErrInvalidCredentials; nothing in the error or its timing says which.
func (e *Engine) Authenticate(ctx context.Context, identity, secret string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identity = NormalizeIdentity(identity)
	ip := clientIPFromContext(ctx)

	if err := e.checkThrottle(e.limiter.CheckLogin(ctx, identity, ip)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditRateLimitTriggered, "", identity, err)
		}
		return nil, err
	}

	p, err := e.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			// Burn a hash comparison anyway so lookup misses cost the
			// same as secret mismatches.
			e.hasher.Verify(secret, decoyHash)
			return nil, e.loginFailure(ctx, identity, "")
		}
		return nil, err
	}

	if !e.hasher.Verify(secret, p.SecretHash) {
		return nil, e.loginFailure(ctx, identity, p.ID)
	}

	if e.config.Login.RequireVerified && !p.Verified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, p.ID, identity, ErrAccountUnverified)
		return nil, ErrAccountUnverified
	}

	if err := e.checkThrottle(e.limiter.ResetLogin(ctx, identity, ip)); err != nil {
		return nil, err
	}

	e.afterLogin(ctx, p, secret)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, p.ID, identity, nil)
	return p.Sanitized(), nil
}

// Login authenticates and issues a session credential in one step.
func (e *Engine) Login(ctx context.Context, identity, secret string) (string, *Principal, error) {
	p, err := e.Authenticate(ctx, identity, secret)
	if err != nil {
		return "", nil, err
	}
	credential, _, err := e.IssueSession(p)
	if err != nil {
		return "", nil, err
	}
	return credential, p, nil
}

func (e *Engine) loginFailure(ctx context.Context, identity, principalID string) error {
	ip := clientIPFromContext(ctx)
	if err := e.checkThrottle(e.limiter.RecordLoginFailure(ctx, identity, ip)); err != nil {
		return err
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditLoginFailure, principalID, identity, ErrInvalidCredentials)
	return ErrInvalidCredentials
}

// afterLogin applies the best-effort post-authentication writes: the
// login timestamp always, a parameter upgrade of the stored hash when
// configured. Neither failure blocks the login.
func (e *Engine) afterLogin(ctx context.Context, p *Principal, secret string) {
	now := e.now()
	patch := PrincipalPatch{LastAuthenticatedAt: &now}

	if e.config.Password.RehashOnLogin && e.hasher.NeedsRehash(p.SecretHash) {
		if rehash, err := e.hasher.Hash(secret); err == nil {
			patch.SecretHash = &rehash
		}
	}

	updated, err := e.store.Update(ctx, p.ID, patch)
	if err != nil {
		e.logf("post-login update for %s failed: %v", p.ID, err)
		return
	}
	*p = *updated
}

// decoyHash is a valid argon2id encoding of a random throwaway secret,
// compared against when the identity does not exist.
const decoyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA==$MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
