package authgate

import (
	"context"
	"errors"
)

// ConfirmEmailVerification consumes a verification token and marks the
// principal verified. Single-use: a replay of the same token fails with
// ErrInvalidOrExpiredToken.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, tokenValue string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	verified := true
	p, err := e.store.ConsumeToken(ctx, TokenVerification, tokenValue, PrincipalPatch{Verified: &verified})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			e.metricInc(MetricEmailVerificationConfirmFailure)
			e.emitAudit(ctx, AuditVerificationConfirm, "", "", ErrInvalidOrExpiredToken)
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	e.metricInc(MetricEmailVerificationConfirmSuccess)
	e.emitAudit(ctx, AuditVerificationConfirm, p.ID, p.Identity, nil)
	return p.Sanitized(), nil
}

// RequestEmailVerification re-issues the verification token for an
// unverified account and resends the message. Like the reset flow it is
// enumeration-safe: an unknown identity still returns nil. An already
// verified account returns ErrAccountVerified, which is not an
// enumeration oracle since reaching it requires the account's consent
// flow anyway.
func (e *Engine) RequestEmailVerification(ctx context.Context, identity string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	identity = NormalizeIdentity(identity)
	ip := clientIPFromContext(ctx)

	if err := e.checkThrottle(e.limiter.CheckRequest(ctx, identity, ip)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitAudit(ctx, AuditRateLimitTriggered, "", identity, err)
		}
		return err
	}

	p, err := e.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			e.metricInc(MetricEmailVerificationRequest)
			e.emitAudit(ctx, AuditVerificationRequest, "", identity, ErrPrincipalNotFound)
			return nil
		}
		return err
	}
	if p.Verified {
		return ErrAccountVerified
	}

	verification, err := e.tokens.Issue(e.config.Verification.TTL)
	if err != nil {
		return err
	}

	_, err = e.store.Update(ctx, p.ID, PrincipalPatch{
		VerificationToken: &TokenState{Value: verification.Value, ExpiresAt: verification.ExpiresAt},
	})
	if err != nil {
		return err
	}

	e.sendMail(ctx, e.verificationMessage(identity, p.DisplayName, verification.Value))

	e.metricInc(MetricEmailVerificationRequest)
	e.emitAudit(ctx, AuditVerificationRequest, p.ID, identity, nil)
	return nil
}
