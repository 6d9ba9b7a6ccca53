package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperbeck/authgate/mail"
)

// RequestPasswordReset starts the reset flow. It returns nil whether or
// not the identity exists; the only observable difference is whether a
// message is delivered, so account existence cannot be probed here.
func (e *Engine) RequestPasswordReset(ctx context.Context, identity string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	identity = NormalizeIdentity(identity)
	ip := clientIPFromContext(ctx)

	if err := e.checkThrottle(e.limiter.CheckRequest(ctx, identity, ip)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricPasswordResetRequestRateLimited)
			e.emitAudit(ctx, AuditRateLimitTriggered, "", identity, err)
		}
		return err
	}

	p, err := e.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			e.metricInc(MetricPasswordResetRequest)
			e.emitAudit(ctx, AuditPasswordResetRequest, "", identity, ErrPrincipalNotFound)
			return nil
		}
		return err
	}

	reset, err := e.tokens.Issue(e.config.Reset.TTL)
	if err != nil {
		return err
	}

	_, err = e.store.Update(ctx, p.ID, PrincipalPatch{
		ResetToken: &TokenState{Value: reset.Value, ExpiresAt: reset.ExpiresAt},
	})
	if err != nil {
		return err
	}

	e.sendMail(ctx, e.resetMessage(identity, p.DisplayName, reset.Value))

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, AuditPasswordResetRequest, p.ID, identity, nil)
	return nil
}

// ConfirmPasswordReset consumes a reset token and installs the new
// secret. The token is single-use: concurrent confirmations race and
// exactly one wins. Unknown, expired, and already-consumed tokens all
// surface as ErrInvalidOrExpiredToken.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, tokenValue, newSecret string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := validateSecret(newSecret); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newSecret)
	if err != nil {
		return err
	}

	p, err := e.store.ConsumeToken(ctx, TokenReset, tokenValue, PrincipalPatch{SecretHash: &hash})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			e.metricInc(MetricPasswordResetConfirmFailure)
			e.emitAudit(ctx, AuditPasswordResetConfirm, "", "", ErrInvalidOrExpiredToken)
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, AuditPasswordResetConfirm, p.ID, p.Identity, nil)
	return nil
}

func (e *Engine) resetMessage(identity, displayName, tokenValue string) mail.Message {
	link := mail.Link(e.config.Mail.BaseURL, e.config.Mail.ResetPath, tokenValue)
	return mail.Message{
		To:      identity,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nA password reset was requested for your account. The link below expires in %s.\n\n%s\n\nIf you did not request this, ignore this message; your password is unchanged.\n",
			displayName, e.config.Reset.TTL, link,
		),
	}
}
