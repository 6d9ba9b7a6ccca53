package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/harperbeck/authgate/mail"
)

// Register creates a new unverified principal, issues its email
// verification token, and dispatches the verification message. The
// returned principal is sanitized.
func (e *Engine) Register(ctx context.Context, identity, displayName, secret string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identity = NormalizeIdentity(identity)
	if !ValidIdentity(identity) {
		return nil, ErrInvalidIdentity
	}
	displayName, err := validateDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	verification, err := e.tokens.Issue(e.config.Verification.TTL)
	if err != nil {
		return nil, err
	}

	now := e.now()
	p := &Principal{
		ID:          uuid.NewString(),
		Identity:    identity,
		DisplayName: displayName,
		SecretHash:  hash,
		Role:        RoleUser,
		Verified:    false,
		VerificationToken: &TokenState{
			Value:     verification.Value,
			ExpiresAt: verification.ExpiresAt,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			e.metricInc(MetricRegistrationDuplicate)
			e.emitAudit(ctx, AuditRegistrationDuplicate, "", identity, err)
		}
		return nil, err
	}

	e.sendMail(ctx, e.verificationMessage(identity, displayName, verification.Value))

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, AuditRegistrationSuccess, p.ID, identity, nil)
	return p.Sanitized(), nil
}

func (e *Engine) verificationMessage(identity, displayName, tokenValue string) mail.Message {
	link := mail.Link(e.config.Mail.BaseURL, e.config.Mail.VerifyPath, tokenValue)
	return mail.Message{
		To:      identity,
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nConfirm your email address by opening the link below. It expires in %s.\n\n%s\n\nIf you did not create this account, ignore this message.\n",
			displayName, e.config.Verification.TTL, link,
		),
	}
}
