package authgate

import "context"

// ProfileUpdate carries the self-service mutable fields. Role is
// deliberately absent: privilege changes go through SetRole.
type ProfileUpdate struct {
	DisplayName *string
	Metadata    map[string]string
}

// UpdateProfile applies a self-service profile change and returns the
// sanitized principal.
func (e *Engine) UpdateProfile(ctx context.Context, principalID string, update ProfileUpdate) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	patch := PrincipalPatch{Metadata: update.Metadata}
	if update.DisplayName != nil {
		name, err := validateDisplayName(*update.DisplayName)
		if err != nil {
			return nil, err
		}
		patch.DisplayName = &name
	}

	p, err := e.store.Update(ctx, principalID, patch)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricProfileUpdate)
	e.emitAudit(ctx, AuditProfileUpdate, p.ID, p.Identity, nil)
	return p.Sanitized(), nil
}

// ChangePassword replaces the secret after verifying the current one.
func (e *Engine) ChangePassword(ctx context.Context, principalID, currentSecret, newSecret string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := validateSecret(newSecret); err != nil {
		return err
	}

	p, err := e.store.FindByID(ctx, principalID)
	if err != nil {
		return err
	}

	if !e.hasher.Verify(currentSecret, p.SecretHash) {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, AuditPasswordChange, p.ID, p.Identity, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(newSecret)
	if err != nil {
		return err
	}
	if _, err := e.store.Update(ctx, p.ID, PrincipalPatch{SecretHash: &hash}); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditPasswordChange, p.ID, p.Identity, nil)
	return nil
}

// SetRole changes a principal's role. This is the administrative path;
// nothing reachable from profile updates touches Role.
func (e *Engine) SetRole(ctx context.Context, principalID string, role Role) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	p, err := e.store.Update(ctx, principalID, PrincipalPatch{Role: &role})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRoleChange)
	e.emitAudit(ctx, AuditRoleChange, p.ID, p.Identity, nil)
	return p.Sanitized(), nil
}

// DeleteAccount removes the principal and its indexes. Existing session
// credentials keep validating until expiry unless revocation is enabled
// and they are individually revoked.
func (e *Engine) DeleteAccount(ctx context.Context, principalID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	p, err := e.store.FindByID(ctx, principalID)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, principalID); err != nil {
		return err
	}

	e.emitAudit(ctx, AuditAccountDeleted, p.ID, p.Identity, nil)
	return nil
}
