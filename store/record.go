package store

import (
	"time"

	"github.com/harperbeck/authgate"
)

// record is the persisted document shape. Field names follow the
// collection layout: identity under "email", secret hash under
// "password", token pairs as value + expiry.
type record struct {
	ID          string            `json:"_id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Password    string            `json:"password"`
	Role        string            `json:"role"`
	IsVerified  bool              `json:"isVerified"`
	VerifyToken string            `json:"verificationToken,omitempty"`
	VerifyExp   *time.Time        `json:"verificationTokenExpiry,omitempty"`
	ResetToken  string            `json:"resetPasswordToken,omitempty"`
	ResetExp    *time.Time        `json:"resetPasswordExpiry,omitempty"`
	LastLogin   *time.Time        `json:"lastLogin,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func toRecord(p *authgate.Principal) record {
	rec := record{
		ID:         p.ID,
		Email:      p.Identity,
		Name:       p.DisplayName,
		Password:   p.SecretHash,
		Role:       string(p.Role),
		IsVerified: p.Verified,
		LastLogin:  p.LastAuthenticatedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Metadata:   p.Metadata,
	}
	if p.VerificationToken != nil {
		rec.VerifyToken = p.VerificationToken.Value
		exp := p.VerificationToken.ExpiresAt
		rec.VerifyExp = &exp
	}
	if p.ResetToken != nil {
		rec.ResetToken = p.ResetToken.Value
		exp := p.ResetToken.ExpiresAt
		rec.ResetExp = &exp
	}
	return rec
}

func fromRecord(rec record) *authgate.Principal {
	p := &authgate.Principal{
		ID:                  rec.ID,
		Identity:            rec.Email,
		DisplayName:         rec.Name,
		SecretHash:          rec.Password,
		Role:                authgate.Role(rec.Role),
		Verified:            rec.IsVerified,
		LastAuthenticatedAt: rec.LastLogin,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
		Metadata:            rec.Metadata,
	}
	if rec.VerifyToken != "" && rec.VerifyExp != nil {
		p.VerificationToken = &authgate.TokenState{Value: rec.VerifyToken, ExpiresAt: *rec.VerifyExp}
	}
	if rec.ResetToken != "" && rec.ResetExp != nil {
		p.ResetToken = &authgate.TokenState{Value: rec.ResetToken, ExpiresAt: *rec.ResetExp}
	}
	return p
}

// applyPatch mutates p in place. UpdatedAt always advances; CreatedAt is
// never touched.
func applyPatch(p *authgate.Principal, patch authgate.PrincipalPatch, now time.Time) {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.SecretHash != nil {
		p.SecretHash = *patch.SecretHash
	}
	if patch.Verified != nil {
		p.Verified = *patch.Verified
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.LastAuthenticatedAt != nil {
		t := *patch.LastAuthenticatedAt
		p.LastAuthenticatedAt = &t
	}
	if patch.Metadata != nil {
		p.Metadata = patch.Metadata
	}
	if patch.VerificationToken != nil {
		t := *patch.VerificationToken
		p.VerificationToken = &t
	} else if patch.ClearVerificationToken {
		p.VerificationToken = nil
	}
	if patch.ResetToken != nil {
		t := *patch.ResetToken
		p.ResetToken = &t
	} else if patch.ClearResetToken {
		p.ResetToken = nil
	}
	p.UpdatedAt = now
}

func tokenOf(p *authgate.Principal, kind authgate.TokenKind) *authgate.TokenState {
	if kind == authgate.TokenReset {
		return p.ResetToken
	}
	return p.VerificationToken
}
