package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is the uniform validation failure. Tampered, expired,
// malformed, revoked, and missing credentials are indistinguishable
// through it so that forgery attempts learn nothing.
var ErrInvalid = errors.New("session credential invalid")

// ErrRevocationUnavailable reports that the revocation backend could not
// be reached. It is distinct from ErrInvalid so operators can alert on
// infrastructure failure separately from rejection traffic; callers in
// the request path must still treat it as "no valid session".
var ErrRevocationUnavailable = errors.New("session revocation backend unavailable")

const minKeyBytes = 32

// Config configures a Manager.
type Config struct {
	// TTL bounds every issued credential. Required.
	TTL time.Duration

	// SigningKey is the HS256 secret used for issuance. Required,
	// >= 32 bytes.
	SigningKey []byte

	// KeyID, when set, is stamped into the kid header of issued
	// credentials and must name an entry of VerifyKeys if that map is set.
	KeyID string

	// VerifyKeys maps kid to trusted verification keys. When non-empty,
	// incoming credentials must carry a known kid; this is the rotation
	// mechanism: old keys stay in the map until their credentials age out.
	VerifyKeys map[string][]byte

	Issuer string
	Leeway time.Duration

	// TimeFunc supplies "now" for both issuance and validation.
	// Defaults to time.Now.
	TimeFunc func() time.Time
}

// Claims is the signed content of a session credential.
type Claims struct {
	PrincipalID string `json:"uid"`
	Role        string `json:"rol"`
	Verified    bool   `json:"ver"`
	jwt.RegisteredClaims
}

// Manager signs and validates session credentials. Immutable after
// creation and safe for concurrent use.
type Manager struct {
	config     Config
	revocation *RevocationList
}

// NewManager validates cfg and returns a Manager. revocation may be nil,
// in which case issued credentials cannot be revoked before expiry.
func NewManager(cfg Config, revocation *RevocationList) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if len(cfg.SigningKey) < minKeyBytes {
		return nil, errors.New("session signing key must be >= 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < minKeyBytes {
			return nil, errors.New("verify key map contains short key")
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	if cfg.TimeFunc == nil {
		cfg.TimeFunc = time.Now
	}

	return &Manager{config: cfg, revocation: revocation}, nil
}

// Issue builds and signs a credential for the given principal claims.
// The returned Claims carry the generated jti and timestamps.
func (m *Manager) Issue(principalID, role string, verified bool) (string, *Claims, error) {
	if principalID == "" {
		return "", nil, errors.New("empty principal id")
	}

	now := m.config.TimeFunc()
	claims := &Claims{
		PrincipalID: principalID,
		Role:        role,
		Verified:    verified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		tok.Header["kid"] = m.config.KeyID
	}

	signed, err := tok.SignedString(m.config.SigningKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Validate verifies signature integrity and expiry, then (when a
// revocation list is configured) checks that the credential has not been
// revoked. Every verification failure surfaces as ErrInvalid; only a
// revocation backend outage surfaces as ErrRevocationUnavailable.
func (m *Manager) Validate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.TimeFunc),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(raw, &Claims{}, m.verifyKey)
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.PrincipalID == "" {
		return nil, ErrInvalid
	}

	if m.revocation != nil {
		revoked, err := m.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, ErrRevocationUnavailable
		}
		if revoked {
			return nil, ErrInvalid
		}
	}

	return claims, nil
}

// Revoke records the credential's jti in the revocation list until the
// credential would have expired on its own. Without a configured list
// this is a no-op and logout remains client-side only.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.revocation == nil || claims == nil || claims.ID == "" {
		return nil
	}
	until := time.Time{}
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.revocation.Revoke(ctx, claims.ID, until, m.config.TimeFunc())
}

func (m *Manager) verifyKey(tok *jwt.Token) (any, error) {
	if len(m.config.VerifyKeys) == 0 {
		return m.config.SigningKey, nil
	}

	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	key, ok := m.config.VerifyKeys[kid]
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}
