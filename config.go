package authgate

import (
	"errors"
	"time"
)

// Config is the engine configuration. Configure once and treat as
// immutable; Build copies it.
type Config struct {
	Session      SessionConfig
	Password     PasswordConfig
	Login        LoginConfig
	Verification VerificationConfig
	Reset        ResetConfig
	Throttle     ThrottleConfig
	Mail         MailConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

// SessionConfig governs the signed session credential.
type SessionConfig struct {
	TTL time.Duration

	// SigningKey is the HS256 secret, >= 32 bytes. In production mode it
	// is required and startup fails without it; outside production a
	// missing key is replaced by an ephemeral random key, which
	// invalidates all sessions on every restart.
	SigningKey []byte

	// KeyID / VerifyKeys enable rotation: sign under KeyID, keep retired
	// keys in VerifyKeys until their credentials age out.
	KeyID      string
	VerifyKeys map[string][]byte

	Issuer string
	Leeway time.Duration

	// EnableRevocation turns on the Redis denylist so Logout invalidates
	// the credential server-side. Requires a Redis client on the Builder.
	EnableRevocation bool
	RevocationPrefix string
}

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// RehashOnLogin upgrades stored hashes to the current parameters on
	// successful authentication, best effort.
	RehashOnLogin bool
}

// LoginConfig holds authentication policy.
type LoginConfig struct {
	// RequireVerified gates login on email verification. Off by default:
	// an unverified principal may authenticate, and the verification flag
	// is carried in the session claims for downstream restrictions.
	RequireVerified bool
}

// VerificationConfig governs email verification tokens.
type VerificationConfig struct {
	TTL time.Duration
}

// ResetConfig governs password reset tokens. The reset window is shorter
// than the verification window because the capability is stronger.
type ResetConfig struct {
	TTL time.Duration
}

// ThrottleConfig bounds abuse of the credential endpoints. Requires a
// Redis client on the Builder; without one throttling is off.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool

	MaxLoginAttempts int
	LoginCooldown    time.Duration

	// Request budgets cover reset and verification re-issue requests.
	MaxRequestAttempts int
	RequestCooldown    time.Duration
}

// MailConfig shapes the links embedded in outbound messages. Message
// bodies beyond the link are the application's concern.
type MailConfig struct {
	From       string
	BaseURL    string
	VerifyPath string
	ResetPath  string
}

// AuditConfig governs the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig governs the in-process counters.
type MetricsConfig struct {
	Enabled bool

	// EnableLatencyHistograms additionally tracks session validation
	// latency in fixed buckets.
	EnableLatencyHistograms bool
}

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	// ProductionMode makes Validate refuse weak or absent secrets instead
	// of substituting ephemeral ones.
	ProductionMode bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:              30 * 24 * time.Hour,
			Issuer:           "authgate",
			Leeway:           30 * time.Second,
			RevocationPrefix: "agrl",
		},
		Password: PasswordConfig{
			Memory:        64 * 1024,
			Time:          3,
			Parallelism:   2,
			SaltLength:    16,
			KeyLength:     32,
			RehashOnLogin: true,
		},
		Verification: VerificationConfig{
			TTL: 24 * time.Hour,
		},
		Reset: ResetConfig{
			TTL: time.Hour,
		},
		Throttle: ThrottleConfig{
			Enabled:            false,
			EnableIPThrottle:   true,
			MaxLoginAttempts:   5,
			LoginCooldown:      15 * time.Minute,
			MaxRequestAttempts: 3,
			RequestCooldown:    time.Hour,
		},
		Mail: MailConfig{
			From:       "no-reply@localhost",
			BaseURL:    "http://localhost:3000",
			VerifyPath: "/auth/verify-email",
			ResetPath:  "/auth/reset-password",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internal consistency. In
// production mode an explicit signing key is mandatory; the ephemeral
// fallback only exists outside it.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Security.ProductionMode && len(c.Session.SigningKey) < 32 {
		return errors.New("production mode requires an explicit session signing key of at least 32 bytes")
	}
	if len(c.Session.SigningKey) > 0 && len(c.Session.SigningKey) < 32 {
		return errors.New("session signing key must be at least 32 bytes")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if c.Reset.TTL <= 0 {
		return errors.New("reset TTL must be positive")
	}
	if c.Reset.TTL > c.Verification.TTL {
		return errors.New("reset TTL must not exceed verification TTL")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxLoginAttempts <= 0 || c.Throttle.LoginCooldown <= 0 {
			return errors.New("throttle login budget must be positive")
		}
		if c.Throttle.MaxRequestAttempts <= 0 || c.Throttle.RequestCooldown <= 0 {
			return errors.New("throttle request budget must be positive")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SigningKey = cloneBytes(cfg.Session.SigningKey)
	if cfg.Session.VerifyKeys != nil {
		out.Session.VerifyKeys = make(map[string][]byte, len(cfg.Session.VerifyKeys))
		for kid, key := range cfg.Session.VerifyKeys {
			out.Session.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
