package authgate

import (
	"crypto/rand"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harperbeck/authgate/internal/audit"
	"github.com/harperbeck/authgate/internal/rate"
	"github.com/harperbeck/authgate/mail"
	"github.com/harperbeck/authgate/password"
	"github.com/harperbeck/authgate/session"
	"github.com/harperbeck/authgate/token"
)

// Builder assembles an Engine. Zero or one call to each With* method,
// then Build; a Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     PrincipalStore
	sender    mail.Sender
	auditSink AuditSink
	logger    *log.Logger
	timeFunc  func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the default configuration wholesale. Zero fields
// are not backfilled; start from DefaultConfig when overriding a subset.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the principal store. Required.
func (b *Builder) WithStore(store PrincipalStore) *Builder {
	b.store = store
	return b
}

// WithSender sets the outbound mail transport. Optional; without one,
// verification and reset messages are silently not delivered, which is
// only sensible in tests.
func (b *Builder) WithSender(sender mail.Sender) *Builder {
	b.sender = sender
	return b
}

// WithRedis supplies the client backing session revocation and
// throttling. Required when either is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTimeFunc overrides the clock, for tests.
func (b *Builder) WithTimeFunc(now func() time.Time) *Builder {
	b.timeFunc = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// DefaultConfig returns the configuration Build starts from.
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

// Build validates the configuration and wires the engine. In production
// mode a missing or short signing key is a hard error; otherwise an
// ephemeral key is generated and a notice logged, since every session
// dies with the process.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("principal store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	logf := log.Printf
	if logger != nil {
		logf = logger.Printf
	}

	if len(cfg.Session.SigningKey) == 0 {
		// Validate already rejected this in production mode.
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		cfg.Session.SigningKey = key
		logf("authgate: no session signing key configured, using an ephemeral key; sessions will not survive a restart")
	}

	if cfg.Session.EnableRevocation && b.redis == nil {
		return nil, errors.New("session revocation requires a redis client")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("throttling requires a redis client")
	}

	now := b.timeFunc
	if now == nil {
		now = time.Now
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var revocation *session.RevocationList
	if cfg.Session.EnableRevocation {
		revocation = session.NewRevocationList(b.redis, cfg.Session.RevocationPrefix)
	}

	sessions, err := session.NewManager(session.Config{
		TTL:        cfg.Session.TTL,
		SigningKey: cloneBytes(cfg.Session.SigningKey),
		KeyID:      cfg.Session.KeyID,
		VerifyKeys: cfg.Session.VerifyKeys,
		Issuer:     cfg.Session.Issuer,
		Leeway:     cfg.Session.Leeway,
		TimeFunc:   now,
	}, revocation)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:   cfg.Throttle.EnableIPThrottle,
			MaxLoginAttempts:   cfg.Throttle.MaxLoginAttempts,
			LoginCooldown:      cfg.Throttle.LoginCooldown,
			MaxRequestAttempts: cfg.Throttle.MaxRequestAttempts,
			RequestCooldown:    cfg.Throttle.RequestCooldown,
		})
	}

	auditor := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func() {
			logf("authgate: audit buffer full, event dropped")
		},
	}, b.auditSink)

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		sender:   b.sender,
		hasher:   hasher,
		tokens:   token.NewIssuer(now),
		sessions: sessions,
		limiter:  limiter,
		auditor:  auditor,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}

	b.built = true
	return engine, nil
}
