package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harperbeck/authgate/internal/audit"
	"github.com/harperbeck/authgate/internal/rate"
	"github.com/harperbeck/authgate/mail"
	"github.com/harperbeck/authgate/password"
	"github.com/harperbeck/authgate/session"
	"github.com/harperbeck/authgate/token"
)

// Engine is the facade over the authentication core: credential
// verification, session issuance, email verification and password reset
// flows, throttling, audit, and metrics. Build one with Builder and
// treat it as immutable; all methods are safe for concurrent use.
type Engine struct {
	config   Config
	store    PrincipalStore
	sender   mail.Sender
	hasher   *password.Hasher
	tokens   *token.Issuer
	sessions *session.Manager
	limiter  *rate.Limiter
	auditor  *audit.Dispatcher
	metrics  *Metrics
	logger   *log.Logger
	now      func() time.Time
}

// Close drains and stops the audit dispatcher. Call it on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.auditor != nil {
		e.auditor.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.auditor == nil {
		return 0
	}
	return e.auditor.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the engine counters so adjacent packages (the HTTP
// gate, exporters) can record their outcomes. Nil-safe.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// sendMail delivers fire-and-log: the originating operation already
// succeeded, so a failed delivery is logged and audited but never
// surfaces as an error.
func (e *Engine) sendMail(ctx context.Context, msg mail.Message) {
	if e.sender == nil {
		return
	}
	if msg.From == "" {
		msg.From = e.config.Mail.From
	}
	if err := e.sender.Send(ctx, msg); err != nil {
		e.logf("mail delivery to %s failed: %v", msg.To, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, AuditDeliveryFailure, "", msg.To, err)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// checkThrottle translates limiter outcomes. A limiter backend outage is
// logged and waved through so that Redis downtime does not lock every
// user out.
func (e *Engine) checkThrottle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrRateLimited
	}
	if errors.Is(err, rate.ErrRedisUnavailable) {
		e.logf("throttle backend unavailable: %v", err)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// validateSecret enforces the password acceptance policy shared by
// registration, reset confirmation, and password change.
func validateSecret(secret string) error {
	n := utf8.RuneCountInString(secret)
	if n < 8 || len(secret) > 1024 {
		return ErrPasswordPolicy
	}
	return nil
}

// validateDisplayName trims and bounds a display name to 50 characters.
// Shared by registration and profile updates.
func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 50 {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}
