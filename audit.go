package authgate

import (
	"context"
	"io"

	"github.com/harperbeck/authgate/internal/audit"
)

// Audit event types emitted by the engine.
const (
	AuditLoginSuccess          = "login_success"
	AuditLoginFailure          = "login_failure"
	AuditRegistrationSuccess   = "registration_success"
	AuditRegistrationDuplicate = "registration_duplicate"
	AuditPasswordResetRequest  = "password_reset_request"
	AuditPasswordResetConfirm  = "password_reset_confirm"
	AuditVerificationRequest   = "email_verification_request"
	AuditVerificationConfirm   = "email_verification_confirm"
	AuditPasswordChange        = "password_change"
	AuditProfileUpdate         = "profile_update"
	AuditRoleChange            = "role_change"
	AuditLogout                = "logout"
	AuditRateLimitTriggered    = "rate_limit_triggered"
	AuditDeliveryFailure       = "delivery_failure"
	AuditAccountDeleted        = "account_deleted"
)

// AuditEvent is one structured security event. Sinks receive events
// asynchronously; emitting never blocks the request path.
type AuditEvent = audit.Event

// AuditSink receives audit events.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink exposes events on a channel, mostly for tests.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per event to an io.Writer.
type JSONWriterSink = audit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// emitAudit records a security event. A nil err marks it successful;
// otherwise the error text travels with the event.
func (e *Engine) emitAudit(ctx context.Context, eventType, principalID, identity string, err error) {
	if e.auditor == nil {
		return
	}
	ev := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		Identity:    identity,
		IP:          clientIPFromContext(ctx),
		Success:     err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.auditor.Emit(ctx, ev)
}
