package internaldefs

import (
	authgate "github.com/harperbeck/authgate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricRegistrationSuccess, Name: "authgate_registration_success_total", Help: "Successful registrations."},
	{ID: authgate.MetricRegistrationDuplicate, Name: "authgate_registration_duplicate_total", Help: "Registrations rejected as duplicate identity."},
	{ID: authgate.MetricPasswordResetRequest, Name: "authgate_password_reset_request_total", Help: "Password reset requests."},
	{ID: authgate.MetricPasswordResetRequestRateLimited, Name: "authgate_password_reset_request_rate_limited_total", Help: "Rate-limited password reset requests."},
	{ID: authgate.MetricPasswordResetConfirmSuccess, Name: "authgate_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: authgate.MetricPasswordResetConfirmFailure, Name: "authgate_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: authgate.MetricEmailVerificationRequest, Name: "authgate_email_verification_request_total", Help: "Email verification requests."},
	{ID: authgate.MetricEmailVerificationConfirmSuccess, Name: "authgate_email_verification_confirm_success_total", Help: "Successful email verifications."},
	{ID: authgate.MetricEmailVerificationConfirmFailure, Name: "authgate_email_verification_confirm_failure_total", Help: "Failed email verifications."},
	{ID: authgate.MetricPasswordChangeSuccess, Name: "authgate_password_change_success_total", Help: "Successful password changes."},
	{ID: authgate.MetricPasswordChangeFailure, Name: "authgate_password_change_failure_total", Help: "Password change attempts with a wrong current secret."},
	{ID: authgate.MetricProfileUpdate, Name: "authgate_profile_update_total", Help: "Profile updates."},
	{ID: authgate.MetricRoleChange, Name: "authgate_role_change_total", Help: "Administrative role changes."},
	{ID: authgate.MetricSessionIssued, Name: "authgate_session_issued_total", Help: "Issued session credentials."},
	{ID: authgate.MetricSessionValidateSuccess, Name: "authgate_session_validate_success_total", Help: "Successful session validations."},
	{ID: authgate.MetricSessionValidateFailure, Name: "authgate_session_validate_failure_total", Help: "Rejected session validations."},
	{ID: authgate.MetricSessionRevoked, Name: "authgate_session_revoked_total", Help: "Revoked session credentials."},
	{ID: authgate.MetricGateForward, Name: "authgate_gate_forward_total", Help: "Requests forwarded by the access gate."},
	{ID: authgate.MetricGateRedirect, Name: "authgate_gate_redirect_total", Help: "Requests redirected by the access gate."},
	{ID: authgate.MetricGateDeny, Name: "authgate_gate_deny_total", Help: "Requests denied by the access gate."},
	{ID: authgate.MetricDeliveryFailure, Name: "authgate_delivery_failure_total", Help: "Failed outbound mail deliveries."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Session validation latency histogram."},
}

// HistogramBounds are the le labels matching the engine's fixed buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe spellings of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
