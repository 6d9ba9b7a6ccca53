package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRegistrationSuccess
	MetricRegistrationDuplicate
	MetricPasswordResetRequest
	MetricPasswordResetRequestRateLimited
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricEmailVerificationRequest
	MetricEmailVerificationConfirmSuccess
	MetricEmailVerificationConfirmFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricProfileUpdate
	MetricRoleChange
	MetricSessionIssued
	MetricSessionValidateSuccess
	MetricSessionValidateFailure
	MetricSessionRevoked
	MetricGateForward
	MetricGateRedirect
	MetricGateDeny
	MetricDeliveryFailure
	MetricValidateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:                    "login_success",
	MetricLoginFailure:                    "login_failure",
	MetricLoginRateLimited:                "login_rate_limited",
	MetricRegistrationSuccess:             "registration_success",
	MetricRegistrationDuplicate:           "registration_duplicate",
	MetricPasswordResetRequest:            "password_reset_request",
	MetricPasswordResetRequestRateLimited: "password_reset_request_rate_limited",
	MetricPasswordResetConfirmSuccess:     "password_reset_confirm_success",
	MetricPasswordResetConfirmFailure:     "password_reset_confirm_failure",
	MetricEmailVerificationRequest:        "email_verification_request",
	MetricEmailVerificationConfirmSuccess: "email_verification_confirm_success",
	MetricEmailVerificationConfirmFailure: "email_verification_confirm_failure",
	MetricPasswordChangeSuccess:           "password_change_success",
	MetricPasswordChangeFailure:           "password_change_failure",
	MetricProfileUpdate:                   "profile_update",
	MetricRoleChange:                      "role_change",
	MetricSessionIssued:                   "session_issued",
	MetricSessionValidateSuccess:          "session_validate_success",
	MetricSessionValidateFailure:          "session_validate_failure",
	MetricSessionRevoked:                  "session_revoked",
	MetricGateForward:                     "gate_forward",
	MetricGateRedirect:                    "gate_redirect",
	MetricGateDeny:                        "gate_deny",
	MetricDeliveryFailure:                 "delivery_failure",
	MetricValidateLatency:                 "validate_latency",
}

// Name returns the stable wire name for a metric. Exporters key on it.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every counter in declaration order, for exporters.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// ValidateLatencyBuckets are the upper bounds, in milliseconds, of the
// validation latency histogram (last bucket is unbounded).
var ValidateLatencyBuckets = [histBucketCount]int64{5, 10, 25, 50, 100, 250, 500, 0}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All operations are
// lock-free and safe for concurrent use; a nil *Metrics is a valid
// no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	validateHist  metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one session validation duration.
func (m *Metrics) Observe(d time.Duration) {
	if m == nil || !m.enableLatency {
		return
	}
	atomic.AddUint64(&m.validateHist.buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.validateHist.buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range ValidateLatencyBuckets {
		if bound != 0 && ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
