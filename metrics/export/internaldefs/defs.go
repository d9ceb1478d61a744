package internaldefs

import (
	credcore "github.com/credware/credcore"
)

// CounterDef binds a core metric ID to its stable external name.
type CounterDef struct {
	ID   credcore.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram ID to its stable external name.
type HistogramDef struct {
	ID   credcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter exposed by the exporters. Order is the
// exposition order.
var CounterDefs = []CounterDef{
	{ID: credcore.MetricLoginSuccess, Name: "credcore_login_success_total", Help: "Successful login attempts."},
	{ID: credcore.MetricLoginFailure, Name: "credcore_login_failure_total", Help: "Failed login attempts."},
	{ID: credcore.MetricLoginLocked, Name: "credcore_login_locked_total", Help: "Login attempts rejected by an active lockout."},
	{ID: credcore.MetricRefreshSuccess, Name: "credcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: credcore.MetricRefreshFailure, Name: "credcore_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: credcore.MetricSessionCreated, Name: "credcore_session_created_total", Help: "Created refresh sessions."},
	{ID: credcore.MetricSessionRevoked, Name: "credcore_session_revoked_total", Help: "Revoked refresh sessions."},
	{ID: credcore.MetricLogout, Name: "credcore_logout_total", Help: "Single-session logout operations."},
	{ID: credcore.MetricLogoutAll, Name: "credcore_logout_all_total", Help: "Logout-all operations."},
	{ID: credcore.MetricVerificationRequest, Name: "credcore_verification_request_total", Help: "Email verification token requests."},
	{ID: credcore.MetricVerificationSuccess, Name: "credcore_verification_success_total", Help: "Successful email verifications."},
	{ID: credcore.MetricVerificationFailure, Name: "credcore_verification_failure_total", Help: "Failed email verification redemptions."},
	{ID: credcore.MetricResetRequest, Name: "credcore_reset_request_total", Help: "Password reset token requests."},
	{ID: credcore.MetricResetSuccess, Name: "credcore_reset_success_total", Help: "Successful password reset confirmations."},
	{ID: credcore.MetricResetFailure, Name: "credcore_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: credcore.MetricPasswordChangeSuccess, Name: "credcore_password_change_success_total", Help: "Successful password changes."},
	{ID: credcore.MetricPasswordChangeInvalidOld, Name: "credcore_password_change_invalid_old_total", Help: "Password change attempts with an invalid current password."},
	{ID: credcore.MetricEmailChange, Name: "credcore_email_change_total", Help: "Email change operations."},
	{ID: credcore.MetricPasswordRehash, Name: "credcore_password_rehash_total", Help: "Transparent hash envelope upgrades on successful login."},
	{ID: credcore.MetricEnvelopeCorrupt, Name: "credcore_envelope_corrupt_total", Help: "Stored hash envelopes that failed to decode."},
	{ID: credcore.MetricMailerFailure, Name: "credcore_mailer_failure_total", Help: "Token delivery failures after the token was persisted."},
}

// HistogramDefs lists every histogram exposed by the exporters.
var HistogramDefs = []HistogramDef{
	{ID: credcore.MetricVerifyLatency, Name: "credcore_verify_latency_seconds", Help: "Password verification latency histogram."},
}

// HistogramBounds are the upper bounds of the core latency buckets in
// seconds, as Prometheus le label values.
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

// HistogramBoundValues mirrors HistogramBounds as float64 upper bounds,
// excluding the final +Inf bucket.
var HistogramBoundValues = []float64{
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
}

// HistogramBoundSuffix holds name-safe suffixes for per-bucket instruments.
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

// NormalizeBuckets pads or truncates a raw snapshot to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
