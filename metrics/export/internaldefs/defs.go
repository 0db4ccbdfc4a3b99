package internaldefs

import (
	goguard "github.com/MrEthical07/goGuard"
)

// CounterDef defines a public type used by goguard APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goguard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goguard APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goguard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session guard.
var CounterDefs = []CounterDef{
	{ID: goguard.MetricValidateSuccess, Name: "goguard_validate_success_total", Help: "Session validations confirming a live session."},
	{ID: goguard.MetricValidateUnauthorized, Name: "goguard_validate_unauthorized_total", Help: "Session validations rejected as unauthorized."},
	{ID: goguard.MetricValidateError, Name: "goguard_validate_error_total", Help: "Session validations failing with a non-auth backend error."},
	{ID: goguard.MetricValidateNetworkError, Name: "goguard_validate_network_error_total", Help: "Session validations failing at the transport layer."},
	{ID: goguard.MetricRefreshSuccess, Name: "goguard_refresh_success_total", Help: "Successful token refresh operations."},
	{ID: goguard.MetricRefreshFailure, Name: "goguard_refresh_failure_total", Help: "Failed token refresh operations."},
	{ID: goguard.MetricRefreshShared, Name: "goguard_refresh_shared_total", Help: "Refresh callers that piggybacked on an in-flight refresh."},
	{ID: goguard.MetricRequestRetry, Name: "goguard_request_retry_total", Help: "Authenticated requests retried after a refresh."},
	{ID: goguard.MetricRequestUnauthorized, Name: "goguard_request_unauthorized_total", Help: "Authenticated requests still unauthorized after retry."},
	{ID: goguard.MetricPaymentSuccess, Name: "goguard_payment_success_total", Help: "Accepted payment order creations."},
	{ID: goguard.MetricPaymentBlocked, Name: "goguard_payment_blocked_total", Help: "Payment orders blocked on an invalid session."},
	{ID: goguard.MetricPaymentRejected, Name: "goguard_payment_rejected_total", Help: "Payment orders rejected by the backend."},
	{ID: goguard.MetricCSRFUnavailable, Name: "goguard_csrf_unavailable_total", Help: "Payment orders sent without a CSRF token."},
	{ID: goguard.MetricAccessAuthorized, Name: "goguard_access_authorized_total", Help: "Access checks that allowed the route."},
	{ID: goguard.MetricAccessUnauthenticated, Name: "goguard_access_unauthenticated_total", Help: "Access checks denied for a missing or expired session."},
	{ID: goguard.MetricAccessPermissionDenied, Name: "goguard_access_permission_denied_total", Help: "Access checks denied on permission requirements."},
	{ID: goguard.MetricAccessRoleDenied, Name: "goguard_access_role_denied_total", Help: "Access checks denied on role requirements."},
	{ID: goguard.MetricAuthorityRefresh, Name: "goguard_authority_refresh_total", Help: "Forced authority cache refreshes."},
	{ID: goguard.MetricLogout, Name: "goguard_logout_total", Help: "Logout operations, user requested or forced."},
	{ID: goguard.MetricCredentialsWiped, Name: "goguard_credentials_wiped_total", Help: "Credential wipe operations."},
}

// HistogramDefs is an exported constant or variable used by the session guard.
var HistogramDefs = []HistogramDef{
	{ID: goguard.MetricValidateLatency, Name: "goguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session guard.
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

// HistogramBoundSuffix is an exported constant or variable used by the session guard.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// bucket count used by the core histogram.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// required by Prometheus histogram exposition.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
