package internaldefs

import (
	"strconv"
	"strings"

	hostAuth "github.com/MrEthical07/hostAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   hostAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   hostAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: hostAuth.MetricLoginSuccess, Name: "hostauth_login_success_total", Help: "Logins that stored a permission record."},
	{ID: hostAuth.MetricLoginFailure, Name: "hostauth_login_failure_total", Help: "Logins that were rejected or failed."},
	{ID: hostAuth.MetricAuthenticateFailure, Name: "hostauth_authenticate_failure_total", Help: "Tokens that failed verification."},
	{ID: hostAuth.MetricPermissionGranted, Name: "hostauth_permission_granted_total", Help: "Permission checks that found a live record."},
	{ID: hostAuth.MetricPermissionDenied, Name: "hostauth_permission_denied_total", Help: "Permission checks with no record."},
	{ID: hostAuth.MetricSessionExpired, Name: "hostauth_session_expired_total", Help: "Records deleted on expiry."},
	{ID: hostAuth.MetricSessionSlid, Name: "hostauth_session_slid_total", Help: "Sliding expiry extensions."},
	{ID: hostAuth.MetricRefreshSuccess, Name: "hostauth_refresh_success_total", Help: "Tokens re-signed by refresh."},
	{ID: hostAuth.MetricRefreshForbidden, Name: "hostauth_refresh_forbidden_total", Help: "Refresh values that named no record."},
	{ID: hostAuth.MetricRefreshUnauthorized, Name: "hostauth_refresh_unauthorized_total", Help: "Refresh attempts against expired records."},
	{ID: hostAuth.MetricLogout, Name: "hostauth_logout_total", Help: "Logout operations."},
	{ID: hostAuth.MetricStoreFailure, Name: "hostauth_store_failure_total", Help: "Permission store calls that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: hostAuth.MetricPermissionLatency, Name: "hostauth_permission_latency_seconds", Help: "Permission check latency."},
}

// BucketLabel is one histogram bucket bound as exporters print it.
type BucketLabel struct {
	// LE is the Prometheus `le` label value, "+Inf" for overflow.
	LE string
	// Suffix is LE in a form usable inside instrument names.
	Suffix string
}

// BucketLabels has one entry per engine latency bucket, overflow last.
var BucketLabels = bucketLabels()

func bucketLabels() []BucketLabel {
	out := make([]BucketLabel, 0, len(hostAuth.LatencyBounds)+1)
	for _, bound := range hostAuth.LatencyBounds {
		le := strconv.FormatFloat(bound.Seconds(), 'f', -1, 64)
		out = append(out, BucketLabel{LE: le, Suffix: strings.ReplaceAll(le, ".", "_")})
	}
	return append(out, BucketLabel{LE: "+Inf", Suffix: "inf"})
}
