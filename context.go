package hostAuth

import (
	"context"

	"github.com/MrEthical07/hostAuth/internal/flows"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

type hostContextKey struct{}
type routeModeContextKey struct{}
type csrsContextKey struct{}
type fingerprintContextKey struct{}
type identityContextKey struct{}
type recordContextKey struct{}

// WithHost attaches the server name the request was addressed to. The Engine
// uses it to pick the host policy and codec.
func WithHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, hostContextKey{}, host)
}

// WithRouteMode attaches a location-level mode override for the current route.
// An empty mode means the host mode.
func WithRouteMode(ctx context.Context, mode policy.Mode) context.Context {
	return context.WithValue(ctx, routeModeContextKey{}, mode)
}

// WithCSRS attaches the value of the client's csrs cookie. It is bound into
// identities on hosts with bindCsrs.
func WithCSRS(ctx context.Context, csrs string) context.Context {
	return context.WithValue(ctx, csrsContextKey{}, csrs)
}

// WithFingerprintHash attaches the request fingerprint hash. It is bound into
// identities on hosts with bindFingerprint.
func WithFingerprintHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, fingerprintContextKey{}, hash)
}

// WithIdentity attaches an authenticated identity.
func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// WithRecord attaches the permission record that authorized the request.
func WithRecord(ctx context.Context, rec *session.Record) context.Context {
	return context.WithValue(ctx, recordContextKey{}, rec)
}

// HostFromContext returns the host attached by WithHost.
func HostFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	host, _ := ctx.Value(hostContextKey{}).(string)
	return host
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (session.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(session.Identity)
	return id, ok && id != nil
}

// RecordFromContext returns the record attached by WithRecord.
func RecordFromContext(ctx context.Context) (*session.Record, bool) {
	if ctx == nil {
		return nil, false
	}
	rec, ok := ctx.Value(recordContextKey{}).(*session.Record)
	return rec, ok && rec != nil
}

func routeModeFromContext(ctx context.Context) policy.Mode {
	if ctx == nil {
		return ""
	}
	mode, _ := ctx.Value(routeModeContextKey{}).(policy.Mode)
	return mode
}

func bindingFromContext(ctx context.Context) flows.Binding {
	if ctx == nil {
		return flows.Binding{}
	}
	csrs, _ := ctx.Value(csrsContextKey{}).(string)
	hash, _ := ctx.Value(fingerprintContextKey{}).(string)
	return flows.Binding{Csrs: csrs, FingerprintHash: hash}
}
