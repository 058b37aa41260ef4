package hostAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/internal/audit"
	"github.com/MrEthical07/hostAuth/internal/flows"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// Engine runs the session lifecycle for every registered host.
//
// Engine holds only resolved policies, codecs and the store handle; it is safe
// for concurrent use once built.
type Engine struct {
	config    Config
	registry  *hosts.Registry
	store     session.Store
	ownsStore bool
	flows     flows.Service
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Close drains the audit queue and closes the store when the Engine opened it.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.audit.Close()
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Registry returns the resolved hosts.
func (e *Engine) Registry() *hosts.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// AuditDropped returns how many audit events were dropped on a full queue.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

// request is the host state a call runs against.
type request struct {
	host   *hosts.Host
	policy *policy.AuthPolicy
	log    *slog.Logger
}

func (e *Engine) resolve(ctx context.Context, op string) (request, error) {
	if e == nil || !e.flows.Initialized() {
		return request{}, ErrEngineNotReady
	}
	name := HostFromContext(ctx)
	host, ok := e.registry.Lookup(name)
	if !ok {
		return request{}, fmt.Errorf("%w: %q", ErrUnknownHost, name)
	}
	if host.Policy == nil {
		return request{}, fmt.Errorf("%w: %s", ErrAuthDisabled, host.Name())
	}
	p := host.PolicyFor(routeModeFromContext(ctx))
	return request{
		host:   host,
		policy: p,
		log: e.logger.With(
			slog.String("host", host.Name()),
			slog.String("op", op),
			slog.String("mode", string(p.EffectiveMode())),
		),
	}, nil
}

// Login countersigns providerToken for the request's host and records the
// permission. providerUser is stored only when the host trusts its provider.
// The refresh value is empty unless the host runs in refreshTokens mode.
func (e *Engine) Login(ctx context.Context, providerToken string, providerUser map[string]any) (string, string, error) {
	req, err := e.resolve(ctx, "login")
	if err != nil {
		return "", "", err
	}

	res := e.flows.Login(ctx, flows.LoginInput{
		Policy:        req.policy,
		Codec:         req.host.Codec,
		Binding:       bindingFromContext(ctx),
		ProviderToken: providerToken,
		ProviderUser:  providerUser,
	})
	if res.Failure != flows.LoginFailureNone {
		var out error
		switch res.Failure {
		case flows.LoginFailureNoPolicy:
			out = ErrAuthDisabled
		case flows.LoginFailureDecode:
			out = ErrInvalidCredentials
		case flows.LoginFailureSign:
			out = fmt.Errorf("%w: %v", ErrToken, res.Err)
			req.log.Error("sign failed", slog.Any("error", res.Err))
		case flows.LoginFailureStore:
			out = e.storeFailure(req.log, res.Err)
		default:
			out = ErrEngineNotReady
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, req, AuditEventLoginFailed, "", false, out)
		return "", "", out
	}

	e.metricInc(MetricLoginSuccess)
	req.log.Debug("login recorded", slog.Time("expires_at", res.ExpiresAt))
	e.emitAudit(ctx, req, AuditEventLogin, "", true, nil)
	return res.Token, res.Refresh, nil
}

// Authenticate verifies token against the request's host and returns the
// session identity it stands for, with the host's binding fields attached.
func (e *Engine) Authenticate(ctx context.Context, token string) (session.Identity, error) {
	req, err := e.resolve(ctx, "authenticate")
	if err != nil {
		return nil, err
	}

	res := e.flows.Authenticate(flows.AuthenticateInput{
		Policy:  req.policy,
		Codec:   req.host.Codec,
		Binding: bindingFromContext(ctx),
		Token:   token,
	})
	switch res.Failure {
	case flows.AuthenticateFailureNone:
		return res.Identity, nil
	case flows.AuthenticateFailureExpired:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrLoginExpired
	case flows.AuthenticateFailureInvalid:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrInvalidCredentials
	case flows.AuthenticateFailureNoPolicy:
		return nil, ErrAuthDisabled
	default:
		e.metricInc(MetricAuthenticateFailure)
		req.log.Error("verify failed", slog.Any("error", res.Err))
		return nil, fmt.Errorf("%w: %v", ErrToken, res.Err)
	}
}

// Permission returns the live record for identity. In slideExpiration mode the
// record's ExpiresAt is moved to now + MaxInactivitySeconds and the returned
// record carries the new value. An expired record is deleted.
func (e *Engine) Permission(ctx context.Context, identity session.Identity) (*session.Record, error) {
	start := time.Now()
	req, err := e.resolve(ctx, "permission")
	if err != nil {
		return nil, err
	}
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricPermissionLatency, time.Since(start))
		}
	}()

	res := e.flows.Permission(ctx, flows.PermissionInput{Policy: req.policy, Identity: identity})
	recordID := ""
	if res.Record != nil {
		recordID = res.Record.ID
	}
	log := req.log
	if recordID != "" {
		log = log.With(slog.String("record_id", recordID))
	}

	switch res.Failure {
	case flows.PermissionFailureNone:
		e.metricInc(MetricPermissionGranted)
		if res.Slid {
			e.metricInc(MetricSessionSlid)
			log.Debug("expiry slid", slog.Time("expires_at", res.Record.ExpiresAt))
		}
		return res.Record, nil
	case flows.PermissionFailureNotFound:
		e.metricInc(MetricPermissionDenied)
		return nil, ErrInvalidCredentials
	case flows.PermissionFailureExpired:
		e.metricInc(MetricSessionExpired)
		log.Debug("expired record deleted")
		e.emitAudit(ctx, req, AuditEventPermissionExpired, recordID, false, ErrLoginExpiredInactivity)
		return nil, ErrLoginExpiredInactivity
	case flows.PermissionFailureNoPolicy:
		return nil, ErrAuthDisabled
	default:
		storeErr := e.storeFailure(log, res.Err)
		if res.Expired {
			return nil, errors.Join(ErrLoginExpiredInactivity, storeErr)
		}
		return nil, storeErr
	}
}

// Authorize runs Authenticate then Permission.
func (e *Engine) Authorize(ctx context.Context, token string) (session.Identity, *session.Record, error) {
	identity, err := e.Authenticate(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	rec, err := e.Permission(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	return identity, rec, nil
}

// Refresh re-signs token when refresh names a live record. The same refresh
// value is returned. A record past its ExpiresAt is deleted.
func (e *Engine) Refresh(ctx context.Context, token, refresh string) (string, string, error) {
	req, err := e.resolve(ctx, "refresh")
	if err != nil {
		return "", "", err
	}

	res := e.flows.Refresh(ctx, flows.RefreshInput{
		Policy:  req.policy,
		Codec:   req.host.Codec,
		Token:   token,
		Refresh: refresh,
	})
	recordID := ""
	if res.Record != nil {
		recordID = res.Record.ID
	}
	log := req.log
	if recordID != "" {
		log = log.With(slog.String("record_id", recordID))
	}

	var out error
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, req, AuditEventRefresh, recordID, true, nil)
		return res.Token, res.Refresh, nil
	case flows.RefreshFailureNotFound:
		e.metricInc(MetricRefreshForbidden)
		out = ErrRefreshForbidden
	case flows.RefreshFailureExpired:
		e.metricInc(MetricRefreshUnauthorized)
		e.metricInc(MetricSessionExpired)
		log.Debug("expired record deleted")
		out = ErrRefreshUnauthorized
	case flows.RefreshFailureTokenExpired:
		out = ErrLoginExpired
	case flows.RefreshFailureTokenInvalid:
		out = ErrInvalidCredentials
	case flows.RefreshFailureResign:
		log.Error("resign failed", slog.Any("error", res.Err))
		out = fmt.Errorf("%w: %v", ErrToken, res.Err)
	case flows.RefreshFailureNoPolicy:
		return "", "", ErrAuthDisabled
	default:
		out = e.storeFailure(log, res.Err)
		if res.Expired {
			out = errors.Join(ErrRefreshUnauthorized, out)
		}
	}
	e.emitAudit(ctx, req, AuditEventRefreshDenied, recordID, false, out)
	return "", "", out
}

// Logout deletes the record for identity. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context, identity session.Identity) error {
	req, err := e.resolve(ctx, "logout")
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrInvalidCredentials
	}
	if err := e.flows.Logout(ctx, identity); err != nil {
		return e.storeFailure(req.log, err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, req, AuditEventLogout, "", true, nil)
	return nil
}

func (e *Engine) storeFailure(log *slog.Logger, err error) error {
	e.metricInc(MetricStoreFailure)
	log.Error("store call failed", slog.Any("error", err))
	if errors.Is(err, session.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, req request, eventType, recordID string, success bool, err error) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		Host:      req.host.Name(),
		Mode:      string(req.policy.EffectiveMode()),
		RecordID:  recordID,
		Success:   success,
	}
	if err != nil {
		ev.Error = auditCode(err)
	}
	e.audit.Emit(ctx, ev)
}

// auditCode reduces err to a stable code so that backend messages never reach
// audit sinks.
func auditCode(err error) string {
	var ae *AuthError
	switch {
	case errors.As(err, &ae):
		return string(ae.Kind)
	case errors.Is(err, session.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrToken):
		return "token_error"
	case errors.Is(err, ErrAuthDisabled):
		return "auth_disabled"
	default:
		return "internal"
	}
}
