package flows

import (
	"context"

	"github.com/MrEthical07/hostAuth/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Store != nil &&
		s.deps.Permission.Store != nil &&
		s.deps.Refresh.Store != nil &&
		s.deps.Logout.Store != nil
}

func (s Service) Login(ctx context.Context, in LoginInput) LoginResult {
	return RunLogin(ctx, in, s.deps.Login)
}

func (s Service) Authenticate(in AuthenticateInput) AuthenticateResult {
	return RunAuthenticate(in, s.deps.Authenticate)
}

func (s Service) Permission(ctx context.Context, in PermissionInput) PermissionResult {
	return RunPermission(ctx, in, s.deps.Permission)
}

func (s Service) Refresh(ctx context.Context, in RefreshInput) RefreshResult {
	return RunRefresh(ctx, in, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, identity session.Identity) error {
	return RunLogout(ctx, identity, s.deps.Logout)
}
