package flows

import (
	"context"

	"github.com/MrEthical07/hostAuth/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store session.Store
}

// RunLogout deletes the record for identity. Logging out twice is not an error.
func RunLogout(ctx context.Context, identity session.Identity, deps LogoutDeps) error {
	return deps.Store.DeleteOne(ctx, session.ByIdentity(identity))
}
