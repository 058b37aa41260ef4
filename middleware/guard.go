package middleware

import (
	"net/http"
	"strings"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/policy"
)

// RequireSession binds the request and admits it only when its bearer token
// authenticates and a live permission record exists. The identity and record
// are available to next through hostAuth.IdentityFromContext and
// hostAuth.RecordFromContext.
func RequireSession(engine *hostAuth.Engine) func(http.Handler) http.Handler {
	return RequireSessionMode(engine, "")
}

// RequireSessionMode is RequireSession for a route whose location overrides
// the host mode. An empty mode keeps the host mode.
func RequireSessionMode(engine *hostAuth.Engine, mode policy.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, hostAuth.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, hostAuth.ErrInvalidCredentials)
				return
			}

			ctx := bindContext(r)
			if mode != "" {
				ctx = hostAuth.WithRouteMode(ctx, mode)
			}
			identity, rec, err := engine.Authorize(ctx, token)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx = hostAuth.WithRecord(hostAuth.WithIdentity(ctx, identity), rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, hostAuth.MessageOf(err), hostAuth.StatusOf(err))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
