package flows

import (
	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// AuthenticateFailureKind classifies token verification failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureNoPolicy
	AuthenticateFailureExpired
	AuthenticateFailureInvalid
	AuthenticateFailureOther
)

// AuthenticateInput is one bearer token presented to one host.
type AuthenticateInput struct {
	Policy  *policy.AuthPolicy
	Codec   TokenCodec
	Binding Binding
	Token   string
}

// AuthenticateResult carries the reconstructed identity or failure metadata.
type AuthenticateResult struct {
	Failure  AuthenticateFailureKind
	Err      error
	Identity session.Identity
}

// AuthenticateDeps captures authenticate flow dependencies.
type AuthenticateDeps struct {
	Classify func(error) jwt.Class
}

// RunAuthenticate verifies a token issued by this host and rebuilds the session
// identity it stands for. It never touches the store.
func RunAuthenticate(in AuthenticateInput, deps AuthenticateDeps) AuthenticateResult {
	if in.Policy == nil || in.Codec == nil {
		return AuthenticateResult{Failure: AuthenticateFailureNoPolicy}
	}

	claims, err := in.Codec.Verify(in.Token, in.Policy.Verify)
	if err != nil {
		return AuthenticateResult{Failure: classifyToken(deps.Classify, err), Err: err}
	}
	return AuthenticateResult{Identity: BuildIdentity(claims, in.Policy, in.Binding)}
}

func classifyToken(classify func(error) jwt.Class, err error) AuthenticateFailureKind {
	if classify == nil {
		classify = jwt.Classify
	}
	switch classify(err) {
	case jwt.ClassExpired:
		return AuthenticateFailureExpired
	case jwt.ClassInvalid:
		return AuthenticateFailureInvalid
	default:
		return AuthenticateFailureOther
	}
}
