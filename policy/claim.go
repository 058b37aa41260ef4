package policy

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RuleKind tags how a registered claim value is obtained.
type RuleKind uint8

const (
	// RuleAbsent leaves the claim unset.
	RuleAbsent RuleKind = iota
	// RuleLiteral uses ClaimRule.Value as is.
	RuleLiteral
	// RuleDerive is the undirected form decoded from `true`; Resolve turns it into
	// RuleFromProvider or RuleFromHost depending on the claim.
	RuleDerive
	// RuleFromProvider computes the value from the host's provider descriptor.
	RuleFromProvider
	// RuleFromHost computes the value from the host's own server name.
	RuleFromHost
)

// ClaimRule is the tagged form of a config value that is either a literal or the
// boolean `true` meaning "compute it from context".
type ClaimRule struct {
	Kind  RuleKind
	Value string
}

// Literal returns a rule carrying v.
func Literal(v string) ClaimRule { return ClaimRule{Kind: RuleLiteral, Value: v} }

// FromProvider returns a rule deriving its value from the provider descriptor.
func FromProvider() ClaimRule { return ClaimRule{Kind: RuleFromProvider} }

// FromHost returns a rule deriving its value from the server name.
func FromHost() ClaimRule { return ClaimRule{Kind: RuleFromHost} }

// Set reports whether the rule contributes a value.
func (r ClaimRule) Set() bool {
	return r.Kind != RuleAbsent && !(r.Kind == RuleLiteral && r.Value == "")
}

func (r ClaimRule) direct(fallback RuleKind) ClaimRule {
	if r.Kind == RuleDerive {
		r.Kind = fallback
	}
	return r
}

// UnmarshalJSON accepts a string, a number, or a boolean.
func (r *ClaimRule) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*r = ClaimRule{}
	case bool:
		if v {
			*r = ClaimRule{Kind: RuleDerive}
		} else {
			*r = ClaimRule{}
		}
	case string:
		if v == "" {
			*r = ClaimRule{}
		} else {
			*r = Literal(v)
		}
	case float64:
		*r = Literal(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("policy: claim rule must be a string or boolean, got %T", raw)
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON so resolved policies can be printed.
func (r ClaimRule) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RuleLiteral:
		return json.Marshal(r.Value)
	case RuleDerive:
		return []byte("true"), nil
	case RuleFromProvider:
		return json.Marshal("<provider>")
	case RuleFromHost:
		return json.Marshal("<host>")
	default:
		return []byte("null"), nil
	}
}
