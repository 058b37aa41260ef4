package session

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Identities and user documents only use string keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// Key is the BLAKE3-256 digest of an identity's canonical encoding.
type Key [32]byte

// String returns the lowercase hex form used in backend keys.
func (k Key) String() string { return hex.EncodeToString(k[:]) }

// IdentityKey returns the structural key of id.
func IdentityKey(id Identity) (Key, error) {
	data, err := MarshalValue(map[string]any(id))
	if err != nil {
		return Key{}, err
	}
	return Key(blake3.Sum256(data)), nil
}

// MarshalValue encodes v in canonical form: deterministic CBOR over values whose
// numbers are normalized to float64.
func MarshalValue(v any) ([]byte, error) {
	data, err := encMode.Marshal(normalize(v))
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

// UnmarshalIdentity decodes an identity written by MarshalValue.
func UnmarshalIdentity(data []byte) (Identity, error) {
	m, err := UnmarshalMap(data)
	if err != nil || m == nil {
		return nil, err
	}
	return Identity(m), nil
}

// UnmarshalMap decodes a document written by MarshalValue. Empty input yields nil.
func UnmarshalMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return normalizeMap(out), nil
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return normalize(m).(map[string]any)
}

// normalize rewrites v into the shape encoding/json produces when decoding into any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t
	case Identity:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return t
	}
}
