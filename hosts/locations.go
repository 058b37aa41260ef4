package hosts

import (
	"strconv"

	"github.com/MrEthical07/hostAuth/policy"
)

// LocationOverride is a mode override found under the location at Path.
type LocationOverride struct {
	Path     []string
	Override policy.Override
}

// cleanLocations returns a copy of tree with every `auth` fragment reduced by
// policy.CleanLocation, plus the overrides that survived.
func cleanLocations(tree any, hostMode policy.Mode) (any, []LocationOverride) {
	var overrides []LocationOverride
	cleaned := walkLocations(tree, hostMode, nil, &overrides)
	return cleaned, overrides
}

func walkLocations(node any, hostMode policy.Mode, path []string, out *[]LocationOverride) any {
	switch t := node.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, v := range t {
			if k == "auth" {
				fragment, _ := v.(map[string]any)
				override := policy.CleanLocation(fragment, hostMode)
				cp[k] = override.Map()
				if !override.Empty() {
					*out = append(*out, LocationOverride{
						Path:     append([]string(nil), path...),
						Override: override,
					})
				}
				continue
			}
			cp[k] = walkLocations(v, hostMode, append(path, k), out)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, v := range t {
			cp[i] = walkLocations(v, hostMode, append(path, strconv.Itoa(i)), out)
		}
		return cp
	default:
		return t
	}
}
