package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanLocation(t *testing.T) {
	cases := []struct {
		name     string
		fragment map[string]any
		host     Mode
		want     map[string]any
	}{
		{"no mode", map[string]any{"issuer": "x", "secretKey": "y"}, ModeFixed, map[string]any{}},
		{"same as host", map[string]any{"mode": "slideExpiration"}, ModeSlideExpiration, map[string]any{}},
		{"empty host equals fixed", map[string]any{"mode": "fixed"}, "", map[string]any{}},
		{"switch from fixed", map[string]any{"mode": "refreshTokens", "nonce": "n"}, "", map[string]any{"mode": "refreshTokens"}},
		{"no switch between session modes", map[string]any{"mode": "slideExpiration"}, ModeRefreshTokens, map[string]any{}},
		{"no switch from slide to refresh", map[string]any{"mode": "refreshTokens", "issuer": "x"}, ModeSlideExpiration, map[string]any{}},
		{"null disables host mode", map[string]any{"mode": nil}, ModeRefreshTokens, map[string]any{"mode": "fixed"}},
		{"fixed disables host mode", map[string]any{"mode": "fixed"}, ModeSlideExpiration, map[string]any{"mode": "fixed"}},
		{"false disables host mode", map[string]any{"mode": false}, ModeSlideExpiration, map[string]any{"mode": "fixed"}},
		{"unknown mode dropped", map[string]any{"mode": "forever"}, ModeFixed, map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanLocation(tc.fragment, tc.host).Map()
			require.Equal(t, tc.want, got)
			for k := range got {
				require.Equal(t, "mode", k)
			}
		})
	}
}

func TestOverrideApply(t *testing.T) {
	p := Resolve(&Raw{}, Keys{}, Context{})
	require.Same(t, p, Override{}.Apply(p))

	o := CleanLocation(map[string]any{"mode": "slideExpiration"}, p.Mode)
	require.False(t, o.Empty())
	require.Equal(t, ModeSlideExpiration, o.Apply(p).EffectiveMode())
}

func TestSwitchAllowed(t *testing.T) {
	require.True(t, SwitchAllowed("", ModeSlideExpiration))
	require.True(t, SwitchAllowed(ModeFixed, ModeRefreshTokens))
	require.True(t, SwitchAllowed(ModeRefreshTokens, ModeFixed))
	require.False(t, SwitchAllowed(ModeRefreshTokens, ModeSlideExpiration))
	require.False(t, SwitchAllowed(ModeSlideExpiration, ModeRefreshTokens))
	require.False(t, SwitchAllowed(ModeFixed, ""))
}
