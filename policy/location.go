package policy

// Override is what survives of a location-level `auth` fragment. Only a mode that
// switches away from the host mode is kept.
type Override struct {
	Mode *Mode
}

// Empty reports whether the override changes nothing.
func (o Override) Empty() bool { return o.Mode == nil }

// Apply returns p governed by the override, or p itself when the override is empty.
func (o Override) Apply(p *AuthPolicy) *AuthPolicy {
	if o.Mode == nil || p == nil {
		return p
	}
	return p.WithMode(*o.Mode)
}

// Map renders the override in fragment form: {} or {"mode": <mode>}.
func (o Override) Map() map[string]any {
	out := map[string]any{}
	if o.Mode != nil {
		out["mode"] = string(*o.Mode)
	}
	return out
}

// CleanLocation reduces a location `auth` fragment to its mode. The mode is kept
// only when it differs from hostMode and either the host is fixed (the route
// turns a session mode on) or the route is fixed (it turns the host's mode off).
// A route cannot swap one session mode for another. Values that are not a known
// mode are dropped. A false or null mode means fixed.
func CleanLocation(fragment map[string]any, hostMode Mode) Override {
	raw, ok := fragment["mode"]
	if !ok {
		return Override{}
	}
	mode, ok := modeOf(raw)
	if !ok {
		return Override{}
	}
	if !SwitchAllowed(hostMode, mode) {
		return Override{}
	}
	return Override{Mode: &mode}
}

// SwitchAllowed reports whether a route may run under mode on a host whose mode
// is hostMode. Exactly one of the two may be fixed.
func SwitchAllowed(hostMode, mode Mode) bool {
	host, route := hostMode.Normalize(), mode.Normalize()
	if host == route {
		return false
	}
	return host == ModeFixed || route == ModeFixed
}

func modeOf(v any) (Mode, bool) {
	switch t := v.(type) {
	case nil:
		return ModeFixed, true
	case bool:
		if t {
			return "", false
		}
		return ModeFixed, true
	case string:
		m := Mode(t).Normalize()
		return m, m.Valid()
	case Mode:
		m := t.Normalize()
		return m, m.Valid()
	}
	return "", false
}
