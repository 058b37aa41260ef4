package hosts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/policy"
)

// ErrDuplicateServerName reports a server name claimed by more than one host.
var ErrDuplicateServerName = errors.New("hosts: server names used more than once")

// Host is a resolved host. It is immutable after NewRegistry.
type Host struct {
	Names []string
	// Policy is nil for hosts without an `auth` section.
	Policy *policy.AuthPolicy
	// Codec is nil when Policy is nil.
	Codec     *jwt.Codec
	Locations any
	Overrides []LocationOverride
	Source    string
}

// Name returns the primary server name.
func (h *Host) Name() string {
	if len(h.Names) == 0 {
		return ""
	}
	return h.Names[0]
}

// PolicyFor returns the policy governing a route with the given mode override. An
// empty mode, or one that policy.SwitchAllowed rejects, means the host mode.
func (h *Host) PolicyFor(mode policy.Mode) *policy.AuthPolicy {
	if h.Policy == nil || mode == "" || !policy.SwitchAllowed(h.Policy.EffectiveMode(), mode) {
		return h.Policy
	}
	return h.Policy.WithMode(mode)
}

// Registry indexes resolved hosts by server name.
type Registry struct {
	hosts  []*Host
	byName map[string]*Host
}

// NewRegistry resolves every host in files. appName replaces the issuer for hosts
// whose provider is "local". codecOpts are passed to every host codec.
func NewRegistry(files []File, appName string, codecOpts ...jwt.Option) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Host)}
	seen := make(map[string]int)

	for _, f := range files {
		h, err := resolveHost(f, appName, codecOpts)
		if err != nil {
			if f.Source != "" {
				return nil, fmt.Errorf("%s: %w", f.Source, err)
			}
			return nil, err
		}
		r.hosts = append(r.hosts, h)
		for _, name := range h.Names {
			key := normalizeName(name)
			seen[key]++
			if _, ok := r.byName[key]; !ok {
				r.byName[key] = h
			}
		}
	}

	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateServerName, strings.Join(dups, ", "))
	}
	return r, nil
}

// Lookup returns the host answering to name. Matching ignores case and a trailing
// dot.
func (r *Registry) Lookup(name string) (*Host, bool) {
	h, ok := r.byName[normalizeName(name)]
	return h, ok
}

// Hosts returns the resolved hosts in load order.
func (r *Registry) Hosts() []*Host {
	return append([]*Host(nil), r.hosts...)
}

// Names returns every registered server name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveHost(f File, appName string, codecOpts []jwt.Option) (*Host, error) {
	names := make([]string, 0, len(f.ServerName))
	for _, n := range f.ServerName {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%w: empty server name", ErrInvalidPolicy)
		}
		names = append(names, n)
	}
	h := &Host{Names: names, Source: f.Source}

	var hostMode policy.Mode
	if f.Server.Auth != nil {
		keys, err := f.keys()
		if err != nil {
			return nil, err
		}
		h.Policy = policy.Resolve(f.Server.Auth, keys, policy.Context{AppName: appName, ServerNames: names})
		hostMode = h.Policy.Mode

		algorithm := h.Policy.Algorithm
		if algorithm == "" {
			if len(keys.Secret) == 0 && (len(keys.PrivateKey) > 0 || len(keys.PublicKey) > 0) {
				return nil, fmt.Errorf("%w: algorithm is required with key files", ErrInvalidPolicy)
			}
			algorithm = jwt.DefaultAlgorithm
		}
		codec, err := jwt.NewCodec(algorithm, h.Policy.SigningKey, h.Policy.VerificationKey, codecOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		h.Codec = codec
	}

	if f.Server.Locations != nil {
		h.Locations, h.Overrides = cleanLocations(f.Server.Locations, hostMode)
	}
	return h, nil
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}
