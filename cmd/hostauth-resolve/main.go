// Command hostauth-resolve loads host files and prints the effective auth
// policy of every host as JSON. Key material is redacted.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/policy"
)

const redacted = "[redacted]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hostauth-resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	appName := fs.StringP("app-name", "a", envOr("HOSTAUTH_APP_NAME", "hostauth"), "issuer for hosts whose provider is \"local\"")
	compact := fs.Bool("compact", false, "print compact JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: hostauth-resolve [flags] <file-or-dir>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	var files []hosts.File
	for _, path := range fs.Args() {
		loaded, err := load(path)
		if err != nil {
			fmt.Fprintf(stderr, "hostauth-resolve: %v\n", err)
			return 1
		}
		files = append(files, loaded...)
	}

	registry, err := hosts.NewRegistry(files, *appName)
	if err != nil {
		fmt.Fprintf(stderr, "hostauth-resolve: %v\n", err)
		return 1
	}

	views := make([]hostView, 0, len(registry.Hosts()))
	for _, h := range registry.Hosts() {
		views = append(views, viewOf(h))
	}

	enc := json.NewEncoder(stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(views); err != nil {
		fmt.Fprintf(stderr, "hostauth-resolve: %v\n", err)
		return 1
	}
	return 0
}

func load(path string) ([]hosts.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return hosts.LoadDir(path)
	}
	return hosts.LoadFile(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type hostView struct {
	Names     []string       `json:"serverName"`
	Source    string         `json:"source,omitempty"`
	Auth      *policyView    `json:"auth"`
	Overrides []overrideView `json:"overrides,omitempty"`
	Locations any            `json:"locations,omitempty"`
}

type overrideView struct {
	Path []string `json:"path"`
	Mode string   `json:"mode"`
}

type policyView struct {
	Mode                   policy.Mode     `json:"mode"`
	MaxInactivitySeconds   int             `json:"maxInactivitySeconds"`
	RefreshInSeconds       int             `json:"refreshInSeconds"`
	SessionLifetimeSeconds int             `json:"sessionLifetimeSeconds"`
	BindCsrs               bool            `json:"bindCsrs"`
	BindProvider           bool            `json:"bindProvider"`
	BindFingerprint        bool            `json:"bindFingerprint"`
	Provider               policy.Provider `json:"provider"`
	SigningKey             string          `json:"signingKey,omitempty"`
	VerificationKey        string          `json:"verificationKey,omitempty"`
	Sign                   signView        `json:"sign"`
	Verify                 verifyView      `json:"verify"`
}

type signView struct {
	Algorithm   string   `json:"algorithm"`
	Issuer      string   `json:"issuer,omitempty"`
	Audience    []string `json:"audience,omitempty"`
	JwtID       string   `json:"jwtid,omitempty"`
	ExpiresIn   string   `json:"expiresIn,omitempty"`
	NotBefore   string   `json:"notBefore,omitempty"`
	NoTimestamp bool     `json:"noTimestamp,omitempty"`
}

type verifyView struct {
	Issuer          string   `json:"issuer,omitempty"`
	Audience        []string `json:"audience,omitempty"`
	JwtID           string   `json:"jwtid,omitempty"`
	UnenforcedJwtID string   `json:"unenforcedJwtid,omitempty"`
	ClockTolerance  string   `json:"clockTolerance,omitempty"`
	ClockTimestamp  int64    `json:"clockTimestamp,omitempty"`
	MaxAge          string   `json:"maxAge,omitempty"`
	Nonce           string   `json:"nonce,omitempty"`
}

func viewOf(h *hosts.Host) hostView {
	v := hostView{
		Names:     h.Names,
		Source:    h.Source,
		Locations: h.Locations,
	}
	for _, o := range h.Overrides {
		if o.Override.Mode == nil {
			continue
		}
		v.Overrides = append(v.Overrides, overrideView{Path: o.Path, Mode: string(*o.Override.Mode)})
	}
	if h.Policy == nil {
		return v
	}

	p := h.Policy
	algorithm := p.Sign.Algorithm
	if h.Codec != nil {
		algorithm = h.Codec.Algorithm()
	}
	v.Auth = &policyView{
		Mode:                   p.EffectiveMode(),
		MaxInactivitySeconds:   p.MaxInactivitySeconds,
		RefreshInSeconds:       p.RefreshInSeconds,
		SessionLifetimeSeconds: p.SessionLifetimeSeconds(),
		BindCsrs:               p.BindCsrs,
		BindProvider:           p.BindProvider,
		BindFingerprint:        p.BindFingerprint,
		Provider:               p.Provider,
		SigningKey:             redact(p.SigningKey),
		VerificationKey:        redact(p.VerificationKey),
		Sign:                   signViewOf(p.Sign, algorithm),
		Verify:                 verifyViewOf(p.Verify),
	}
	return v
}

func signViewOf(o jwt.SignOptions, algorithm string) signView {
	return signView{
		Algorithm:   algorithm,
		Issuer:      o.Issuer,
		Audience:    o.Audience,
		JwtID:       o.JwtID,
		ExpiresIn:   span(o.ExpiresIn),
		NotBefore:   span(o.NotBefore),
		NoTimestamp: o.NoTimestamp,
	}
}

func verifyViewOf(o jwt.VerifyOptions) verifyView {
	return verifyView{
		Issuer:          o.Issuer,
		Audience:        o.Audience,
		JwtID:           o.JwtID,
		UnenforcedJwtID: o.UnenforcedJwtID,
		ClockTolerance:  span(o.ClockTolerance),
		ClockTimestamp:  o.ClockTimestamp,
		MaxAge:          span(o.MaxAge),
		Nonce:           o.Nonce,
	}
}

func redact(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	return redacted
}

func span(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
