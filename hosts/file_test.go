package hosts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/hostAuth/policy"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const yamlHost = `
serverName: [app.test, www.app.test]
secretKey: s3cret
server:
  auth:
    mode: slideExpiration
    maxInactivitySeconds: 600
    issuer: true
    jwtid: true
    audience: true
    provider: {name: local, id: 7, trusted: true}
  locations:
    /admin:
      auth: {mode: fixed, issuer: nope}
    /api:
      /v1:
        auth: {mode: slideExpiration}
`

func TestParseYAML(t *testing.T) {
	files, err := Parse([]byte(yamlHost), "yaml")
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	require.Equal(t, Names{"app.test", "www.app.test"}, f.ServerName)
	require.Equal(t, "s3cret", f.SecretKey)
	require.NotNil(t, f.Server.Auth)
	require.Equal(t, policy.ModeSlideExpiration, f.Server.Auth.Mode)
	require.Equal(t, 600, f.Server.Auth.MaxInactivitySeconds)
	require.Equal(t, policy.ProviderID("7"), f.Server.Auth.Provider.ID)
	require.True(t, f.Server.Auth.Provider.Trusted)
}

func TestParseJSONCList(t *testing.T) {
	doc := `[
		// first host
		{"serverName": "a.test", "secretKey": "k", "server": {"auth": {"mode": "refreshTokens", "expiresIn": "5m",},},},
		/* second host has no auth */
		{"serverName": ["b.test"], "server": {}},
	]`
	files, err := Parse([]byte(doc), "jsonc")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, Names{"a.test"}, files[0].ServerName)
	require.Equal(t, policy.ModeRefreshTokens, files[0].Server.Auth.Mode)
	require.Nil(t, files[1].Server.Auth)
}

func TestParseRejectsBadContent(t *testing.T) {
	_, err := Parse([]byte(`{"serverName": "a.test", "server": {"auth": {"expiresIn": "soon"}}}`), "jsonc")
	require.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Parse([]byte(`{"server": {}}`), "jsonc")
	require.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Parse([]byte(`{"serverName": "a.test", "server": {"auth": {"mode": "always"}}}`), "jsonc")
	require.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Parse([]byte(`x`), "toml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDirReadsSupportedFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "serverName: b.test\nserver: {}\n")
	writeFile(t, dir, "a.jsonc", `{"serverName": "a.test", "server": {}}`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	files, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, Names{"a.test"}, files[0].ServerName)
	require.Equal(t, filepath.Join(dir, "a.jsonc"), files[0].Source)
	require.Equal(t, Names{"b.test"}, files[1].ServerName)
}

func TestLoadFileWrapsErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile("host.ini")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
