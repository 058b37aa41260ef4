package hosts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/hostAuth/policy"
)

// ErrInvalidPolicy reports a host file whose content cannot be turned into a policy.
var ErrInvalidPolicy = errors.New("hosts: invalid host configuration")

// ErrUnsupportedFormat reports a file extension the loader does not read.
var ErrUnsupportedFormat = errors.New("hosts: unsupported file format")

// Names is a server name list that may be written as a single string.
type Names []string

// UnmarshalJSON accepts a string or a list of strings.
func (n *Names) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*n = nil
		if one != "" {
			*n = Names{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("serverName must be a string or a list of strings")
	}
	*n = many
	return nil
}

// File is one host as declared in configuration.
type File struct {
	ServerName     Names  `json:"serverName"`
	SecretKey      string `json:"secretKey,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
	PublicKeyPath  string `json:"publicKeyPath,omitempty"`
	Server         Server `json:"server"`

	// Source is the file the host was read from; key paths resolve relative to it.
	Source string `json:"-"`
}

// Server is the `server` section of a host.
type Server struct {
	Auth      *policy.Raw `json:"auth,omitempty"`
	Locations any         `json:"locations,omitempty"`
}

// Parse decodes data in the given format ("yaml" or "jsonc"). The document may hold
// one host or a list of hosts.
func Parse(data []byte, format string) ([]File, error) {
	var doc []byte
	switch format {
	case "yaml":
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		encoded, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		doc = encoded
	case "jsonc", "json":
		doc = jsonc.ToJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
		return nil, nil
	}

	var files []File
	if doc[0] == '[' {
		if err := json.Unmarshal(doc, &files); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
	} else {
		var one File
		if err := json.Unmarshal(doc, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		files = []File{one}
	}

	for i := range files {
		if len(files[i].ServerName) == 0 {
			return nil, fmt.Errorf("%w: host %d has no serverName", ErrInvalidPolicy, i)
		}
	}
	return files, nil
}

// FormatOf maps a file extension onto a Parse format.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json", ".jsonc":
		return "jsonc", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadFile reads and parses one host file.
func LoadFile(path string) ([]File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	files, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range files {
		files[i].Source = path
	}
	return files, nil
}

// LoadDir reads every host file directly inside dir, in name order. Files with
// other extensions are skipped.
func LoadDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatOf(e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []File
	for _, name := range names {
		files, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

// keys reads the key material named by f.
func (f File) keys() (policy.Keys, error) {
	var k policy.Keys
	if f.SecretKey != "" {
		k.Secret = []byte(f.SecretKey)
		return k, nil
	}
	if f.PrivateKeyPath != "" {
		data, err := os.ReadFile(f.resolvePath(f.PrivateKeyPath))
		if err != nil {
			return k, fmt.Errorf("reading private key: %w", err)
		}
		k.PrivateKey = data
	}
	if f.PublicKeyPath != "" {
		data, err := os.ReadFile(f.resolvePath(f.PublicKeyPath))
		if err != nil {
			return k, fmt.Errorf("reading public key: %w", err)
		}
		k.PublicKey = data
	}
	return k, nil
}

func (f File) resolvePath(p string) string {
	if filepath.IsAbs(p) || f.Source == "" {
		return p
	}
	return filepath.Join(filepath.Dir(f.Source), p)
}
