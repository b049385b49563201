package project

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// Endpoint type names written to new documents.
const (
	TypeFile    = "file"
	TypeNetwork = "network"
)

// Endpoint is the serialized shape of a core.ConnectionConfig.
// The same struct decodes JSON project documents and koanf sections
// of tablemigrate.yaml.
type Endpoint struct {
	Type string `json:"type" koanf:"type" yaml:"type"`

	// File-backed.
	FilePath string `json:"filePath,omitempty" koanf:"path" yaml:"path,omitempty"`

	// Network-backed.
	URI      string  `json:"uri,omitempty" koanf:"uri" yaml:"uri,omitempty"`
	User     *string `json:"user,omitempty" koanf:"user" yaml:"user,omitempty"`
	Password *string `json:"password,omitempty" koanf:"password" yaml:"password,omitempty"`
	DriverID string  `json:"driverId,omitempty" koanf:"driver" yaml:"driver,omitempty"`

	// Accepted on read only.
	JDBCURL         string `json:"jdbcUrl,omitempty" koanf:"jdbc_url" yaml:"-"`
	DriverClassName string `json:"driverClassName,omitempty" koanf:"driver_class" yaml:"-"`
}

// IsZero reports whether no field of the endpoint is set.
func (e Endpoint) IsZero() bool {
	return e.Type == "" && e.FilePath == "" && e.URI == "" && e.JDBCURL == "" &&
		e.DriverID == "" && e.DriverClassName == "" && e.User == nil && e.Password == nil
}

// Config resolves the endpoint into its ConnectionConfig variant.
// An empty type is inferred from which fields are set.
func (e Endpoint) Config() (core.ConnectionConfig, error) {
	switch kind := endpointKind(e); kind {
	case core.KindFileBacked:
		return core.FileBacked{Path: e.FilePath}, nil
	case core.KindNetworkBacked:
		cfg := core.NetworkBacked{
			URI:      firstNonEmpty(e.URI, e.JDBCURL),
			User:     e.User,
			Password: e.Password,
			DriverID: firstNonEmpty(e.DriverID, e.DriverClassName),
		}
		if cfg.DriverID == "" {
			cfg.DriverID = DriverForURI(cfg.URI)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown connection type %q (expected %q or %q)", e.Type, TypeFile, TypeNetwork)
	}
}

func endpointKind(e Endpoint) core.ConfigKind {
	t := strings.ToLower(strings.TrimSpace(e.Type))
	switch {
	case t == "":
		if e.FilePath != "" {
			return core.KindFileBacked
		}
		if e.URI != "" || e.JDBCURL != "" {
			return core.KindNetworkBacked
		}
		return ""
	case t == TypeFile, t == "sqlite", t == "duckdb", strings.HasSuffix(t, "sqliteconfig"):
		return core.KindFileBacked
	case t == TypeNetwork, t == "jdbc", strings.HasSuffix(t, "jdbcconnectionconfig"):
		return core.KindNetworkBacked
	default:
		return ""
	}
}

// EndpointFrom converts a ConnectionConfig into its serialized shape.
func EndpointFrom(cfg core.ConnectionConfig) (Endpoint, error) {
	switch c := cfg.(type) {
	case core.FileBacked:
		return Endpoint{Type: TypeFile, FilePath: c.Path}, nil
	case *core.FileBacked:
		return Endpoint{Type: TypeFile, FilePath: c.Path}, nil
	case core.NetworkBacked:
		return networkEndpoint(c), nil
	case *core.NetworkBacked:
		return networkEndpoint(*c), nil
	case nil:
		return Endpoint{}, fmt.Errorf("connection config is nil")
	default:
		return Endpoint{}, fmt.Errorf("unsupported connection config %T", cfg)
	}
}

func networkEndpoint(c core.NetworkBacked) Endpoint {
	return Endpoint{
		Type:     TypeNetwork,
		URI:      c.URI,
		User:     c.User,
		Password: c.Password,
		DriverID: c.DriverID,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expanded returns a copy with ${VAR} references in the location and
// credential fields replaced. See ExpandEnv.
func (e Endpoint) Expanded() Endpoint {
	out := e
	out.FilePath = ExpandEnv(e.FilePath)
	out.URI = ExpandEnv(e.URI)
	out.JDBCURL = ExpandEnv(e.JDBCURL)
	out.User = expandEnvPtr(e.User)
	out.Password = expandEnvPtr(e.Password)
	return out
}

// ExpandEnv replaces ${VAR} patterns with environment variable values.
// References to unset variables are left as written.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

func expandEnvPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := ExpandEnv(*s)
	return &v
}

// DriverForURI guesses a driver id from a connection string: postgres URLs
// and key=value strings map to "pgx", mysql URLs to "mysql". Anything else
// returns "".
func DriverForURI(uri string) string {
	u := strings.ToLower(strings.TrimSpace(uri))
	u = strings.TrimPrefix(u, "jdbc:")
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"), strings.HasPrefix(u, "postgresql:"):
		return "pgx"
	case strings.HasPrefix(u, "mysql://"), strings.HasPrefix(u, "mysql:"):
		return "mysql"
	case !strings.Contains(u, "://") && strings.Contains(u, "="):
		return "pgx"
	default:
		return ""
	}
}

// LooksLikeURI reports whether s names a network endpoint rather than a file.
func LooksLikeURI(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, "://") ||
		strings.HasPrefix(strings.ToLower(s), "jdbc:") ||
		(strings.Contains(s, "=") && strings.Contains(s, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
