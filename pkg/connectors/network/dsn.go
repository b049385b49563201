package network

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// trimJDBC strips a leading "jdbc:" so JDBC-style URLs from older
// project documents resolve to plain driver URLs.
func trimJDBC(uri string) string {
	if len(uri) >= 5 && strings.EqualFold(uri[:5], "jdbc:") {
		return uri[5:]
	}
	return uri
}

// buildPostgresDSN merges the optional credentials into a postgres URL or
// key=value connection string. Explicit credentials win over URL userinfo.
func buildPostgresDSN(cfg core.NetworkBacked) (string, error) {
	raw := trimJDBC(cfg.URI)

	if !strings.Contains(raw, "://") {
		// key=value format: host=localhost port=5432 dbname=app ...
		dsn := raw
		if cfg.User != nil {
			dsn += " user=" + quoteConnValue(*cfg.User)
		}
		if cfg.Password != nil {
			dsn += " password=" + quoteConnValue(*cfg.Password)
		}
		return strings.TrimSpace(dsn), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid postgres uri: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("invalid postgres uri: unexpected scheme %q", u.Scheme)
	}

	var user, password string
	var hasPassword bool
	if u.User != nil {
		user = u.User.Username()
		password, hasPassword = u.User.Password()
	}
	if cfg.User != nil {
		user = *cfg.User
	}
	if cfg.Password != nil {
		password, hasPassword = *cfg.Password, true
	}

	switch {
	case hasPassword:
		u.User = url.UserPassword(user, password)
	case user != "":
		u.User = url.User(user)
	}
	return u.String(), nil
}

// quoteConnValue quotes a libpq key=value parameter when needed.
func quoteConnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// buildMySQLDSN converts a mysql:// URL or a native go-sql-driver DSN into
// the driver's DSN format, merging the optional credentials.
func buildMySQLDSN(cfg core.NetworkBacked) (string, error) {
	raw := trimJDBC(cfg.URI)

	var (
		mc  *mysql.Config
		err error
	)
	if strings.HasPrefix(raw, "mysql://") {
		mc, err = mysqlConfigFromURL(raw)
	} else {
		mc, err = mysql.ParseDSN(raw)
	}
	if err != nil {
		return "", fmt.Errorf("invalid mysql uri: %w", err)
	}

	if cfg.User != nil {
		mc.User = *cfg.User
	}
	if cfg.Password != nil {
		mc.Passwd = *cfg.Password
	}
	return mc.FormatDSN(), nil
}

func mysqlConfigFromURL(raw string) (*mysql.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	return mc, nil
}
