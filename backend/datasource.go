// Package backend executes routed statements against the physical databases.
package backend

import (
	"fmt"
	"net/url"
	"strings"
)

// Datasource is one physical database reachable through database/sql.
type Datasource struct {
	Name     string
	Driver   string // mysql or postgres
	DSN      string
	Addr     string // host:port, used by health checks and logs
	Replicas []*Datasource
}

// ParseURL turns a datasource URL into driver and DSN. MySQL URLs become
// go-sql-driver DSNs, postgres URLs pass through untouched since lib/pq
// accepts them directly.
func ParseURL(name, raw string) (*Datasource, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("datasource %s: %w", name, err)
	}
	switch u.Scheme {
	case "mysql":
		return &Datasource{
			Name:   name,
			Driver: "mysql",
			DSN:    mysqlDSN(u),
			Addr:   u.Host,
		}, nil
	case "postgres", "postgresql":
		return &Datasource{
			Name:   name,
			Driver: "postgres",
			DSN:    raw,
			Addr:   u.Host,
		}, nil
	default:
		return nil, fmt.Errorf("datasource %s: unsupported scheme %q", name, u.Scheme)
	}
}

func mysqlDSN(u *url.URL) string {
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			b.WriteByte(':')
			b.WriteString(pass)
		}
		b.WriteByte('@')
	}
	b.WriteString("tcp(")
	b.WriteString(u.Host)
	b.WriteString(")/")
	b.WriteString(strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}
