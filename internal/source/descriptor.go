// Package source describes the relational source database and makes it
// reachable from the analytical store.
package source

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"

	"duck-elt/internal/ddl"
)

// DefaultSchema is the Postgres schema the extracted tables live in.
const DefaultSchema = "public"

// Descriptor holds the connection fields of the source database.
type Descriptor struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // empty means the driver default
}

// ConnString renders the descriptor as a postgres:// URL. Every component
// is escaped, so credentials containing URL metacharacters survive intact.
func (d Descriptor) ConnString() string {
	return d.url().String()
}

// Redacted returns the connection string with the password masked, for logs.
func (d Descriptor) Redacted() string {
	return d.url().Redacted()
}

func (d Descriptor) url() *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u
}

// Validate checks that the descriptor is complete and that pgx accepts
// the resulting connection string.
func (d Descriptor) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("postgres port %d out of range", d.Port)
	}
	if d.User == "" {
		return fmt.Errorf("postgres user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	if _, err := pgx.ParseConfig(d.ConnString()); err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	return nil
}

// AttachParams returns the libpq keyword/value settings that a DuckDB
// postgres secret does not carry, currently only sslmode.
func (d Descriptor) AttachParams() string {
	if d.SSLMode == "" {
		return ""
	}
	return "sslmode=" + d.SSLMode
}

// Secret converts the descriptor into the fields of a DuckDB postgres secret.
func (d Descriptor) Secret(name string) ddl.PostgresSecret {
	return ddl.PostgresSecret{
		Name:     name,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Database: d.Database,
	}
}
