// Package ddl builds DuckDB statements for extensions, secrets, schemas and
// Parquet snapshot transfer.
package ddl

import (
	"fmt"
	"strings"
)

// PostgresSecret holds the connection fields stored in a DuckDB postgres secret.
type PostgresSecret struct {
	Name     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// InstallExtension returns: INSTALL <name>.
func InstallExtension(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid extension name: %w", err)
	}
	return "INSTALL " + name, nil
}

// LoadExtension returns: LOAD <name>.
func LoadExtension(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid extension name: %w", err)
	}
	return "LOAD " + name, nil
}

// CreateSchemaIfNotExists returns: CREATE SCHEMA IF NOT EXISTS "<name>".
func CreateSchemaIfNotExists(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	return "CREATE SCHEMA IF NOT EXISTS " + QuoteIdentifier(name), nil
}

// CreateTableFromParquet returns a statement that replaces "<schema>"."<table>"
// with the full contents of a Parquet file.
func CreateTableFromParquet(schema, table, path string) (string, error) {
	rel, err := Relation(schema, table)
	if err != nil {
		return "", fmt.Errorf("invalid table: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("parquet path is required")
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)",
		rel, QuoteLiteral(path)), nil
}

// CopyToParquet returns a COPY statement writing every row of relation to path.
// relation must already be validated and quoted (see Relation).
func CopyToParquet(relation, path string) (string, error) {
	if relation == "" {
		return "", fmt.Errorf("relation is required")
	}
	if path == "" {
		return "", fmt.Errorf("parquet path is required")
	}
	return fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (FORMAT PARQUET)",
		relation, QuoteLiteral(path)), nil
}

// ProbeRelation returns a query that fails unless relation is readable,
// without fetching any rows.
func ProbeRelation(relation string) (string, error) {
	if relation == "" {
		return "", fmt.Errorf("relation is required")
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT 0", relation), nil
}

// CountRows returns: SELECT count(*) FROM <relation>.
func CountRows(relation string) (string, error) {
	if relation == "" {
		return "", fmt.Errorf("relation is required")
	}
	return "SELECT count(*) FROM " + relation, nil
}

// CreatePostgresSecret returns a statement creating a temporary DuckDB
// secret of TYPE postgres. Temporary secrets live only in the current
// process and are never written into the database file.
func CreatePostgresSecret(s PostgresSecret) (string, error) {
	if err := ValidateIdentifier(s.Name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	if s.Host == "" {
		return "", fmt.Errorf("postgres host is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return "", fmt.Errorf("postgres port %d out of range", s.Port)
	}
	if s.Database == "" {
		return "", fmt.Errorf("postgres database is required")
	}
	return fmt.Sprintf(`CREATE OR REPLACE TEMPORARY SECRET %s (
	TYPE postgres,
	HOST %s,
	PORT %d,
	DATABASE %s,
	USER %s,
	PASSWORD %s
)`,
		QuoteIdentifier(s.Name),
		QuoteLiteral(s.Host),
		s.Port,
		QuoteLiteral(s.Database),
		QuoteLiteral(s.User),
		QuoteLiteral(s.Password),
	), nil
}

// DropSecret returns: DROP TEMPORARY SECRET IF EXISTS "<name>".
func DropSecret(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	return "DROP TEMPORARY SECRET IF EXISTS " + QuoteIdentifier(name), nil
}

// AttachPostgres returns a read-only ATTACH of a postgres database whose
// credentials come from the named secret. params is a libpq keyword/value
// string (e.g. "sslmode=require") for settings a secret cannot hold; it
// may be empty.
func AttachPostgres(alias, secretName, params string) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid catalog alias: %w", err)
	}
	if err := ValidateIdentifier(secretName); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	return fmt.Sprintf("ATTACH %s AS %s (TYPE postgres, SECRET %s, READ_ONLY)",
		QuoteLiteral(params), QuoteIdentifier(alias), QuoteIdentifier(secretName)), nil
}

// DetachCatalog returns: DETACH DATABASE IF EXISTS "<alias>".
func DetachCatalog(alias string) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid catalog alias: %w", err)
	}
	return "DETACH DATABASE IF EXISTS " + QuoteIdentifier(alias), nil
}

// ListTablesSQL returns the catalog inventory query: every table and its
// schema outside the engine's own system namespaces.
func ListTablesSQL(excludedSchemas []string) string {
	var b strings.Builder
	b.WriteString("SELECT table_schema, table_name FROM information_schema.tables")
	if len(excludedSchemas) > 0 {
		quoted := make([]string, len(excludedSchemas))
		for i, s := range excludedSchemas {
			quoted[i] = QuoteLiteral(s)
		}
		b.WriteString(" WHERE table_schema NOT IN (")
		b.WriteString(strings.Join(quoted, ", "))
		b.WriteString(")")
	}
	b.WriteString(" ORDER BY table_schema, table_name")
	return b.String()
}
