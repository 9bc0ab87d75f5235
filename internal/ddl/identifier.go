package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen is the maximum length allowed for a SQL identifier.
const maxIdentifierLen = 128

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 128 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// ValidateNameList checks an ordered list of table or model names. Every
// entry must be a valid identifier and appear once.
func ValidateNameList(kind string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("at least one %s is required", kind)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			return fmt.Errorf("invalid %s %q: %w", kind, n, err)
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate %s %q", kind, n)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally; validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// Relation validates each part and joins the quoted parts with dots, e.g.
// Relation("raw", "orders") → "raw"."orders".
func Relation(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("relation name is required")
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return "", fmt.Errorf("invalid relation part %q: %w", p, err)
		}
		quoted[i] = QuoteIdentifier(p)
	}
	return strings.Join(quoted, "."), nil
}
