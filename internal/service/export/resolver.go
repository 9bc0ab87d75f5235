package export

import (
	"context"

	"duck-elt/internal/ddl"
)

// Prober checks that a relation is readable.
type Prober interface {
	Probe(ctx context.Context, relation string) error
	// CurrentCatalog names the store's own database.
	CurrentCatalog(ctx context.Context) (string, error)
}

// Resolver maps a model name to a readable relation in the store.
type Resolver interface {
	// Resolve returns the quoted relation for model, or the probe error.
	Resolve(ctx context.Context, p Prober, model string) (string, error)
	String() string
}

// Qualified resolves a model inside a named schema of the store's own
// catalog. The catalog is always spelled out: a two-part name whose first
// part matches no schema is read by DuckDB as catalog.table, which would
// resolve "analytics"."m" to analytics.main.m in a file named analytics.duckdb.
type Qualified struct {
	Schema string
}

// Resolve implements Resolver.
func (r Qualified) Resolve(ctx context.Context, p Prober, model string) (string, error) {
	rel, err := ddl.Relation(r.Schema, model)
	if err != nil {
		return "", err
	}
	catalog, err := p.CurrentCatalog(ctx)
	if err != nil {
		return "", err
	}
	// The catalog name comes from the engine, not from configuration, so
	// it is quoted rather than validated.
	rel = ddl.QuoteIdentifier(catalog) + "." + rel
	if err := p.Probe(ctx, rel); err != nil {
		return "", err
	}
	return rel, nil
}

func (r Qualified) String() string { return "schema " + r.Schema }

// Unqualified resolves a model through the store's default search path.
type Unqualified struct{}

// Resolve implements Resolver.
func (Unqualified) Resolve(ctx context.Context, p Prober, model string) (string, error) {
	rel, err := ddl.Relation(model)
	if err != nil {
		return "", err
	}
	if err := p.Probe(ctx, rel); err != nil {
		return "", err
	}
	return rel, nil
}

func (Unqualified) String() string { return "default search path" }

// DefaultResolvers tries the primary schema first, then the search path.
func DefaultResolvers(primary string) []Resolver {
	return []Resolver{Qualified{Schema: primary}, Unqualified{}}
}
