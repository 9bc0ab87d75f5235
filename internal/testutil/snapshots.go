package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"duck-elt/internal/ddl"
	"duck-elt/internal/engine"
	"duck-elt/internal/snapshot"
)

// WriteShopSnapshots writes the ShopSource tables as snapshot files under
// layout, using a scratch DuckDB store at storePath.
func WriteShopSnapshots(t *testing.T, layout snapshot.Layout, storePath string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, snapshot.EnsureDir(layout.Dir))
	store, err := engine.FileOpener{Path: storePath}.Open(ctx)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	src := ShopSource()
	for _, table := range Tables {
		rel, err := ddl.Relation("scratch_" + table)
		require.NoError(t, err)
		_, err = store.ExecContext(ctx, "CREATE OR REPLACE TEMPORARY TABLE "+rel+" AS "+src.Tables[table])
		require.NoError(t, err)
		require.NoError(t, store.CopyToParquet(ctx, rel, layout.RawPath(table)))
	}
}
