package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
	"duck-elt/internal/snapshot"
	"duck-elt/internal/testutil"
)

const (
	customerOrdersSQL = `SELECT * FROM (VALUES (1, 'Ada', 2), (2, 'Grace', 1)) t(customer_id, name, order_count)`
	orderDetailsSQL   = `SELECT * FROM (VALUES (10, 'widget', 2), (11, 'gadget', 1), (12, 'gizmo', 5)) t(order_id, product, quantity)`
)

// seed creates tables in the store file, keyed by fully qualified name.
func seed(t *testing.T, opener engine.Opener, tables map[string]string) {
	t.Helper()
	ctx := context.Background()
	store, err := opener.Open(ctx)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	for rel, query := range tables {
		_, err := store.ExecContext(ctx, "CREATE OR REPLACE TABLE "+rel+" AS "+query)
		require.NoError(t, err, rel)
	}
}

func setup(t *testing.T) (snapshot.Layout, engine.FileOpener) {
	t.Helper()
	dir := t.TempDir()
	return snapshot.Layout{Dir: filepath.Join(dir, "parquet")},
		engine.FileOpener{Path: filepath.Join(dir, "analytics.duckdb")}
}

func TestExporter_ExportsFromPrimarySchema(t *testing.T) {
	layout, opener := setup(t)
	seed(t, opener, map[string]string{
		"main.customer_orders": customerOrdersSQL,
		"main.order_details":   orderDetailsSQL,
	})
	logger, _ := testutil.CaptureLogger()

	res, err := NewExporter(testutil.Models, DefaultResolvers("main"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "DBT model export completed successfully", res.Message)
	assert.Equal(t, testutil.Models, res.Exported())
	require.Len(t, res.Models, 2)
	assert.Equal(t, `"analytics"."main"."customer_orders"`, res.Models[0].Relation)
	assert.Equal(t, int64(2), res.Models[0].Rows)
	assert.Empty(t, res.Models[0].ProbeErrors)
	assert.Equal(t, int64(3), res.Models[1].Rows)

	info, err := snapshot.Inspect(layout.ModelPath("order_details"))
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "product", "quantity"}, info.ColumnNames())
}

func TestExporter_FallsBackToDefaultNamespace(t *testing.T) {
	layout, opener := setup(t)
	// The primary schema is "analytics", but customer_orders only exists
	// where an unqualified name resolves.
	seed(t, opener, map[string]string{
		"main.customer_orders": customerOrdersSQL,
	})
	logger, logs := testutil.CaptureLogger()

	res, err := NewExporter([]string{"customer_orders"}, DefaultResolvers("analytics"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Models, 1)
	m := res.Models[0]
	assert.Equal(t, domain.ModelExportStatusExported, m.Status)
	assert.Equal(t, `"customer_orders"`, m.Relation)
	assert.Equal(t, int64(2), m.Rows)
	require.Len(t, m.ProbeErrors, 1)
	assert.Contains(t, m.ProbeErrors[0], "schema analytics")
	assert.FileExists(t, layout.ModelPath("customer_orders"))
	assert.Contains(t, logs.String(), "available tables in store")
	assert.Contains(t, logs.String(), "main.customer_orders")
	assert.Contains(t, logs.String(), "store="+opener.Path)
}

func TestExporter_PrimarySchemaNamedLikeCatalog(t *testing.T) {
	layout, opener := setup(t)
	// The store file analytics.duckdb is the catalog "analytics". With an
	// "analytics" schema present, the model must come from that schema and
	// not from analytics.main.
	seed(t, opener, map[string]string{
		"main.customer_orders": customerOrdersSQL,
	})
	store, err := opener.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background(), "analytics"))
	_, err = store.ExecContext(context.Background(),
		`CREATE TABLE analytics.analytics.customer_orders AS SELECT 99 AS customer_id`)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	logger, _ := testutil.CaptureLogger()

	res, err := NewExporter([]string{"customer_orders"}, DefaultResolvers("analytics"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)

	m := res.Models[0]
	assert.Equal(t, `"analytics"."analytics"."customer_orders"`, m.Relation)
	assert.Empty(t, m.ProbeErrors)
	assert.Equal(t, int64(1), m.Rows)
}

func TestExporter_MissingModelIsSkipped(t *testing.T) {
	layout, opener := setup(t)
	seed(t, opener, map[string]string{
		"main.customer_orders": customerOrdersSQL,
	})
	logger, logs := testutil.CaptureLogger()

	res, err := NewExporter(testutil.Models, DefaultResolvers("main"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"customer_orders"}, res.Exported())
	skipped := res.Models[1]
	assert.Equal(t, "order_details", skipped.Model)
	assert.Equal(t, domain.ModelExportStatusSkipped, skipped.Status)
	assert.Empty(t, skipped.Relation)
	assert.Len(t, skipped.ProbeErrors, 2, "one error per resolver")
	assert.NoFileExists(t, layout.ModelPath("order_details"))
	assert.FileExists(t, layout.ModelPath("customer_orders"))
	assert.Contains(t, logs.String(), "skipping export")
}

func TestExporter_SkippedModelDoesNotBlockLaterModels(t *testing.T) {
	layout, opener := setup(t)
	seed(t, opener, map[string]string{
		"main.order_details": orderDetailsSQL,
	})
	logger, _ := testutil.CaptureLogger()

	res, err := NewExporter(testutil.Models, DefaultResolvers("main"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"order_details"}, res.Exported())
	assert.Equal(t, domain.ModelExportStatusSkipped, res.Models[0].Status)
}

func TestExporter_WriteFailureAbortsStage(t *testing.T) {
	layout, opener := setup(t)
	seed(t, opener, map[string]string{
		"main.customer_orders": customerOrdersSQL,
		"main.order_details":   orderDetailsSQL,
	})
	// A directory squatting on the output path makes the COPY fail.
	require.NoError(t, os.MkdirAll(layout.ModelPath("customer_orders"), 0o755))
	logger, _ := testutil.CaptureLogger()

	res, err := NewExporter(testutil.Models, DefaultResolvers("main"), layout, opener, logger).
		Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "export customer_orders")
	assert.NoFileExists(t, layout.ModelPath("order_details"))
}

func TestExporter_CreatesModelDir(t *testing.T) {
	layout, opener := setup(t)
	logger, _ := testutil.CaptureLogger()

	res, err := NewExporter(testutil.Models, DefaultResolvers("main"), layout, opener, logger).
		Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Exported())
	assert.DirExists(t, layout.ModelDir())
}

type fakeProber struct {
	readable   map[string]bool
	catalogErr error
	probed     []string
}

func (f *fakeProber) CurrentCatalog(context.Context) (string, error) {
	if f.catalogErr != nil {
		return "", f.catalogErr
	}
	return "analytics", nil
}

func (f *fakeProber) Probe(_ context.Context, relation string) error {
	f.probed = append(f.probed, relation)
	if f.readable[relation] {
		return nil
	}
	return errors.New("Catalog Error: Table does not exist")
}

func TestResolvers(t *testing.T) {
	tests := []struct {
		name     string
		resolver Resolver
		model    string
		readable map[string]bool
		want     string
		wantErr  bool
	}{
		{
			name:     "qualified hit",
			resolver: Qualified{Schema: "main"},
			model:    "customer_orders",
			readable: map[string]bool{`"analytics"."main"."customer_orders"`: true},
			want:     `"analytics"."main"."customer_orders"`,
		},
		{
			name:     "qualified miss",
			resolver: Qualified{Schema: "main"},
			model:    "customer_orders",
			readable: map[string]bool{`"customer_orders"`: true, `"main"."customer_orders"`: true},
			wantErr:  true,
		},
		{
			name:     "unqualified hit",
			resolver: Unqualified{},
			model:    "order_details",
			readable: map[string]bool{`"order_details"`: true},
			want:     `"order_details"`,
		},
		{
			name:     "invalid schema never probes",
			resolver: Qualified{Schema: "bad schema"},
			model:    "order_details",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{readable: tt.readable}
			got, err := tt.resolver.Resolve(context.Background(), p, tt.model)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, p.probed, 1)
		})
	}
}

func TestQualified_CatalogLookupFailure(t *testing.T) {
	p := &fakeProber{catalogErr: errors.New("connection closed")}

	_, err := Qualified{Schema: "main"}.Resolve(context.Background(), p, "customer_orders")
	require.Error(t, err)
	assert.Empty(t, p.probed)
}

func TestDefaultResolvers_Order(t *testing.T) {
	rs := DefaultResolvers("analytics")
	require.Len(t, rs, 2)
	assert.Equal(t, Qualified{Schema: "analytics"}, rs[0])
	assert.Equal(t, Unqualified{}, rs[1])
}
