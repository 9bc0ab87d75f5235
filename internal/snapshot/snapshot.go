// Package snapshot addresses and inspects the Parquet snapshot files that
// hand data from one pipeline stage to the next.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/parquet/file"

	"duck-elt/internal/domain"
)

// Extension is the file suffix of every snapshot file.
const Extension = ".parquet"

// ModelSubdir is the directory under the snapshot root that holds derived models.
const ModelSubdir = "dbt_models"

// Layout maps table and model names to deterministic snapshot paths.
type Layout struct {
	Dir string
}

// RawPath returns {Dir}/{table}.parquet.
func (l Layout) RawPath(table string) string {
	return filepath.Join(l.Dir, table+Extension)
}

// ModelDir returns {Dir}/dbt_models.
func (l Layout) ModelDir() string {
	return filepath.Join(l.Dir, ModelSubdir)
}

// ModelPath returns {Dir}/dbt_models/{model}.parquet.
func (l Layout) ModelPath(model string) string {
	return filepath.Join(l.ModelDir(), model+Extension)
}

// EnsureDir creates dir and its parents. It is a no-op when dir exists.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}
	return nil
}

// Column describes one column of a snapshot file.
type Column struct {
	Name     string
	Physical string
	Logical  string
}

// Info is the metadata of a snapshot file.
type Info struct {
	Path    string
	Rows    int64
	Columns []Column
}

// Inspect reads the Parquet footer of the file at path. A missing file is
// reported as *domain.NotFoundError; an unreadable footer as a plain error.
func Inspect(path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound("snapshot file %s does not exist", path)
		}
		return nil, fmt.Errorf("stat snapshot %s: %w", path, err)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	defer rdr.Close() //nolint:errcheck

	sc := rdr.MetaData().Schema
	cols := make([]Column, sc.NumColumns())
	for i := range cols {
		c := sc.Column(i)
		cols[i] = Column{
			Name:     c.Name(),
			Physical: c.PhysicalType().String(),
			Logical:  c.LogicalType().String(),
		}
	}

	return &Info{
		Path:    path,
		Rows:    rdr.NumRows(),
		Columns: cols,
	}, nil
}

// ColumnNames returns the column names in file order.
func (i *Info) ColumnNames() []string {
	names := make([]string, len(i.Columns))
	for j, c := range i.Columns {
		names[j] = c.Name
	}
	return names
}
