// Package catalog manages a directory of parquet-backed tables and exposes
// them to an embedded DuckDB engine for SQL queries.
//
// Layout:
//
//	<dir>/
//	  tables/
//	    <name>.parquet
//
// Tables are created on first append, grow by schema-evolving appends (see
// Store) and are removed by explicit deletion. Before every query the catalog
// binds one view per table, named after the table, over the table's current
// file.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/robolake/internal/columnar"
	"github.com/hugr-lab/robolake/record"
)

// Catalog owns a Store and a DuckDB connection over it.
//
// The connection and the view bindings are shared for the catalog's
// lifetime; calls are serialized internally.
type Catalog struct {
	store  *Store
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	views map[string]bool
}

// Result is a tabular query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Exists reports whether dir already holds a catalog.
func Exists(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, TablesDir))
	return err == nil && st.IsDir()
}

// Open opens the catalog at dir, creating the directory layout if absent.
func Open(dir string, opts Options) (*Catalog, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	store, err := NewStore(abs, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open query engine: %w", err)
	}
	db.SetMaxOpenConns(1)

	opts.Logger.Debug("Opened catalog", "dir", abs)

	return &Catalog{
		store:  store,
		db:     db,
		logger: opts.Logger,
		views:  make(map[string]bool),
	}, nil
}

// Dir returns the absolute catalog directory.
func (c *Catalog) Dir() string { return c.store.Dir() }

// Store returns the underlying table store.
func (c *Catalog) Store() *Store { return c.store }

// EnsureViews binds one view per persisted table and drops views whose table
// no longer exists. It is idempotent.
func (c *Catalog) EnsureViews(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureViews(ctx)
}

func (c *Catalog) ensureViews(ctx context.Context) error {
	names, err := c.store.List()
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(names))
	for _, name := range names {
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)",
			quoteIdentifier(name), quoteLiteral(c.store.Path(name)))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bind view %s: %w", name, err)
		}
		current[name] = true
		c.logger.Debug("Bound table view", "table", name)
	}

	for name := range c.views {
		if current[name] {
			continue
		}
		if err := c.dropView(ctx, name); err != nil {
			return err
		}
	}
	c.views = current
	return nil
}

func (c *Catalog) dropView(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+quoteIdentifier(name)); err != nil {
		return fmt.Errorf("failed to drop view %s: %w", name, err)
	}
	delete(c.views, name)
	c.logger.Debug("Dropped table view", "table", name)
	return nil
}

// Execute refreshes the views and runs query.
//
// The statement runs with the privileges of the embedded engine; it is not a
// sandboxed query surface.
func (c *Catalog) Execute(ctx context.Context, query string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureViews(ctx); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	result := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to read query result: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result, nil
}

// Append appends rows to a table.
func (c *Catalog) Append(ctx context.Context, name string, rows []record.Row) error {
	return c.store.Append(ctx, name, rows)
}

// AppendFrame appends a frame to a table.
func (c *Catalog) AppendFrame(ctx context.Context, name string, frame *columnar.Frame) error {
	return c.store.AppendFrame(ctx, name, frame)
}

// DeleteTable removes a table and its view.
func (c *Catalog) DeleteTable(ctx context.Context, name string) error {
	if err := ValidateTableName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.dropView(ctx, name); err != nil {
		return err
	}
	return c.store.Delete(name)
}

// Tables lists the persisted tables.
func (c *Catalog) Tables() ([]string, error) {
	return c.store.List()
}

// TableInfo reports table metadata.
func (c *Catalog) TableInfo(name string) (TableInfo, error) {
	return c.store.Info(name)
}

// Close closes the query engine.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Close()
}
