package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/google/uuid"

	"github.com/hugr-lab/robolake/internal/columnar"
	"github.com/hugr-lab/robolake/record"
)

// Catalog layout.
const (
	// TablesDir is the sub-directory holding one parquet file per table.
	TablesDir = "tables"

	// TableExt is the file extension of persisted tables.
	TableExt = ".parquet"

	tempExt = ".tmp"
)

// ErrTableNotFound is returned when reading a table that has no persisted file.
var ErrTableNotFound = errors.New("table not found")

// Options configures a Store or Catalog.
type Options struct {
	// Compression is the parquet codec name ("zstd", "snappy", "gzip", "none").
	// OPTIONAL: Defaults to zstd.
	Compression string

	// Allocator for Arrow buffers.
	// OPTIONAL: Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Defaults to slog.Default().
	Logger *slog.Logger
}

// TableInfo describes a persisted table.
type TableInfo struct {
	Name      string
	Exists    bool
	RowCount  int64
	Columns   []string
	SizeBytes int64
}

// Store persists tables as parquet files under <dir>/tables.
//
// Appends replace the table file as a whole: the existing table is loaded,
// merged with the new batch and written to a temporary file that is renamed
// over the old one. Appends to the same table are serialized within one
// Store; separate processes writing the same table are not coordinated.
type Store struct {
	dir    string
	codec  compress.Compression
	mem    memory.Allocator
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens a store rooted at dir, creating dir and its tables
// sub-directory if absent.
func NewStore(dir string, opts Options) (*Store, error) {
	codec, err := columnar.ParseCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Join(dir, TablesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	return &Store{
		dir:    dir,
		codec:  codec,
		mem:    opts.Allocator,
		logger: opts.Logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the catalog directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path of a table. The name is not validated.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, TablesDir, name+TableExt)
}

func (s *Store) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Append appends rows to a table, creating it on first use.
// An empty batch is a no-op.
func (s *Store) Append(ctx context.Context, name string, rows []record.Row) error {
	return s.AppendFrame(ctx, name, columnar.FromRows(rows))
}

// AppendFrame appends a frame to a table, creating it on first use.
//
// The resulting column set is the union of the existing and new columns;
// rows are padded with nulls for columns they lack. Existing rows keep their
// order and new rows follow in frame order.
func (s *Store) AppendFrame(ctx context.Context, name string, frame *columnar.Frame) error {
	if err := ValidateTableName(name); err != nil {
		return err
	}
	if frame == nil || frame.NumRows() == 0 {
		s.logger.Info("No rows to append", "table", name)
		return nil
	}

	unlock := s.lock(name)
	defer unlock()

	path := s.Path(name)
	combined := frame
	existing, err := columnar.ReadParquet(ctx, path, s.mem)
	switch {
	case err == nil:
		existing.Append(frame)
		combined = existing
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("failed to load table %s: %w", name, err)
	}

	if err := s.write(name, combined); err != nil {
		return err
	}

	s.logger.Info("Appended rows to table",
		"table", name,
		"appended", frame.NumRows(),
		"rows", combined.NumRows(),
		"columns", combined.NumColumns(),
	)
	return nil
}

// write replaces the table file with frame via a temporary file.
func (s *Store) write(name string, frame *columnar.Frame) error {
	tmp := filepath.Join(s.dir, TablesDir, "."+name+"."+uuid.NewString()+tempExt)
	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}

	err = columnar.WriteParquet(fh, frame, s.mem, s.codec)
	if err == nil {
		err = fh.Sync()
	}
	if closeErr := fh.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write table %s: %w", name, err)
	}

	if err := os.Rename(tmp, s.Path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace table %s: %w", name, err)
	}
	return nil
}

// Read loads a whole table.
func (s *Store) Read(ctx context.Context, name string) (*columnar.Frame, error) {
	if err := ValidateTableName(name); err != nil {
		return nil, err
	}
	frame, err := columnar.ReadParquet(ctx, s.Path(name), s.mem)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", name, err)
	}
	return frame, nil
}

// Info reports table metadata. A table without a persisted file is reported
// with Exists=false. When the file exists but cannot be read, the size is
// still reported and the failure is logged.
func (s *Store) Info(name string) (TableInfo, error) {
	info := TableInfo{Name: name, Columns: []string{}}
	if err := ValidateTableName(name); err != nil {
		return info, err
	}

	st, err := os.Stat(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("failed to stat table %s: %w", name, err)
	}
	info.Exists = true
	info.SizeBytes = st.Size()

	rows, columns, err := columnar.ParquetInfo(s.Path(name))
	if err != nil {
		s.logger.Warn("Failed to read table metadata", "table", name, "error", err)
		return info, nil
	}
	info.RowCount = rows
	info.Columns = columns
	return info, nil
}

// Delete removes a table. Deleting a table that does not exist succeeds.
func (s *Store) Delete(name string) error {
	if err := ValidateTableName(name); err != nil {
		return err
	}

	unlock := s.lock(name)
	defer unlock()

	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}
	s.logger.Debug("Deleted table", "table", name)
	return nil
}

// List returns the names of all persisted tables in sorted order.
// Returns an empty slice (not nil) if there are no tables.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, TablesDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TableExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), TableExt)
		if err := ValidateTableName(name); err != nil {
			s.logger.Debug("Skipping file with invalid table name", "file", e.Name())
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Clear deletes every table.
func (s *Store) Clear() error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.Delete(name); err != nil {
			return err
		}
	}
	return nil
}
