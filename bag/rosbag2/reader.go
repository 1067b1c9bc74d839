// Package rosbag2 reads ROS 2 bags stored with the SQLite storage plugin.
//
// A bag is either a single .db3 file or a bag directory containing
// metadata.yaml and one or more .db3 files. Message definitions stored in the
// bag (message_definitions table) are registered into the session type store
// before any message is decoded.
package rosbag2

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hugr-lab/robolake/bag"
	"github.com/hugr-lab/robolake/typestore"
)

// ErrUnsupportedStorage indicates a bag that is not stored as SQLite.
var ErrUnsupportedStorage = errors.New("unsupported bag storage")

const (
	storageSQLite = "sqlite3"
	fileExt       = ".db3"

	definitionEncodingMsg = "ros2msg"
)

// Reader reads messages from a rosbag2 SQLite bag. It implements bag.Reader.
// Not safe for concurrent use.
type Reader struct {
	types   *typestore.Store
	logger  *slog.Logger
	files   []*storageFile
	conns   []bag.Connection
	byKey   map[string]int
	formats map[string]string
}

type storageFile struct {
	path string
	db   *sql.DB

	// topicConn maps topics.id in this file to an index in Reader.conns.
	topicConn map[int64]int
}

var _ bag.Reader = (*Reader)(nil)

// Open opens a bag file or bag directory. Definitions recorded in the bag are
// registered into types. A nil logger uses slog.Default().
func Open(path string, types *typestore.Store, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := storagePaths(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		types:   types,
		logger:  logger,
		byKey:   make(map[string]int),
		formats: make(map[string]string),
	}
	for _, p := range paths {
		if err := r.openFile(p); err != nil {
			r.Close()
			return nil, err
		}
	}

	logger.Debug("Opened rosbag2 bag",
		"path", path,
		"files", len(r.files),
		"connections", len(r.conns),
	)
	return r, nil
}

// storagePaths resolves the .db3 files that make up a bag.
func storagePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bag: %w", err)
	}

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(path), fileExt) {
			return nil, fmt.Errorf("%w: %s is not a %s file", ErrUnsupportedStorage, path, fileExt)
		}
		return []string{path}, nil
	}

	meta, err := ReadMetadata(filepath.Join(path, MetadataFile))
	switch {
	case err == nil:
		if meta.StorageIdentifier != "" && meta.StorageIdentifier != storageSQLite {
			return nil, fmt.Errorf("%w: storage %q", ErrUnsupportedStorage, meta.StorageIdentifier)
		}
		paths := make([]string, 0, len(meta.RelativeFilePaths))
		for _, rel := range meta.RelativeFilePaths {
			paths = append(paths, filepath.Join(path, rel))
		}
		if len(paths) > 0 {
			return paths, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(path, "*"+fileExt))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrUnsupportedStorage, fileExt, path)
	}
	slices.Sort(paths)
	return paths, nil
}

// sqliteDSN returns a SQLite URI for path opened with the given mode
// ("ro" or "rwc"). Characters with a meaning in URIs are escaped.
func sqliteDSN(path, mode string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=" + mode
}

func (r *Reader) openFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open bag file: %w", err)
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path, "ro"))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	f := &storageFile{path: path, db: db, topicConn: make(map[int64]int)}
	r.files = append(r.files, f)

	if err := r.loadTopics(f); err != nil {
		return fmt.Errorf("failed to read topics from %s: %w", path, err)
	}
	if err := r.loadDefinitions(f); err != nil {
		return fmt.Errorf("failed to read message definitions from %s: %w", path, err)
	}
	return nil
}

func (r *Reader) loadTopics(f *storageFile) error {
	rows, err := f.db.Query(`SELECT id, name, type, serialization_format FROM topics ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                    int64
			name, typ, serializer string
		)
		if err := rows.Scan(&id, &name, &typ, &serializer); err != nil {
			return err
		}

		key := name + "\x00" + typ
		idx, ok := r.byKey[key]
		if !ok {
			idx = len(r.conns)
			r.byKey[key] = idx
			r.conns = append(r.conns, bag.Connection{
				ID:                  idx + 1,
				Topic:               name,
				MsgType:             typ,
				SerializationFormat: serializer,
			})
		}
		f.topicConn[id] = idx
		r.formats[typ] = serializer
	}
	if err := rows.Err(); err != nil {
		return err
	}

	counts, err := f.db.Query(`SELECT topic_id, COUNT(*) FROM messages GROUP BY topic_id`)
	if err != nil {
		return err
	}
	defer counts.Close()

	for counts.Next() {
		var id, n int64
		if err := counts.Scan(&id, &n); err != nil {
			return err
		}
		if idx, ok := f.topicConn[id]; ok {
			r.conns[idx].MessageCount += n
		}
	}
	return counts.Err()
}

func (r *Reader) loadDefinitions(f *storageFile) error {
	var name string
	err := f.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'message_definitions'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	rows, err := f.db.Query(`SELECT topic_type, encoding, encoded_message_definition FROM message_definitions`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var typ, encoding, text string
		if err := rows.Scan(&typ, &encoding, &text); err != nil {
			return err
		}
		if encoding != definitionEncodingMsg || strings.TrimSpace(text) == "" {
			r.logger.Debug("Skipping message definition", "type", typ, "encoding", encoding)
			continue
		}
		if err := r.types.RegisterConcatenated(typ, text); err != nil {
			r.logger.Warn("Ignoring unparsable message definition", "type", typ, "error", err)
		}
	}
	return rows.Err()
}

// Connections implements bag.Reader.
func (r *Reader) Connections() []bag.Connection {
	return slices.Clone(r.conns)
}

// Messages implements bag.Reader. Messages are ordered by timestamp within each
// storage file; files are read in bag order.
func (r *Reader) Messages(ctx context.Context, conns []bag.Connection, fn func(bag.Message) error) error {
	var selected map[int]bool
	if conns != nil {
		selected = make(map[int]bool, len(conns))
		for _, c := range conns {
			selected[c.ID] = true
		}
	}

	for _, f := range r.files {
		if err := r.fileMessages(ctx, f, selected, fn); err != nil {
			if errors.Is(err, bag.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (r *Reader) fileMessages(ctx context.Context, f *storageFile, selected map[int]bool, fn func(bag.Message) error) error {
	var ids []any
	for id, idx := range f.topicConn {
		if selected == nil || selected[r.conns[idx].ID] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT topic_id, timestamp, data FROM messages WHERE topic_id IN (` + placeholders + `) ORDER BY timestamp, id`

	rows, err := f.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("failed to query messages in %s: %w", f.path, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			topicID, ts int64
			data        []byte
		)
		if err := rows.Scan(&topicID, &ts, &data); err != nil {
			return fmt.Errorf("failed to read message in %s: %w", f.path, err)
		}
		msg := bag.Message{
			Connection: r.conns[f.topicConn[topicID]],
			Timestamp:  ts,
			Data:       data,
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Deserialize implements bag.Reader using the serialization format recorded
// for msgType.
func (r *Reader) Deserialize(raw []byte, msgType string) (any, error) {
	return r.types.DecodeFormat(raw, msgType, r.formats[msgType])
}

// Stats implements bag.Reader.
func (r *Reader) Stats(ctx context.Context) (bag.Stats, error) {
	var stats bag.Stats
	for _, f := range r.files {
		var count, start, end int64
		err := f.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(MIN(timestamp), 0), COALESCE(MAX(timestamp), 0) FROM messages`,
		).Scan(&count, &start, &end)
		if err != nil {
			return bag.Stats{}, fmt.Errorf("failed to read stats from %s: %w", f.path, err)
		}
		if count == 0 {
			continue
		}
		if stats.MessageCount == 0 || start < stats.Start {
			stats.Start = start
		}
		if end > stats.End {
			stats.End = end
		}
		stats.MessageCount += count
	}
	return stats, nil
}

// Close implements bag.Reader.
func (r *Reader) Close() error {
	var errs []error
	for _, f := range r.files {
		if err := f.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.files = nil
	return errors.Join(errs...)
}
