package rosbag2

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/hugr-lab/robolake/internal/msgpack"
	"github.com/hugr-lab/robolake/typestore"
)

// ErrUnknownTopic is returned when writing to a topic that was not added.
var ErrUnknownTopic = errors.New("unknown topic")

const schema = `
CREATE TABLE schema(schema_version INTEGER PRIMARY KEY, ros_distro TEXT NOT NULL);
CREATE TABLE metadata(id INTEGER PRIMARY KEY, metadata_version INTEGER NOT NULL, metadata TEXT NOT NULL);
CREATE TABLE topics(
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	serialization_format TEXT NOT NULL,
	offered_qos_profiles TEXT NOT NULL DEFAULT '',
	type_description_hash TEXT NOT NULL DEFAULT ''
);
CREATE TABLE messages(
	id INTEGER PRIMARY KEY,
	topic_id INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX timestamp_idx ON messages (timestamp ASC);
CREATE TABLE message_definitions(
	id INTEGER PRIMARY KEY,
	topic_type TEXT NOT NULL,
	encoding TEXT NOT NULL,
	encoded_message_definition TEXT NOT NULL,
	type_description_hash TEXT NOT NULL DEFAULT ''
);
INSERT INTO schema(schema_version, ros_distro) VALUES (4, 'robolake');
`

type topicEntry struct {
	id      int64
	msgType string
	format  string
}

// Writer creates a single-file rosbag2 SQLite bag. It is used to produce
// sample and fixture bags; the result is readable by Open.
type Writer struct {
	db     *sql.DB
	types  *typestore.Store
	topics map[string]topicEntry
}

// Create creates a new .db3 bag at path. The file must not exist.
func Create(path string, types *typestore.Store) (*Writer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("bag %s already exists: %w", path, os.ErrExist)
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path, "rwc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bag schema: %w", err)
	}

	return &Writer{db: db, types: types, topics: make(map[string]topicEntry)}, nil
}

// AddTopic registers a topic. An empty format means CDR.
func (w *Writer) AddTopic(topic, msgType, format string) error {
	if format == "" {
		format = typestore.FormatCDR
	}
	res, err := w.db.Exec(
		`INSERT INTO topics(name, type, serialization_format) VALUES (?, ?, ?)`,
		topic, msgType, format,
	)
	if err != nil {
		return fmt.Errorf("failed to add topic %s: %w", topic, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.topics[topic] = topicEntry{id: id, msgType: msgType, format: format}
	return nil
}

// AddDefinition stores a message definition in the bag.
func (w *Writer) AddDefinition(msgType, text string) error {
	_, err := w.db.Exec(
		`INSERT INTO message_definitions(topic_type, encoding, encoded_message_definition) VALUES (?, ?, ?)`,
		msgType, definitionEncodingMsg, text,
	)
	if err != nil {
		return fmt.Errorf("failed to add definition %s: %w", msgType, err)
	}
	return nil
}

// Write stores already serialized message bytes.
func (w *Writer) Write(topic string, timestamp int64, data []byte) error {
	t, ok := w.topics[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if data == nil {
		data = []byte{}
	}
	_, err := w.db.Exec(
		`INSERT INTO messages(topic_id, timestamp, data) VALUES (?, ?, ?)`,
		t.id, timestamp, data,
	)
	if err != nil {
		return fmt.Errorf("failed to write message on %s: %w", topic, err)
	}
	return nil
}

// WriteMessage serializes values with the topic's serialization format and
// stores the result.
func (w *Writer) WriteMessage(topic string, timestamp int64, values map[string]any) error {
	t, ok := w.topics[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var (
		data []byte
		err  error
	)
	switch t.format {
	case typestore.FormatCDR:
		data, err = w.types.Encode(t.msgType, values)
	case typestore.FormatMsgpack:
		data, err = msgpack.Encode(values)
	default:
		err = fmt.Errorf("%w: %s", typestore.ErrUnsupportedFormat, t.format)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize message on %s: %w", topic, err)
	}
	return w.Write(topic, timestamp, data)
}

// Close closes the bag file.
func (w *Writer) Close() error {
	return w.db.Close()
}
