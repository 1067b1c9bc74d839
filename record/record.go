// Package record assembles output rows from recorded messages.
//
// A row carries stream metadata (topic, receive time, message type, optional
// header time) followed by the flattened message fields. Messages that cannot
// be deserialized still produce a row, with an error column instead of fields.
package record

import (
	"log/slog"

	"github.com/hugr-lab/robolake/bag"
	"github.com/hugr-lab/robolake/flatten"
)

// Metadata column names.
const (
	ColumnTopic           = "topic"
	ColumnTimestamp       = "timestamp_seconds"
	ColumnMessageType     = "message_type"
	ColumnHeaderTimestamp = "header_timestamp_seconds"
	ColumnError           = "error"

	// CollisionPrefix is prepended to flattened fields whose path equals a metadata column.
	CollisionPrefix = "msg."
)

// DeserializeFunc decodes raw message bytes of the given type.
type DeserializeFunc func(raw []byte, msgType string) (any, error)

// Row is one output row.
type Row struct {
	Topic            string
	TimestampSeconds float64
	MessageType      string

	// HeaderTimestampSeconds is set when the message has header.stamp.{sec,nanosec}.
	HeaderTimestampSeconds *float64

	// Error describes why the message could not be deserialized.
	// Only meaningful on degraded rows.
	Error string

	// Fields holds the flattened message. Nil on degraded rows.
	Fields *flatten.Record
}

// Degraded reports whether the row was produced for a message that failed to deserialize.
func (r Row) Degraded() bool {
	return r.Fields == nil
}

// Each calls fn for every column of the row in output order: metadata first,
// then flattened fields in flattening order.
func (r Row) Each(fn func(column string, value any)) {
	fn(ColumnTopic, r.Topic)
	fn(ColumnTimestamp, r.TimestampSeconds)
	fn(ColumnMessageType, r.MessageType)
	if r.HeaderTimestampSeconds != nil {
		fn(ColumnHeaderTimestamp, *r.HeaderTimestampSeconds)
	}
	if r.Degraded() {
		fn(ColumnError, r.Error)
		return
	}
	r.Fields.Each(func(path string, v flatten.Value) {
		if isMetadataColumn(path) {
			path = CollisionPrefix + path
		}
		fn(path, v.Interface())
	})
}

// Map returns the row as a column → value map.
func (r Row) Map() map[string]any {
	out := make(map[string]any)
	r.Each(func(column string, value any) {
		out[column] = value
	})
	return out
}

func isMetadataColumn(name string) bool {
	switch name {
	case ColumnTopic, ColumnTimestamp, ColumnMessageType, ColumnHeaderTimestamp, ColumnError:
		return true
	}
	return false
}

// Builder builds rows from raw messages.
type Builder struct {
	flattener *flatten.Flattener
	logger    *slog.Logger
}

// NewBuilder creates a Builder. A nil logger uses slog.Default().
func NewBuilder(flattener *flatten.Flattener, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{flattener: flattener, logger: logger}
}

// Build produces the row for one message. A deserialization failure yields a
// degraded row; it never fails the caller.
func (b *Builder) Build(conn bag.Connection, timestampNS int64, raw []byte, deserialize DeserializeFunc) Row {
	row := Row{
		Topic:            conn.Topic,
		TimestampSeconds: float64(timestampNS) / 1e9,
		MessageType:      conn.MsgType,
	}

	msg, err := deserialize(raw, conn.MsgType)
	if err != nil {
		b.logger.Warn("Failed to deserialize message",
			"topic", conn.Topic,
			"type", conn.MsgType,
			"timestamp", timestampNS,
			"error", err,
		)
		row.Error = err.Error()
		return row
	}

	if ts, ok := headerTimestamp(msg); ok {
		row.HeaderTimestampSeconds = &ts
	}
	row.Fields = b.flattener.Flatten(msg)
	return row
}

// headerTimestamp reads header.stamp.sec + header.stamp.nanosec/1e9.
func headerTimestamp(msg any) (float64, bool) {
	stamp, ok := flatten.Lookup(msg, "header", "stamp")
	if !ok {
		return 0, false
	}
	sec, ok := flatten.Lookup(stamp, "sec")
	if !ok {
		return 0, false
	}
	nanosec, ok := flatten.Lookup(stamp, "nanosec")
	if !ok {
		return 0, false
	}

	s, ok := toFloat(sec)
	if !ok {
		return 0, false
	}
	ns, ok := toFloat(nanosec)
	if !ok {
		return 0, false
	}
	return s + ns/1e9, true
}

func toFloat(v any) (float64, bool) {
	switch x := flatten.ScalarValue(v).Scalar().(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
