// Package bag defines the boundary to message-recording readers.
//
// A recording exposes a set of connections (topic + message type) and an
// ordered stream of raw messages. Readers also know how to deserialize a raw
// message into a structured value, usually through a per-session type store.
package bag

import (
	"context"
	"errors"
	"slices"
)

// ErrStop may be returned from a Messages callback to end iteration early
// without reporting an error.
var ErrStop = errors.New("stop iteration")

// Connection binds a topic to a message type within one recording.
type Connection struct {
	// ID is unique within the reader that produced the connection.
	ID int

	// Topic is the logical channel name, e.g. "/imu/data".
	Topic string

	// MsgType is the message type identifier, e.g. "sensor_msgs/msg/Imu".
	MsgType string

	// SerializationFormat names the wire format of raw messages ("cdr", "msgpack").
	SerializationFormat string

	// MessageCount is the number of messages recorded on this connection.
	MessageCount int64
}

// Message is one raw recorded message.
type Message struct {
	Connection Connection

	// Timestamp is the receive time in nanoseconds since the Unix epoch.
	Timestamp int64

	Data []byte
}

// Stats summarizes a recording.
type Stats struct {
	MessageCount int64

	// Start and End are the first and last message timestamps in nanoseconds.
	// Both are zero for a recording without messages.
	Start int64
	End   int64
}

// Reader is implemented by recording readers.
// Readers are not safe for concurrent use.
type Reader interface {
	// Connections returns all connections in a stable order.
	Connections() []Connection

	// Messages calls fn for every message on the given connections in
	// recording order. A nil conns selects every connection; an empty
	// non-nil slice selects none.
	Messages(ctx context.Context, conns []Connection, fn func(Message) error) error

	// Deserialize decodes raw bytes of the given message type into a structured value.
	Deserialize(raw []byte, msgType string) (any, error)

	// Stats returns message count and time range.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// FilterTopics returns the connections whose topic is listed. An empty topic
// list returns conns unchanged; otherwise the result is never nil.
func FilterTopics(conns []Connection, topics []string) []Connection {
	if len(topics) == 0 {
		return conns
	}
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		if slices.Contains(topics, c.Topic) {
			out = append(out, c)
		}
	}
	return out
}

// Topics returns the topic names of conns without duplicates, in order.
func Topics(conns []Connection) []string {
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		if !slices.Contains(out, c.Topic) {
			out = append(out, c.Topic)
		}
	}
	return out
}
