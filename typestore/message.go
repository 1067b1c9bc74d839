package typestore

import (
	"fmt"

	"github.com/hugr-lab/robolake/flatten"
)

// Message is a decoded message. It implements flatten.Structured.
type Message struct {
	typeName string
	names    []string
	values   []any
}

// Type returns the fully qualified message type.
func (m *Message) Type() string { return m.typeName }

// FieldNames implements flatten.Structured.
func (m *Message) FieldNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Field implements flatten.Structured.
func (m *Message) Field(name string) (any, error) {
	for i, n := range m.names {
		if n == name {
			return m.values[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", flatten.ErrNoField, m.typeName, name)
}

// MarshalJSON encodes the message as an object with fields in declaration order.
func (m *Message) MarshalJSON() ([]byte, error) {
	return flatten.EncodeJSON(m)
}

var _ flatten.Structured = (*Message)(nil)
