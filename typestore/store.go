// Package typestore decodes recorded ROS 2 messages without generated code.
//
// A Store is a per-session registry of message definitions. It starts with the
// common ROS 2 interfaces and accepts further definitions, typically read from
// the recording itself. Raw messages are decoded from CDR (or msgpack) into
// Message values that the flatten package can walk.
//
// Create one Store per conversion session and pass it to the reader:
//
//	types := typestore.New()
//	reader, err := rosbag2.Open(path, types, logger)
package typestore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hugr-lab/robolake/internal/msgpack"
)

// Serialization formats understood by DecodeFormat.
const (
	FormatCDR     = "cdr"
	FormatMsgpack = "msgpack"
)

var (
	// ErrUnknownType indicates a message type without a registered definition.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMalformed indicates raw message bytes that do not match the definition.
	ErrMalformed = errors.New("malformed message")

	// ErrMalformedDefinition indicates a .msg definition that cannot be parsed.
	ErrMalformedDefinition = errors.New("malformed message definition")

	// ErrUnsupportedFormat indicates a serialization format other than cdr or msgpack.
	ErrUnsupportedFormat = errors.New("unsupported serialization format")
)

// Store is a registry of message definitions.
// All methods are goroutine-safe.
type Store struct {
	mu   sync.RWMutex
	defs map[string]*MsgDef
}

// New creates a Store preloaded with the built-in definitions.
func New() *Store {
	s := NewEmpty()
	for name, text := range builtinDefinitions {
		if err := s.Register(name, text); err != nil {
			panic(fmt.Sprintf("typestore: builtin %s: %v", name, err))
		}
	}
	return s
}

// NewEmpty creates a Store without any definitions.
func NewEmpty() *Store {
	return &Store{defs: make(map[string]*MsgDef)}
}

// Register parses and stores a definition, replacing an existing one.
func (s *Store) Register(typeName, text string) error {
	def, err := ParseDefinition(typeName, text)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.defs[def.Name] = def
	s.mu.Unlock()
	return nil
}

// RegisterConcatenated registers a root definition followed by its
// dependencies, in the bundle format stored by rosbag2:
//
//	std_msgs/Header header
//	================================================================================
//	MSG: std_msgs/Header
//	builtin_interfaces/Time stamp
//	string frame_id
func (s *Store) RegisterConcatenated(rootType, text string) error {
	parts, err := splitConcatenated(rootType, text)
	if err != nil {
		return err
	}

	defs := make([]*MsgDef, 0, len(parts))
	for name, body := range parts {
		def, err := ParseDefinition(name, body)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}

	s.mu.Lock()
	for _, def := range defs {
		s.defs[def.Name] = def
	}
	s.mu.Unlock()
	return nil
}

// Lookup returns the definition of a type.
func (s *Store) Lookup(typeName string) (*MsgDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[NormalizeType(typeName)]
	return def, ok
}

// Types returns the registered type names, sorted.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.defs))
	for name := range s.defs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Decode decodes a CDR-serialized message.
func (s *Store) Decode(raw []byte, typeName string) (*Message, error) {
	r, err := newCDRReader(raw)
	if err != nil {
		return nil, err
	}
	return s.decodeMessage(r, NormalizeType(typeName), 0)
}

// DecodeFormat decodes raw bytes in the given serialization format.
// An empty format means CDR.
func (s *Store) DecodeFormat(raw []byte, typeName, format string) (any, error) {
	switch format {
	case "", FormatCDR:
		return s.Decode(raw, typeName)
	case FormatMsgpack:
		return msgpack.DecodeMap(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (s *Store) decodeMessage(r *cdrReader, typeName string, depth int) (*Message, error) {
	if depth > maxDecodeDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d at %s", ErrMalformedDefinition, maxDecodeDepth, typeName)
	}
	def, ok := s.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	msg := &Message{
		typeName: def.Name,
		names:    make([]string, len(def.Fields)),
		values:   make([]any, len(def.Fields)),
	}
	for i, f := range def.Fields {
		v, err := s.decodeField(r, f, depth)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}
		msg.names[i] = f.Name
		msg.values[i] = v
	}
	return msg, nil
}

func (s *Store) decodeField(r *cdrReader, f Field, depth int) (any, error) {
	n := f.Len
	switch f.Array {
	case NotArray:
		if f.IsPrimitive() {
			return r.primitive(f.Type)
		}
		return s.decodeMessage(r, f.Type, depth+1)
	case Sequence:
		var err error
		if n, err = r.length(); err != nil {
			return nil, err
		}
	}

	if f.IsPrimitive() {
		return r.primitiveArray(f.Type, n)
	}
	out := make([]*Message, n)
	for i := range out {
		m, err := s.decodeMessage(r, f.Type, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}
