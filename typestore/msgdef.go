package typestore

import (
	"fmt"
	"strconv"
	"strings"
)

// ArrayKind describes how a field repeats.
type ArrayKind uint8

const (
	// NotArray is a single value.
	NotArray ArrayKind = iota
	// FixedArray is T[N]; no length prefix on the wire.
	FixedArray
	// Sequence is T[] or T[<=N]; u32 length prefix on the wire.
	Sequence
)

// Field is one field of a message definition.
type Field struct {
	Name string

	// Type is a primitive name ("float64", "string", ...) or a fully
	// qualified message type ("geometry_msgs/msg/Point").
	Type string

	Array ArrayKind

	// Len is the element count of fixed arrays.
	Len int
}

// IsPrimitive reports whether the field's element type is a primitive.
func (f Field) IsPrimitive() bool {
	_, ok := primitiveSizes[f.Type]
	return ok
}

// MsgDef is a parsed message definition.
type MsgDef struct {
	Name   string
	Fields []Field
}

// primitiveSizes lists wire sizes of primitive types. Strings are length-prefixed (0).
var primitiveSizes = map[string]int{
	"bool":    1,
	"byte":    1,
	"char":    1,
	"int8":    1,
	"uint8":   1,
	"int16":   2,
	"uint16":  2,
	"int32":   4,
	"uint32":  4,
	"int64":   8,
	"uint64":  8,
	"float32": 4,
	"float64": 8,
	"string":  0,
	"wstring": 0,
}

// NormalizeType converts "pkg/Type" to "pkg/msg/Type". Names that are already
// fully qualified are returned unchanged.
func NormalizeType(name string) string {
	parts := strings.Split(name, "/")
	if len(parts) == 2 {
		return parts[0] + "/msg/" + parts[1]
	}
	return name
}

// packageOf returns "pkg" for "pkg/msg/Type".
func packageOf(typeName string) string {
	pkg, _, _ := strings.Cut(typeName, "/")
	return pkg
}

// ParseDefinition parses a .msg definition of the given fully qualified type.
// Constants are skipped and default values ignored.
func ParseDefinition(typeName, text string) (*MsgDef, error) {
	typeName = NormalizeType(typeName)
	def := &MsgDef{Name: typeName}
	pkg := packageOf(typeName)

	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		typ, rest, ok := cutSpace(line)
		if !ok {
			return nil, fmt.Errorf("%w: %s line %d: missing field name", ErrMalformedDefinition, typeName, lineNo+1)
		}
		name, _, _ := cutSpace(rest)

		// Constants: "TYPE NAME=VALUE" or "TYPE NAME = VALUE".
		if strings.Contains(name, "=") || strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(rest, name)), "=") {
			continue
		}
		if i := strings.Index(name, "#"); i >= 0 {
			name = name[:i]
		}
		if name == "" {
			return nil, fmt.Errorf("%w: %s line %d: missing field name", ErrMalformedDefinition, typeName, lineNo+1)
		}

		field, err := parseFieldType(typ, pkg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedDefinition, typeName, lineNo+1, err)
		}
		field.Name = name
		def.Fields = append(def.Fields, field)
	}

	return def, nil
}

func parseFieldType(typ, pkg string) (Field, error) {
	var f Field

	if open := strings.Index(typ, "["); open >= 0 {
		if !strings.HasSuffix(typ, "]") {
			return f, fmt.Errorf("bad array type %q", typ)
		}
		bound := typ[open+1 : len(typ)-1]
		typ = typ[:open]
		switch {
		case bound == "" || strings.HasPrefix(bound, "<="):
			f.Array = Sequence
		default:
			n, err := strconv.Atoi(bound)
			if err != nil || n < 0 {
				return f, fmt.Errorf("bad array length %q", bound)
			}
			f.Array = FixedArray
			f.Len = n
		}
	}

	// Bounded strings: string<=N.
	if base, _, ok := strings.Cut(typ, "<="); ok {
		typ = base
	}

	f.Type = resolveType(typ, pkg)
	return f, nil
}

func resolveType(typ, pkg string) string {
	if _, ok := primitiveSizes[typ]; ok {
		return typ
	}
	switch typ {
	case "Header":
		return "std_msgs/msg/Header"
	case "time":
		return "builtin_interfaces/msg/Time"
	case "duration":
		return "builtin_interfaces/msg/Duration"
	}
	if !strings.Contains(typ, "/") {
		return pkg + "/msg/" + typ
	}
	return NormalizeType(typ)
}

func cutSpace(s string) (before, after string, found bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return s[:i], strings.TrimSpace(s[i+1:]), true
}

// splitConcatenated splits a definition bundle made of a root definition
// followed by dependencies, each introduced by a line of "=" and "MSG: pkg/Type".
func splitConcatenated(rootType, text string) (map[string]string, error) {
	out := make(map[string]string)
	current := NormalizeType(rootType)
	var body strings.Builder

	flush := func() {
		out[current] = body.String()
		body.Reset()
	}

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "===") && strings.Trim(line, "=") == "" {
			flush()
			if i+1 >= len(lines) {
				return nil, fmt.Errorf("%w: separator without MSG line", ErrMalformedDefinition)
			}
			header := strings.TrimSpace(lines[i+1])
			name, ok := strings.CutPrefix(header, "MSG:")
			if !ok {
				return nil, fmt.Errorf("%w: expected MSG line, got %q", ErrMalformedDefinition, header)
			}
			current = NormalizeType(strings.TrimSpace(name))
			i++
			continue
		}
		body.WriteString(lines[i])
		body.WriteByte('\n')
	}
	flush()
	return out, nil
}
