package flatten

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Structured is implemented by message values whose fields can be enumerated.
// Message library adapters implement it; the Flattener never depends on
// concrete message types.
type Structured interface {
	// FieldNames returns the field names in declaration order.
	FieldNames() []string

	// Field returns the value of the named field.
	Field(name string) (any, error)
}

// ErrNoField is returned when a field name is not part of a structured value.
var ErrNoField = errors.New("no such field")

// TagName is the struct tag consulted for field names of plain Go structs.
// `msg:"-"` hides a field.
const TagName = "msg"

type shape uint8

const (
	shapeScalar shape = iota
	shapeSequence
	shapeStructured
	shapeOpaque
)

// classify decides how a value is flattened. Structured values are recognised by
// three conventions, in order: the Structured interface, maps keyed by strings,
// and Go structs with at least one exported field. For scalars the normalized
// scalar is returned as well.
func classify(v any) (shape, Structured, any) {
	if s, ok := v.(Structured); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return shapeScalar, nil, nil
		}
		return shapeStructured, s, nil
	}
	if sc, ok := normalizeScalar(v); ok {
		return shapeScalar, nil, sc
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return shapeScalar, nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return shapeSequence, nil, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return shapeStructured, mapFields{rv: rv}, nil
		}
	case reflect.Struct:
		if fields := structFieldsOf(rv.Type()); len(fields.names) > 0 {
			return shapeStructured, structValue{rv: rv, fields: fields}, nil
		}
	}
	if sc, ok := normalizeScalar(rv.Interface()); ok {
		return shapeScalar, nil, sc
	}
	return shapeOpaque, nil, nil
}

// AsStructured returns v as a Structured value if any supported convention applies.
func AsStructured(v any) (Structured, bool) {
	sh, s, _ := classify(v)
	return s, sh == shapeStructured
}

// Lookup follows a chain of field names through nested structured values.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, name := range path {
		s, ok := AsStructured(cur)
		if !ok {
			return nil, false
		}
		next, err := s.Field(name)
		if err != nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// mapFields adapts a map with string keys. Keys are enumerated in sorted order.
type mapFields struct {
	rv reflect.Value
}

func (m mapFields) FieldNames() []string {
	names := make([]string, 0, m.rv.Len())
	iter := m.rv.MapRange()
	for iter.Next() {
		names = append(names, iter.Key().String())
	}
	slices.Sort(names)
	return names
}

func (m mapFields) Field(name string) (any, error) {
	key := reflect.ValueOf(name).Convert(m.rv.Type().Key())
	v := m.rv.MapIndex(key)
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	return v.Interface(), nil
}

type structFields struct {
	names []string
	index map[string][]int
}

var structCache sync.Map // reflect.Type -> structFields

func structFieldsOf(t reflect.Type) structFields {
	if cached, ok := structCache.Load(t); ok {
		return cached.(structFields)
	}

	fields := structFields{index: make(map[string][]int)}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(TagName); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if _, dup := fields.index[name]; dup {
			continue
		}
		fields.names = append(fields.names, name)
		fields.index[name] = f.Index
	}

	structCache.Store(t, fields)
	return fields
}

// structValue adapts a plain Go struct through its exported fields.
type structValue struct {
	rv     reflect.Value
	fields structFields
}

func (s structValue) FieldNames() []string {
	return slices.Clone(s.fields.names)
}

func (s structValue) Field(name string) (any, error) {
	idx, ok := s.fields.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	f, err := s.rv.FieldByIndexErr(idx)
	if err != nil {
		return nil, err
	}
	return f.Interface(), nil
}
