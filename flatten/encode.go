package flatten

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	json "github.com/goccy/go-json"
)

// EncodeJSON encodes a message value with the same conventions the Flattener
// uses for field names: structured values become objects with fields in
// declaration order, byte sequences become arrays of numbers and non-finite
// floats become null. Nesting is bounded by DefaultMaxDepth.
func EncodeJSON(v any) ([]byte, error) {
	return encodeJSON(v, DefaultMaxDepth)
}

func encodeJSON(v any, maxDepth int) ([]byte, error) {
	e := &jsonEncoder{maxDepth: maxDepth, visiting: make(map[uintptr]struct{})}
	if err := e.encode(v, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type jsonEncoder struct {
	buf      bytes.Buffer
	maxDepth int
	visiting map[uintptr]struct{}
}

func (e *jsonEncoder) encode(v any, depth int) error {
	if depth > e.maxDepth {
		return fmt.Errorf("maximum nesting depth %d exceeded", e.maxDepth)
	}

	sh, s, scalar := classify(v)
	switch sh {
	case shapeScalar:
		return e.scalar(scalar)
	case shapeSequence:
		return e.sequence(v, depth)
	case shapeStructured:
		return e.object(v, s, depth)
	default:
		return e.scalar(fmt.Sprint(v))
	}
}

func (e *jsonEncoder) scalar(v any) error {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		v = nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.buf.Write(data)
	return nil
}

func (e *jsonEncoder) sequence(v any, depth int) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	e.buf.WriteByte('[')
	defer e.buf.WriteByte(']')

	if rv.Type().Elem().Kind() == reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.buf.WriteString(strconv.FormatUint(rv.Index(i).Uint(), 10))
		}
		return nil
	}

	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(rv.Index(i).Interface(), depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (e *jsonEncoder) object(v any, s Structured, depth int) error {
	if id, ok := identity(v); ok {
		if _, seen := e.visiting[id]; seen {
			return errors.New("reference cycle detected")
		}
		e.visiting[id] = struct{}{}
		defer delete(e.visiting, id)
	}

	e.buf.WriteByte('{')
	for i, name := range s.FieldNames() {
		fv, err := s.Field(name)
		if err != nil {
			return err
		}
		if i > 0 {
			e.buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		e.buf.Write(key)
		e.buf.WriteByte(':')
		if err := e.encode(fv, depth+1); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}
