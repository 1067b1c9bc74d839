package flatten

import (
	"fmt"
	"math"
	"reflect"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	// KindScalar holds a number, string, bool or null.
	KindScalar Kind = iota
	// KindIndexed holds one element of a short sequence together with its position.
	KindIndexed
	// KindJSON holds a whole sequence serialized as a JSON document.
	KindJSON
	// KindError holds the description of a field that could not be extracted.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindIndexed:
		return "indexed"
	case KindJSON:
		return "json"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a flattened field value. Exactly one variant is active, selected by Kind.
// The zero Value is a null scalar.
type Value struct {
	kind   Kind
	scalar any
	index  int
	elem   *Value
	text   string
}

// ScalarValue returns a scalar Value. Integers of every width are widened to
// int64 (uint64 values above math.MaxInt64 become float64), float32 to float64.
// Values that are not scalars are stringified.
func ScalarValue(v any) Value {
	s, ok := normalizeScalar(v)
	if !ok {
		s = fmt.Sprint(v)
	}
	return Value{kind: KindScalar, scalar: s}
}

// IndexedValue returns an element of a sequence at position index.
func IndexedValue(index int, elem Value) Value {
	return Value{kind: KindIndexed, index: index, elem: &elem}
}

// JSONValue returns a Value holding a serialized JSON document.
func JSONValue(doc string) Value {
	return Value{kind: KindJSON, text: doc}
}

// ErrorValue returns a placeholder for a field whose extraction failed.
func ErrorValue(description string) Value {
	return Value{kind: KindError, text: description}
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// Scalar returns the scalar payload (nil, bool, int64, float64 or string).
// It is nil for non-scalar variants.
func (v Value) Scalar() any { return v.scalar }

// Index returns the element position of an indexed value.
func (v Value) Index() int { return v.index }

// Elem returns the wrapped element of an indexed value.
func (v Value) Elem() Value {
	if v.elem == nil {
		return Value{}
	}
	return *v.elem
}

// Text returns the JSON document or the error description.
func (v Value) Text() string { return v.text }

// IsError reports whether v (or the element it wraps) is an error placeholder.
func (v Value) IsError() bool {
	if v.kind == KindIndexed {
		return v.Elem().IsError()
	}
	return v.kind == KindError
}

// Interface returns the column value stored for v in a row.
// Error placeholders are rendered as "<error: description>".
func (v Value) Interface() any {
	switch v.kind {
	case KindIndexed:
		return v.Elem().Interface()
	case KindJSON:
		return v.text
	case KindError:
		return "<error: " + v.text + ">"
	default:
		return v.scalar
	}
}

// Equal reports whether two values carry the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindIndexed:
		return v.index == o.index && v.Elem().Equal(o.Elem())
	case KindJSON, KindError:
		return v.text == o.text
	default:
		a, aok := v.scalar.(float64)
		b, bok := o.scalar.(float64)
		if aok && bok {
			return a == b || (math.IsNaN(a) && math.IsNaN(b))
		}
		return v.scalar == o.scalar
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindIndexed:
		return fmt.Sprintf("[%d]%s", v.index, v.Elem())
	case KindJSON:
		return "json(" + v.text + ")"
	case KindError:
		return "error(" + v.text + ")"
	default:
		return fmt.Sprintf("%v", v.scalar)
	}
}

// normalizeScalar reduces a Go scalar of any width or named type to one of
// nil, bool, int64, float64, string.
func normalizeScalar(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case bool, int64, float64, string:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float32:
		return float64(x), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), true
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
	}
	return nil, false
}
