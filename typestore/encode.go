package typestore

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/hugr-lab/robolake/flatten"
)

type cdrWriter struct {
	buf []byte
}

func (w *cdrWriter) align(n int) {
	// Alignment is relative to the payload, which starts after the 4-byte header.
	for (len(w.buf)-encapsulationSize)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Encode serializes values as a little-endian CDR message of the given type.
// Nested messages may be given as map[string]any or any flatten.Structured
// value; sequences as any slice or array. Missing fields encode as zero values.
func (s *Store) Encode(typeName string, values map[string]any) ([]byte, error) {
	w := &cdrWriter{buf: []byte{0x00, cdrLE, 0x00, 0x00}}
	if err := s.encodeMessage(w, NormalizeType(typeName), values, 0); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func (s *Store) encodeMessage(w *cdrWriter, typeName string, value any, depth int) error {
	if depth > maxDecodeDepth {
		return fmt.Errorf("%w: nesting deeper than %d at %s", ErrMalformedDefinition, maxDecodeDepth, typeName)
	}
	def, ok := s.Lookup(typeName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	var fields flatten.Structured
	if value != nil {
		st, ok := flatten.AsStructured(value)
		if !ok {
			return fmt.Errorf("%s: cannot encode %T as a message", typeName, value)
		}
		fields = st
	}

	for _, f := range def.Fields {
		var v any
		if fields != nil {
			v, _ = fields.Field(f.Name)
		}
		if err := s.encodeField(w, f, v, depth); err != nil {
			return fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}
	}
	return nil
}

func (s *Store) encodeField(w *cdrWriter, f Field, v any, depth int) error {
	if f.Array == NotArray {
		if f.IsPrimitive() {
			return writePrimitive(w, f.Type, v)
		}
		return s.encodeMessage(w, f.Type, v, depth+1)
	}

	var items reflect.Value
	n := 0
	if v != nil {
		items = reflect.ValueOf(v)
		if items.Kind() != reflect.Slice && items.Kind() != reflect.Array {
			return fmt.Errorf("expected a sequence, got %T", v)
		}
		n = items.Len()
	}

	switch f.Array {
	case Sequence:
		w.align(4)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(n))
	case FixedArray:
		if n > f.Len {
			return fmt.Errorf("%d elements for fixed array of %d", n, f.Len)
		}
	}

	count := n
	if f.Array == FixedArray {
		count = f.Len
	}
	for i := 0; i < count; i++ {
		var elem any
		if i < n {
			elem = items.Index(i).Interface()
		}
		var err error
		if f.IsPrimitive() {
			err = writePrimitive(w, f.Type, elem)
		} else {
			err = s.encodeMessage(w, f.Type, elem, depth+1)
		}
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func writePrimitive(w *cdrWriter, typ string, v any) error {
	sc := flatten.ScalarValue(v).Scalar()

	if typ == "string" {
		s, _ := sc.(string)
		w.align(4)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(s)+1))
		w.buf = append(w.buf, s...)
		w.buf = append(w.buf, 0)
		return nil
	}

	size, ok := primitiveSizes[typ]
	if !ok || size == 0 {
		return fmt.Errorf("cannot encode primitive %q", typ)
	}
	w.align(size)

	switch typ {
	case "bool":
		b, _ := sc.(bool)
		if b {
			w.buf = append(w.buf, 1)
		} else {
			w.buf = append(w.buf, 0)
		}
	case "float32":
		w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(float32(asFloat(sc))))
	case "float64":
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(asFloat(sc)))
	default:
		i := uint64(asInt(sc))
		switch size {
		case 1:
			w.buf = append(w.buf, byte(i))
		case 2:
			w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(i))
		case 4:
			w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(i))
		case 8:
			w.buf = binary.LittleEndian.AppendUint64(w.buf, i)
		}
	}
	return nil
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
