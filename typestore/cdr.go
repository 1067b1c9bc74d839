package typestore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CDR encapsulation identifiers (first two bytes of a serialized message).
const (
	cdrBE = 0x00
	cdrLE = 0x01

	encapsulationSize = 4

	maxDecodeDepth = 64
)

type cdrReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func newCDRReader(raw []byte) (*cdrReader, error) {
	if len(raw) < encapsulationSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the encapsulation header", ErrMalformed, len(raw))
	}
	r := &cdrReader{buf: raw[encapsulationSize:]}
	switch raw[1] {
	case cdrLE:
		r.order = binary.LittleEndian
	case cdrBE:
		r.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: unsupported encapsulation kind 0x%02x%02x", ErrMalformed, raw[0], raw[1])
	}
	return r, nil
}

// align advances to the next multiple of n relative to the payload start.
func (r *cdrReader) align(n int) {
	if m := r.pos % n; m != 0 {
		r.pos += n - m
	}
}

func (r *cdrReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.pos, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *cdrReader) uint32() (uint32, error) {
	r.align(4)
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *cdrReader) length() (int, error) {
	n, err := r.uint32()
	if err != nil {
		return 0, err
	}
	if int(n) > len(r.buf)-r.pos && n > 0 {
		// Every element needs at least one byte, so this cannot be satisfied.
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrMalformed, n, len(r.buf)-r.pos)
	}
	return int(n), nil
}

func (r *cdrReader) string() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	// Length includes the terminating NUL.
	if b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}

func (r *cdrReader) primitive(typ string) (any, error) {
	if typ == "string" {
		return r.string()
	}
	if typ == "wstring" {
		return nil, fmt.Errorf("%w: wstring is not supported", ErrMalformed)
	}

	size := primitiveSizes[typ]
	r.align(size)
	b, err := r.take(size)
	if err != nil {
		return nil, err
	}

	switch typ {
	case "bool":
		return b[0] != 0, nil
	case "byte", "char", "uint8":
		return b[0], nil
	case "int8":
		return int8(b[0]), nil
	case "int16":
		return int16(r.order.Uint16(b)), nil
	case "uint16":
		return r.order.Uint16(b), nil
	case "int32":
		return int32(r.order.Uint32(b)), nil
	case "uint32":
		return r.order.Uint32(b), nil
	case "int64":
		return int64(r.order.Uint64(b)), nil
	case "uint64":
		return r.order.Uint64(b), nil
	case "float32":
		return math.Float32frombits(r.order.Uint32(b)), nil
	case "float64":
		return math.Float64frombits(r.order.Uint64(b)), nil
	}
	return nil, fmt.Errorf("%w: unknown primitive %q", ErrMalformed, typ)
}

// primitiveArray decodes n primitives into a typed slice.
func (r *cdrReader) primitiveArray(typ string, n int) (any, error) {
	switch typ {
	case "byte", "char", "uint8":
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return out, nil
	case "float64":
		return readSlice[float64](r, typ, n)
	case "float32":
		return readSlice[float32](r, typ, n)
	case "int32":
		return readSlice[int32](r, typ, n)
	case "uint32":
		return readSlice[uint32](r, typ, n)
	case "int64":
		return readSlice[int64](r, typ, n)
	case "uint64":
		return readSlice[uint64](r, typ, n)
	case "int16":
		return readSlice[int16](r, typ, n)
	case "uint16":
		return readSlice[uint16](r, typ, n)
	case "int8":
		return readSlice[int8](r, typ, n)
	case "bool":
		return readSlice[bool](r, typ, n)
	case "string":
		return readSlice[string](r, typ, n)
	}
	return nil, fmt.Errorf("%w: unsupported array element %q", ErrMalformed, typ)
}

func readSlice[T any](r *cdrReader, typ string, n int) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := r.primitive(typ)
		if err != nil {
			return nil, err
		}
		out[i] = v.(T)
	}
	return out, nil
}
