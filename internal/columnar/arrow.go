package columnar

import (
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ColumnType returns the Arrow type a column is stored as.
//
// Booleans, integers, floats and strings map to their Arrow counterparts.
// A column holding both integers and floats is float64; any other mix, and a
// column with no non-null value, is string.
func (f *Frame) ColumnType(name string) arrow.DataType {
	col, ok := f.Column(name)
	if !ok {
		return nil
	}
	return inferType(col)
}

// Schema returns the Arrow schema of the frame. All fields are nullable.
func (f *Frame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(f.names))
	for j, name := range f.names {
		fields[j] = arrow.Field{Name: name, Type: inferType(f.cols[j]), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Record converts the frame into a single Arrow record batch.
// The caller must release the returned record.
func (f *Frame) Record(mem memory.Allocator) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	builder := array.NewRecordBuilder(mem, f.Schema())
	defer builder.Release()

	for j, col := range f.cols {
		if err := appendValues(builder.Field(j), col); err != nil {
			return nil, fmt.Errorf("column %q: %w", f.names[j], err)
		}
	}
	return builder.NewRecordBatch(), nil
}

// FromTable reads an Arrow table into a frame.
func FromTable(tbl arrow.Table) *Frame {
	f := NewFrame()
	schema := tbl.Schema()
	for i := 0; i < int(tbl.NumCols()); i++ {
		cells := make([]any, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for k := 0; k < chunk.Len(); k++ {
				cells = append(cells, valueAt(chunk, k))
			}
		}
		f.addColumn(schema.Field(i).Name, cells)
	}
	f.rows = int(tbl.NumRows())
	f.pad()
	return f
}

func inferType(col []any) arrow.DataType {
	var hasBool, hasInt, hasFloat, hasString bool
	for _, v := range col {
		switch v.(type) {
		case bool:
			hasBool = true
		case int64:
			hasInt = true
		case float64:
			hasFloat = true
		case string:
			hasString = true
		}
	}

	switch {
	case hasString, hasBool && (hasInt || hasFloat):
		return arrow.BinaryTypes.String
	case hasBool:
		return arrow.FixedWidthTypes.Boolean
	case hasFloat:
		return arrow.PrimitiveTypes.Float64
	case hasInt:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValues(b array.Builder, col []any) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		for _, v := range col {
			if x, ok := v.(bool); ok {
				b.Append(x)
			} else {
				b.AppendNull()
			}
		}
	case *array.Int64Builder:
		for _, v := range col {
			if x, ok := v.(int64); ok {
				b.Append(x)
			} else {
				b.AppendNull()
			}
		}
	case *array.Float64Builder:
		for _, v := range col {
			switch x := v.(type) {
			case float64:
				b.Append(x)
			case int64:
				b.Append(float64(x))
			default:
				b.AppendNull()
			}
		}
	case *array.StringBuilder:
		for _, v := range col {
			if v == nil {
				b.AppendNull()
			} else {
				b.Append(FormatValue(v))
			}
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// normalize maps a cell value onto nil, bool, int64, float64 or string.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func uintValue(x uint64) any {
	if x > math.MaxInt64 {
		return float64(x)
	}
	return int64(x)
}

func valueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return uintValue(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	default:
		return arr.ValueStr(i)
	}
}
