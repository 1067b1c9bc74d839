// Package columnar holds row batches in column-oriented form and converts them
// to and from Arrow records and parquet files.
//
// A Frame has a sparse schema: every row may carry a different set of
// columns. The frame's column set is the union of all columns seen, in first
// appearance order, and cells of columns a row did not carry are null.
package columnar

import (
	"slices"

	"github.com/hugr-lab/robolake/record"
)

// Frame is a column-oriented batch of rows.
// Cell values are nil, bool, int64, float64 or string.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]any
	rows  int
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// FromRows builds a frame from output rows, preserving row order and the
// column order of first appearance.
func FromRows(rows []record.Row) *Frame {
	f := NewFrame()
	var (
		cols []string
		vals []any
	)
	for _, r := range rows {
		cols, vals = cols[:0], vals[:0]
		r.Each(func(column string, value any) {
			cols = append(cols, column)
			vals = append(vals, value)
		})
		f.AppendRow(cols, vals)
	}
	return f
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.rows }

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int { return len(f.names) }

// ColumnNames returns the column names in order.
func (f *Frame) ColumnNames() []string {
	return slices.Clone(f.names)
}

// Column returns the cells of the named column.
func (f *Frame) Column(name string) ([]any, bool) {
	j, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[j], true
}

// Value returns the cell at row i, column j.
func (f *Frame) Value(i, j int) any {
	return f.cols[j][i]
}

// Row returns row i as a column → value map, nulls included.
func (f *Frame) Row(i int) map[string]any {
	out := make(map[string]any, len(f.names))
	for j, name := range f.names {
		out[name] = f.cols[j][i]
	}
	return out
}

// AppendRow appends one row given as parallel column/value slices. Unknown
// columns are added and back-filled with nulls; columns the row does not
// mention are null for this row. A column repeated within the row keeps the
// last value.
func (f *Frame) AppendRow(columns []string, values []any) {
	for i, name := range columns {
		j := f.column(name)
		v := normalize(values[i])
		if len(f.cols[j]) == f.rows {
			f.cols[j] = append(f.cols[j], v)
		} else {
			f.cols[j][f.rows] = v
		}
	}
	f.rows++
	f.pad()
}

// Append appends all rows of o. The resulting column set is the union of
// both frames; columns are ordered with f's columns first.
func (f *Frame) Append(o *Frame) {
	if o == nil {
		return
	}
	for j, name := range o.names {
		k := f.column(name)
		f.cols[k] = append(f.cols[k], o.cols[j]...)
	}
	f.rows += o.rows
	f.pad()
}

// column returns the index of name, adding a null-filled column if needed.
func (f *Frame) column(name string) int {
	if j, ok := f.index[name]; ok {
		return j
	}
	j := len(f.names)
	f.names = append(f.names, name)
	f.index[name] = j
	f.cols = append(f.cols, make([]any, f.rows, f.rows+1))
	return j
}

func (f *Frame) addColumn(name string, cells []any) {
	j := f.column(name)
	f.cols[j] = cells
}

func (f *Frame) pad() {
	for j, col := range f.cols {
		for len(col) < f.rows {
			col = append(col, nil)
		}
		f.cols[j] = col
	}
}
