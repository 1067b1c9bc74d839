// Package flatten reduces nested message values of unknown shape into flat
// records keyed by dotted field paths, e.g. "pose.position.x" or "values[2]".
//
// Short sequences are expanded element by element, long ones are stored once as
// a JSON document. Fields that cannot be read become error placeholders instead
// of aborting the record.
package flatten

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/hugr-lab/robolake/internal/recovery"
)

const (
	// DefaultMaxSequenceExpand is the longest sequence expanded into per-element paths.
	DefaultMaxSequenceExpand = 5

	// DefaultMaxDepth bounds recursion into nested values.
	DefaultMaxDepth = 64

	// RootPath is the path used when the flattened value itself is not structured.
	RootPath = "value"
)

// Options configures a Flattener.
type Options struct {
	// MaxSequenceExpand is the longest sequence expanded into <field>[i] paths.
	// Longer sequences are serialized to JSON at <field>.
	// OPTIONAL: 0 uses DefaultMaxSequenceExpand; negative disables expansion.
	MaxSequenceExpand int

	// MaxDepth bounds the nesting depth. Deeper values become error placeholders.
	// OPTIONAL: 0 uses DefaultMaxDepth.
	MaxDepth int

	// Logger for per-field failures (logged at debug level).
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Flattener turns structured messages into Records. It holds no per-call state
// and is safe for concurrent use.
type Flattener struct {
	maxExpand int
	maxDepth  int
	logger    *slog.Logger
}

// New creates a Flattener.
func New(opts Options) *Flattener {
	f := &Flattener{
		maxExpand: opts.MaxSequenceExpand,
		maxDepth:  opts.MaxDepth,
		logger:    opts.Logger,
	}
	if f.maxExpand == 0 {
		f.maxExpand = DefaultMaxSequenceExpand
	}
	if f.maxExpand < 0 {
		f.maxExpand = 0
	}
	if f.maxDepth <= 0 {
		f.maxDepth = DefaultMaxDepth
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Flatten flattens msg with an empty path prefix.
func (f *Flattener) Flatten(msg any) *Record {
	return f.FlattenPrefix(msg, "")
}

// FlattenPrefix flattens msg, prepending prefix (joined with ".") to every path.
// A msg that is not structured is stored as a single entry at prefix, or at
// RootPath when prefix is empty.
func (f *Flattener) FlattenPrefix(msg any, prefix string) *Record {
	w := &walker{
		f:        f,
		out:      NewRecord(),
		visiting: make(map[uintptr]struct{}),
	}

	sh, s, _ := classify(msg)
	if sh == shapeStructured {
		w.structured(msg, s, prefix, 0)
		return w.out
	}

	path := prefix
	if path == "" {
		path = RootPath
	}
	w.value(msg, path, 0)
	return w.out
}

type walker struct {
	f        *Flattener
	out      *Record
	visiting map[uintptr]struct{}
}

func (w *walker) value(v any, path string, depth int) {
	if depth > w.f.maxDepth {
		w.fail(path, fmt.Sprintf("maximum nesting depth %d exceeded", w.f.maxDepth))
		return
	}

	sh, s, scalar := classify(v)
	switch sh {
	case shapeScalar:
		w.out.Set(path, Value{kind: KindScalar, scalar: scalar})
	case shapeSequence:
		w.sequence(v, path, depth)
	case shapeStructured:
		w.structured(v, s, path, depth)
	default:
		w.out.Set(path, ScalarValue(fmt.Sprint(v)))
	}
}

func (w *walker) structured(v any, s Structured, prefix string, depth int) {
	if id, ok := identity(v); ok {
		if _, seen := w.visiting[id]; seen {
			w.fail(rootIfEmpty(prefix), "reference cycle detected")
			return
		}
		w.visiting[id] = struct{}{}
		defer delete(w.visiting, id)
	}

	names, err := recovery.RecoverToValue(w.f.logger, rootIfEmpty(prefix), func() ([]string, error) {
		return s.FieldNames(), nil
	})
	if err != nil {
		w.fail(rootIfEmpty(prefix), err.Error())
		return
	}

	for _, name := range names {
		path := join(prefix, name)
		err := recovery.RecoverToError(w.f.logger, path, func() error {
			fv, err := s.Field(name)
			if err != nil {
				return err
			}
			w.value(fv, path, depth+1)
			return nil
		})
		if err != nil {
			w.fail(path, err.Error())
		}
	}
}

func (w *walker) sequence(v any, path string, depth int) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	n := rv.Len()
	if n == 0 {
		return
	}
	if n > w.f.maxExpand {
		w.out.Set(path, w.encode(v, path))
		return
	}

	for i := 0; i < n; i++ {
		elemPath := path + "[" + strconv.Itoa(i) + "]"
		elem := rv.Index(i).Interface()

		sh, _, scalar := classify(elem)
		switch sh {
		case shapeScalar:
			w.out.Set(elemPath, IndexedValue(i, Value{kind: KindScalar, scalar: scalar}))
		case shapeStructured:
			w.value(elem, elemPath, depth+1)
		case shapeSequence:
			w.out.Set(elemPath, IndexedValue(i, w.encode(elem, elemPath)))
		default:
			w.out.Set(elemPath, IndexedValue(i, ScalarValue(fmt.Sprint(elem))))
		}
	}
}

func (w *walker) encode(v any, path string) Value {
	data, err := recovery.RecoverToValue(w.f.logger, path, func() ([]byte, error) {
		return encodeJSON(v, w.f.maxDepth)
	})
	if err != nil {
		return ErrorValue(fmt.Sprintf("json encoding failed: %v", err))
	}
	return JSONValue(string(data))
}

func (w *walker) fail(path, description string) {
	w.f.logger.Debug("Field extraction failed", "path", path, "error", description)
	w.out.Set(path, ErrorValue(description))
}

// identity returns a stable address for reference-like values so cycles can be detected.
func identity(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func rootIfEmpty(path string) string {
	if path == "" {
		return RootPath
	}
	return path
}
