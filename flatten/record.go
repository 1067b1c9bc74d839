package flatten

// Record is an ordered mapping from field path to Value.
// Paths are unique; setting an existing path replaces its value in place.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores v at path.
func (r *Record) Set(path string, v Value) {
	if _, ok := r.values[path]; !ok {
		r.keys = append(r.keys, path)
	}
	r.values[path] = v
}

// Get returns the value stored at path.
func (r *Record) Get(path string) (Value, bool) {
	v, ok := r.values[path]
	return v, ok
}

// Len returns the number of paths.
func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns the paths in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Each calls fn for every path in insertion order.
func (r *Record) Each(fn func(path string, v Value)) {
	for _, k := range r.keys {
		fn(k, r.values[k])
	}
}

// Map returns the record as column values (see Value.Interface).
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = r.values[k].Interface()
	}
	return out
}

// Equal reports whether both records hold the same paths in the same order with equal values.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || !r.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}
