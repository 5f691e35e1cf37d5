package record

// Map is an order-preserving string-keyed association used for both
// Metadata and Body. Keys within a Map must be unique; Set overwrites an
// existing key in place so insertion order survives updates as the spec's
// round-trip invariant requires.
type Map struct {
	keys   []string
	values []Value
	index  map[string]int
}

// NewMap returns an empty Map ready for use.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Set inserts or overwrites key with value, preserving the position of an
// existing key.
func (m *Map) Set(key string, v Value) {
	if i, ok := m.index[key]; ok {
		m.values[i] = v
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.index[key]
	if !ok {
		return Value{}, false
	}
	return m.values[i], true
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Range calls fn for every entry in insertion order, stopping early if fn
// returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if !fn(k, m.values[i]) {
			return
		}
	}
}

// Resolve walks path left to right into nested maps, returning the leaf
// value found at the end of the path. Per the grep matcher's contract,
// failure to resolve (a missing key at any step, or a non-map intermediate
// value) reports ok=false.
func (m *Map) Resolve(path []string) (Value, bool) {
	cur := m
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, ok := v.AsMap()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return Value{}, false
}

// Clone deep-copies the map, including every contained Value.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		keys:   append([]string(nil), m.keys...),
		values: make([]Value, len(m.values)),
		index:  make(map[string]int, len(m.index)),
	}
	for k, i := range m.index {
		out.index[k] = i
	}
	for i, v := range m.values {
		out.values[i] = v.Clone()
	}
	return out
}

// Equal reports deep, order-sensitive equality between two maps.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !Equal(m.values[i], other.values[i]) {
			return false
		}
	}
	return true
}
