package config

// FrozenMapping is a read-only view over a mapping-typed value read out of
// a DeepChainMap. Nested reads return frozen views recursively. Frozen
// views are not hashable.
type FrozenMapping struct {
	data map[string]any
}

// Get returns the (possibly frozen) value at key, recursively freezing
// mapping and sequence values.
func (f FrozenMapping) Get(key string) (any, bool) {
	v, ok := f.data[key]
	if !ok {
		return nil, false
	}
	return freeze(v), true
}

// Keys returns the mapping's keys in no particular order.
func (f FrozenMapping) Keys() []string {
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of keys.
func (f FrozenMapping) Len() int { return len(f.data) }

// Set always fails: FrozenMapping is read-only.
func (f FrozenMapping) Set(string, any) error { return ErrFrozen }

// FrozenSequence is a read-only view over a sequence-typed value.
type FrozenSequence struct {
	data []any
}

// Get returns the (possibly frozen) element at i.
func (f FrozenSequence) Get(i int) (any, bool) {
	if i < 0 || i >= len(f.data) {
		return nil, false
	}
	return freeze(f.data[i]), true
}

// Len returns the number of elements.
func (f FrozenSequence) Len() int { return len(f.data) }

// Set always fails: FrozenSequence is read-only.
func (f FrozenSequence) Set(int, any) error { return ErrFrozen }

// freeze wraps mapping and sequence values recursively; scalar values pass
// through unchanged.
func freeze(v any) any {
	switch t := v.(type) {
	case map[string]any:
		frozenMap := make(map[string]any, len(t))
		for k, inner := range t {
			frozenMap[k] = inner
		}
		return FrozenMapping{data: frozenMap}
	case []any:
		frozenSlice := make([]any, len(t))
		copy(frozenSlice, t)
		return FrozenSequence{data: frozenSlice}
	case FrozenMapping, FrozenSequence:
		return t
	default:
		return v
	}
}
