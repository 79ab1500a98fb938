package set

// Set holds values deduplicated by a key and remembers the order in which keys were first added, so index snapshots
// keep their creation order when they are compared.
type Set[K comparable, V any] struct {
	keys        []K
	valuesByKey map[K]V
	getKey      func(V) K
}

func New[T comparable](vals ...T) *Set[T, T] {
	return NewWithKey(func(v T) T { return v }, vals...)
}

func NewWithKey[K comparable, V any](getKey func(V) K, vals ...V) *Set[K, V] {
	s := &Set[K, V]{
		valuesByKey: make(map[K]V),
		getKey:      getKey,
	}
	s.Add(vals...)
	return s
}

// Add inserts the values. A value whose key is already present replaces the stored value but keeps its position.
func (s *Set[K, V]) Add(vals ...V) {
	for _, val := range vals {
		key := s.getKey(val)
		if _, ok := s.valuesByKey[key]; !ok {
			s.keys = append(s.keys, key)
		}
		s.valuesByKey[key] = val
	}
}

func (s *Set[K, V]) Has(val V) bool {
	_, ok := s.valuesByKey[s.getKey(val)]
	return ok
}

func (s *Set[K, V]) Len() int {
	return len(s.keys)
}

// Values returns the values in insertion order.
func (s *Set[K, V]) Values() []V {
	values := make([]V, 0, len(s.keys))
	for _, key := range s.keys {
		values = append(values, s.valuesByKey[key])
	}
	return values
}

// Difference returns the values of a that are not in b, in a's insertion order.
func Difference[K comparable, V any](a, b *Set[K, V]) []V {
	var vals []V
	for _, val := range a.Values() {
		if !b.Has(val) {
			vals = append(vals, val)
		}
	}
	return vals
}
