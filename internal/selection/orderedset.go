package selection

// orderedSet keeps values unique by key in insertion order.
// Re-adding a removed key appends it at the end.
type orderedSet[V any] struct {
	keys []string
	vals map[string]V
}

func newOrderedSet[V any]() *orderedSet[V] {
	return &orderedSet[V]{vals: make(map[string]V)}
}

// add inserts v under key. Returns false if key is already present.
func (s *orderedSet[V]) add(key string, v V) bool {
	if _, ok := s.vals[key]; ok {
		return false
	}
	s.keys = append(s.keys, key)
	s.vals[key] = v
	return true
}

// remove deletes key. Returns false if key was absent.
func (s *orderedSet[V]) remove(key string) bool {
	if _, ok := s.vals[key]; !ok {
		return false
	}
	delete(s.vals, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

func (s *orderedSet[V]) has(key string) bool {
	_, ok := s.vals[key]
	return ok
}

func (s *orderedSet[V]) len() int {
	return len(s.keys)
}

func (s *orderedSet[V]) clear() {
	s.keys = nil
	s.vals = make(map[string]V)
}

// orderedKeys returns a copy of the keys in insertion order.
func (s *orderedSet[V]) orderedKeys() []string {
	return append([]string{}, s.keys...)
}

// values returns the values in insertion order.
func (s *orderedSet[V]) values() []V {
	out := make([]V, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.vals[k]
	}
	return out
}
