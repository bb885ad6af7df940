package cbg

// Set is a Cuckoo Breeding Ground set, built as a thin wrapper over
// Map[T, struct{}]. struct{} costs zero bytes in Go, so unlike the
// dedicated set-only storage layouts the original needs to avoid
// wasting per-slot value storage, reusing Map here is free.
type Set[T comparable] struct {
	m *Map[T, struct{}]
}

// NewSet creates a set with the default SoA layout, bucket size 4
// and the built-in hasher for T.
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{m: New[T, struct{}]()}
}

// NewSetWithLayout creates a set using the given storage layout.
func NewSetWithLayout[T comparable](layout Layout) *Set[T] {
	return &Set[T]{m: NewWithLayout[T, struct{}](layout)}
}

// NewSetWithHasher creates a set with full control over layout,
// bucket size and hash function.
func NewSetWithHasher[T comparable](layout Layout, bucketSize int, hasher HashFn[T]) *Set[T] {
	return &Set[T]{m: NewWithHasher[T, struct{}](layout, bucketSize, hasher)}
}

// Add inserts elem, a no-op if it is already a member.
func (s *Set[T]) Add(elem T) {
	s.m.Put(elem, struct{}{})
}

// Contains reports whether elem is a member.
func (s *Set[T]) Contains(elem T) bool {
	_, ok := s.m.Get(elem)
	return ok
}

// Remove deletes elem, reporting whether it was a member.
func (s *Set[T]) Remove(elem T) bool {
	return s.m.Remove(elem)
}

// Size returns the number of elements.
func (s *Set[T]) Size() int {
	return s.m.Size()
}

// Capacity returns the current number of bins.
func (s *Set[T]) Capacity() int {
	return s.m.Capacity()
}

// LoadFactor returns Size()/Capacity(), a ratio in [0,1].
func (s *Set[T]) LoadFactor() float64 {
	return s.m.LoadFactor()
}

// Clear removes every element without releasing the backing arrays.
func (s *Set[T]) Clear() {
	s.m.Clear()
}

// Reset reinitializes the set to an empty table, releasing the
// backing arrays.
func (s *Set[T]) Reset() {
	s.m.Reset()
}

// Reserve grows the set, if needed, to hold at least n bins.
func (s *Set[T]) Reserve(n int) {
	s.m.Reserve(n)
}

// Each calls fn for every element in the set, in no particular
// order. If fn returns true, iteration stops early.
func (s *Set[T]) Each(fn func(elem T) bool) {
	s.m.Each(func(k T, _ struct{}) bool {
		return fn(k)
	})
}

// Copy returns a deep copy of the set.
func (s *Set[T]) Copy() *Set[T] {
	return &Set[T]{m: s.m.Copy()}
}
