// Package cbg implements the Cuckoo Breeding Ground hash table: an
// open-addressed map that combines cuckoo-style dual-bucket
// placement with hopscotch-style local displacement (including
// bucket reversal) and a bounded cuckoo eviction chain, aiming for
// load factors above 90% while keeping lookups to a handful of
// probed bins.
package cbg

import "fmt"

// Layout selects the memory organization backing a Map or Set. The
// three layouts are interchangeable at construction time; they never
// change the observable behavior of the table, only its access
// pattern.
type Layout int

const (
	// SoA keeps metadata, fingerprints, keys and values in four
	// parallel slices. Best for workloads dominated by negative
	// lookups (key absent).
	SoA Layout = iota
	// AoS interleaves metadata, key and value per bin. Best for
	// workloads dominated by positive lookups (key present), at the
	// cost of no fingerprint pre-filter.
	AoS
	// AoB groups bins into small fixed-size blocks, splitting the
	// difference between SoA and AoS.
	AoB
)

func newStorage[K comparable, V any](layout Layout, hasher HashFn[K]) storage[K, V] {
	switch layout {
	case AoS:
		return newAoSStorage[K, V](hasher)
	case AoB:
		return newAoBStorage[K, V](hasher)
	default:
		return newSoAStorage[K, V](hasher)
	}
}

// String renders a Layout the way (Soa/AoS/AoB) constant names are
// logged, for diagnostics that print a map's configuration.
func (l Layout) String() string {
	switch l {
	case AoS:
		return "AoS"
	case AoB:
		return "AoB"
	default:
		return "SoA"
	}
}

// Map is a Cuckoo Breeding Ground hash map. The zero value is not
// usable; construct one with New, NewWithLayout, NewWithHasher or
// NewWithBucketSize.
type Map[K comparable, V any] struct {
	t *table[K, V]
}

// New creates a map with the default SoA layout, bucket size 4 and
// the built-in hasher for K.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithHasher[K, V](SoA, 4, GetHasher[K]())
}

// NewWithLayout creates a map using the given storage layout and the
// built-in hasher for K.
func NewWithLayout[K comparable, V any](layout Layout) *Map[K, V] {
	return NewWithHasher[K, V](layout, 4, GetHasher[K]())
}

// NewWithBucketSize creates a map with the default SoA layout and an
// explicit bucket size, which must be 2, 3 or 4.
func NewWithBucketSize[K comparable, V any](bucketSize int) (*Map[K, V], error) {
	if bucketSize < 2 || bucketSize > 4 {
		return nil, ErrInvalidBucketSize
	}
	return NewWithHasher[K, V](SoA, bucketSize, GetHasher[K]()), nil
}

// NewWithHasher creates a map with full control over layout, bucket
// size and hash function; bucketSize must be 2, 3 or 4 or this
// panics, since it is almost always a programming error rather than
// a runtime condition a caller can recover from.
func NewWithHasher[K comparable, V any](layout Layout, bucketSize int, hasher HashFn[K]) *Map[K, V] {
	if bucketSize < 2 || bucketSize > 4 {
		panic(fmt.Sprintf("cbg: %v", ErrInvalidBucketSize))
	}
	return &Map[K, V]{t: newTable[K, V](layout, hasher, bucketSize, 0)}
}

// Get returns the value stored for key, or false if key is absent.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.t.lookup(key)
}

// At returns the value stored for key, or ErrKeyNotFound if absent.
func (m *Map[K, V]) At(key K) (V, error) {
	v, ok := m.t.lookup(key)
	if !ok {
		return v, ErrKeyNotFound
	}
	return v, nil
}

// Put maps key to val, overwriting any existing value for key.
func (m *Map[K, V]) Put(key K, val V) {
	m.t.insert(key, val)
}

// GetOrInsert returns the value already stored for key, or inserts
// and returns def if key is absent. The second return is true when
// def was inserted.
func (m *Map[K, V]) GetOrInsert(key K, def V) (V, bool) {
	if v, ok := m.t.lookup(key); ok {
		return v, false
	}
	m.t.insert(key, def)
	return def, true
}

// Remove deletes key, reporting whether it was present.
func (m *Map[K, V]) Remove(key K) bool {
	return m.t.remove(key)
}

// Count returns 1 if key is present, 0 otherwise.
func (m *Map[K, V]) Count(key K) int {
	if _, ok := m.t.findPosition(key); ok {
		return 1
	}
	return 0
}

// Size returns the number of key/value pairs stored.
func (m *Map[K, V]) Size() int {
	return m.t.numElems
}

// Capacity returns the current number of bins.
func (m *Map[K, V]) Capacity() int {
	return m.t.store.Cap()
}

// LoadFactor returns Size()/Capacity(), a ratio in [0,1].
func (m *Map[K, V]) LoadFactor() float64 {
	return m.t.loadFactor()
}

// MaxLoadFactor sets the load factor, in (0,1), at which Put triggers
// a grow before placement. Returns ErrOutOfRange for values outside
// that range.
func (m *Map[K, V]) MaxLoadFactor(lf float64) error {
	if lf <= 0 || lf >= 1 {
		return fmt.Errorf("%f: %w", lf, ErrOutOfRange)
	}
	m.t.maxLoadFactor = lf
	return nil
}

// GrowFactor sets the multiplicative factor used to size the next
// grow. Returns ErrOutOfRange for values <= 1.
func (m *Map[K, V]) GrowFactor(gf float64) error {
	if gf <= 1 {
		return fmt.Errorf("%f: %w", gf, ErrOutOfRange)
	}
	m.t.growFactor = gf
	return nil
}

// Reserve grows the table, if needed, to hold at least n bins.
func (m *Map[K, V]) Reserve(n int) {
	m.t.reserve(n)
}

// Clear removes every key/value pair without releasing the backing
// arrays.
func (m *Map[K, V]) Clear() {
	m.t.clear()
}

// Reset reinitializes the map to an empty table sized as if freshly
// constructed, releasing the backing arrays. Unlike Clear, Reset
// actually shrinks memory use back down, which plain erase-everything
// in the original could not do because it tore down the table object
// it was called on.
func (m *Map[K, V]) Reset() {
	m.t = newTable[K, V](m.t.layout, m.t.hasher, m.t.bucketSize, 0)
}

// Each calls fn for every key/value pair in the map, in no
// particular order. If fn returns true, iteration stops early.
func (m *Map[K, V]) Each(fn func(key K, val V) bool) {
	for i := 0; i < m.t.store.Cap(); i++ {
		if m.t.store.Meta(i).isEmpty() {
			continue
		}
		k, v := m.t.store.Elem(i)
		if fn(k, v) {
			return
		}
	}
}

// Copy returns a deep copy of the map, with the same layout, bucket
// size, hasher and load/grow factors as m.
func (m *Map[K, V]) Copy() *Map[K, V] {
	cp := &Map[K, V]{t: newTable[K, V](m.t.layout, m.t.hasher, m.t.bucketSize, m.t.store.Cap())}
	cp.t.maxLoadFactor = m.t.maxLoadFactor
	cp.t.growFactor = m.t.growFactor
	m.Each(func(k K, v V) bool {
		cp.Put(k, v)
		return false
	})
	return cp
}
