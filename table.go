package cbg

// table is the cuckoo-breeding-ground placement/lookup/rehash engine.
// It is generic over the storage layout (SoA/AoS/AoB) and owns no
// memory itself; store does. insert provides overwrite-on-insert
// semantics; Map[K,V] and Set[T] are thin façades over a *table that
// add the public error-returning API.
type table[K comparable, V any] struct {
	store         storage[K, V]
	layout        Layout
	hasher        HashFn[K]
	bucketSize    int
	numElems      int
	maxLoadFactor float64
	growFactor    float64
}

const defaultMaxLoadFactor = 0.9001
const defaultGrowFactor = 1.1

func newTable[K comparable, V any](layout Layout, hasher HashFn[K], bucketSize int, initialBins int) *table[K, V] {
	minBins := 2*bucketSize - 2
	if initialBins < minBins {
		initialBins = minBins
	}
	t := &table[K, V]{
		store:         newStorage[K, V](layout, hasher),
		layout:        layout,
		hasher:        hasher,
		bucketSize:    bucketSize,
		maxLoadFactor: defaultMaxLoadFactor,
		growFactor:    defaultGrowFactor,
	}
	t.store.Grow(initialBins, bucketSize)
	return t
}

func windowBase(anchor, bucketSize int, reversed bool) int {
	if reversed {
		return anchor - bucketSize + 1
	}
	return anchor
}

func (t *table[K, V]) loadFactor() float64 {
	if t.store.Cap() == 0 {
		return 0
	}
	return float64(t.numElems) / float64(t.store.Cap())
}

func (t *table[K, V]) minLabelInWindow(base int) (uint8, int) {
	min := t.store.Meta(base).label()
	pos := base
	for i := 1; i < t.bucketSize; i++ {
		if l := t.store.Meta(base + i).label(); l < min {
			min = l
			pos = base + i
		}
	}
	return min, pos
}

// belongToBucket inverts distance/secondary back into the anchor the
// bin at pos is currently addressed from, or -1 if pos is empty.
func (t *table[K, V]) belongToBucket(pos int) int {
	m := t.store.Meta(pos)
	if m.isEmpty() {
		return -1
	}
	extra := 0
	if m.secondary() {
		extra = t.bucketSize - 1
	}
	return pos + extra - int(m.distance())
}

func (t *table[K, V]) countEmpty(pos int) int {
	count := 0
	for i := 0; i < t.bucketSize; i++ {
		if t.store.Meta(pos + i).isEmpty() {
			count++
		}
	}
	return count
}

// countElemsNonReversed counts bins in [bucketPos, bucketPos+B) that
// are addressed from the low end of their window (not secondary) and
// sit exactly distance i from bucketPos — i.e. elements that would
// have to move if bucketPos were reversed.
func (t *table[K, V]) countElemsNonReversed(bucketPos int) int {
	count := 0
	for i := 0; i < t.bucketSize; i++ {
		m := t.store.Meta(bucketPos + i)
		if !m.isEmpty() && !m.secondary() && int(m.distance()) == i {
			count++
		}
	}
	return count
}

// reverseBucket flips bucketPos to a reversed window and relocates
// every bin that belongs to it into the newly opened low end.
func (t *table[K, V]) reverseBucket(bucketPos int) {
	t.store.SetMeta(bucketPos, t.store.Meta(bucketPos).setReversed(true))

	j := t.bucketSize - 1
	for i := 0; i < t.bucketSize; i++ {
		src := bucketPos + i
		if t.belongToBucket(src) != bucketPos {
			continue
		}
		for !t.store.Meta(bucketPos-j).isEmpty() {
			j--
		}
		dst := bucketPos - j
		label := t.store.Meta(src).label()
		fp := t.store.Fingerprint(src)

		t.store.SetMeta(dst, t.store.Meta(dst).update(uint8(t.bucketSize-1-j), true, label))
		t.store.SetFingerprint(dst, fp)
		t.store.MoveElem(dst, src)
		t.store.SetMeta(src, t.store.Meta(src).setEmpty())
	}
}

// findEmptyViaHopscotch tries, in order: reversing bucketPos itself,
// reversing the neighboring buckets that overlap bucketPos's window
// one at a time until one frees a bin there, then a linear hopscotch walk toward the first empty bin reachable
// from bucketInit. Returns the empty bin and true on success.
func (t *table[K, V]) findEmptyViaHopscotch(bucketPos, bucketInit int) (int, bool) {
	if !t.store.Meta(bucketPos).reversed() && bucketPos >= t.bucketSize {
		if empties := t.countEmpty(bucketPos + 1 - t.bucketSize); empties > 0 {
			elems := t.countElemsNonReversed(bucketPos)
			if t.belongToBucket(bucketPos) == bucketPos {
				empties++
			}
			if empties > elems {
				t.reverseBucket(bucketPos)
				newInit := windowBase(bucketPos, t.bucketSize, true)
				if min1, pos1 := t.minLabelInWindow(newInit); min1 == 0 {
					return pos1, true
				}
			}
		}
	}

	if bucketInit >= 2*t.bucketSize {
		for i := 0; i < t.bucketSize; i++ {
			posElem := bucketInit + i
			m := t.store.Meta(posElem)
			if m.secondary() {
				continue
			}
			bucketElem := posElem - int(m.distance())
			if bucketElem == bucketPos {
				continue
			}
			empties := t.countEmpty(bucketElem + 1 - t.bucketSize)
			if empties == 0 {
				continue
			}
			elems := t.countElemsNonReversed(bucketElem)
			if t.belongToBucket(bucketElem) == bucketElem {
				empties++
			}
			if empties >= elems {
				t.reverseBucket(bucketElem)
				if min1, pos1 := t.minLabelInWindow(bucketInit); min1 == 0 {
					return pos1, true
				}
				// unlike original_source/cbg.hpp, which stops at the
				// first neighbor it reverses here even if that
				// reversal didn't free bucketInit's window, this
				// keeps trying the remaining neighbors.
			}
		}
	}

	maxDistToMove := t.bucketSize - 1
	for i := 0; i <= maxDistToMove && bucketInit+i < t.store.Cap(); i++ {
		pos := bucketInit + i
		if t.store.Meta(pos).isEmpty() {
			return t.hopscotchShift(bucketInit, pos), true
		}
		reach := i + t.bucketSize - 1 - int(t.store.Meta(pos).distance())
		if reach > maxDistToMove {
			maxDistToMove = reach
		}
	}

	return 0, false
}

// hopscotchShift walks the blank bin at posBlank back toward
// bucketInit by repeatedly moving in the nearest element that can
// legally reach it, until the blank lies within the bucket's window.
func (t *table[K, V]) hopscotchShift(bucketInit, posBlank int) int {
	for posBlank-bucketInit >= t.bucketSize {
		posSwap := posBlank + 1 - t.bucketSize
		for (posBlank - posSwap) > (t.bucketSize - 1 - int(t.store.Meta(posSwap).distance())) {
			posSwap++
		}

		m := t.store.Meta(posSwap)
		fp := t.store.Fingerprint(posSwap)
		newDistance := uint8(int(m.distance()) + (posBlank - posSwap))

		t.store.MoveElem(posBlank, posSwap)
		t.store.SetMeta(posBlank, t.store.Meta(posBlank).update(newDistance, m.secondary(), m.label()))
		t.store.SetFingerprint(posBlank, fp)

		// posSwap's metadata is now stale (it still looks occupied)
		// but the caller always overwrites the bin findEmptyViaHopscotch
		// finally returns with a fresh place() call, so it never gets
		// read in between.
		posBlank = posSwap
	}
	return posBlank
}

// place writes key/val into bin pos of the window anchored at anchor,
// preserving pos's own reversed/unlucky bits and stamping the
// occupant's distance/secondary/label/fingerprint fields. secondary
// is always the reversed-ness of the window being written into: both
// the primary and the secondary placement paths address a bin
// relative to that bin's own window, so the bit means the same thing
// in either case.
func (t *table[K, V]) place(pos, anchor int, reversed bool, key K, val V, fp uint8, label uint8) {
	base := windowBase(anchor, t.bucketSize, reversed)
	distance := uint8(pos - base)
	t.store.SetMeta(pos, t.store.Meta(pos).update(distance, reversed, label))
	t.store.SetFingerprint(pos, fp)
	t.store.SaveElem(pos, key, val)
}

func saturatingInc(label uint8) uint8 {
	if label+1 > maxLabel {
		return maxLabel
	}
	return label + 1
}

// tryInsert runs the bounded cuckoo/hopscotch placement loop for a
// single key/value pair. It never deduplicates: callers that need
// overwrite-on-insert semantics must findPosition first.
func (t *table[K, V]) tryInsert(key K, val V) bool {
	for {
		N := t.store.Cap()
		h0, h1 := t.store.Hash(key)
		a1 := int(fastrange(h0, uint64(N)))
		a2 := int(fastrange(h1, uint64(N)))

		r1 := t.store.Meta(a1).reversed()
		r2 := t.store.Meta(a2).reversed()
		base1 := windowBase(a1, t.bucketSize, r1)
		base2 := windowBase(a2, t.bucketSize, r2)

		min1, pos1 := t.minLabelInWindow(base1)
		min2, pos2 := t.minLabelInWindow(base2)

		if min1 == 0 {
			t.place(pos1, a1, r1, key, val, fingerprint(h1), saturatingInc(min2))
			t.numElems++
			return true
		}

		if pos, ok := t.findEmptyViaHopscotch(a1, base1); ok {
			r1 = t.store.Meta(a1).reversed()
			t.place(pos, a1, r1, key, val, fingerprint(h1), saturatingInc(min2))
			t.numElems++
			return true
		}

		if min2 == 0 {
			t.store.SetMeta(a1, t.store.Meta(a1).setUnlucky(true))
			t.place(pos2, a2, r2, key, val, fingerprint(h0), saturatingInc(min1))
			t.numElems++
			return true
		}

		if t.loadFactor() > 0.9 {
			if pos, ok := t.findEmptyViaHopscotch(a2, base2); ok {
				t.store.SetMeta(a1, t.store.Meta(a1).setUnlucky(true))
				r2 = t.store.Meta(a2).reversed()
				t.place(pos, a2, r2, key, val, fingerprint(h0), saturatingInc(min1))
				t.numElems++
				return true
			}
		}

		if min1 < min2 {
			if min1 >= maxLabel {
				return false
			}
		} else if min2 >= maxLabel {
			return false
		}

		if min1 <= min2 {
			victimKey, victimVal := t.store.Elem(pos1)
			t.place(pos1, a1, r1, key, val, fingerprint(h1), saturatingInc(min2))
			key, val = victimKey, victimVal
		} else {
			t.store.SetMeta(a1, t.store.Meta(a1).setUnlucky(true))
			victimKey, victimVal := t.store.Elem(pos2)
			t.place(pos2, a2, r2, key, val, fingerprint(h0), saturatingInc(min1))
			key, val = victimKey, victimVal
		}
	}
}

func (t *table[K, V]) probeBucket(anchor int, fp uint8, key K) (int, bool) {
	hasFP := t.store.HasFingerprint()
	pos := anchor
	m := t.store.Meta(pos)
	if (!hasFP || t.store.Fingerprint(pos) == fp) && !m.isEmpty() && t.store.Key(pos) == key {
		return pos, true
	}

	step := 1
	if m.reversed() {
		step = -1
	}
	for i := 1; i < t.bucketSize; i++ {
		pos += step
		mm := t.store.Meta(pos)
		if (!hasFP || t.store.Fingerprint(pos) == fp) && !mm.isEmpty() && t.store.Key(pos) == key {
			return pos, true
		}
	}
	return 0, false
}

func (t *table[K, V]) findPosition(key K) (int, bool) {
	N := t.store.Cap()
	if N == 0 {
		return 0, false
	}
	h0, h1 := t.store.Hash(key)
	a1 := int(fastrange(h0, uint64(N)))

	if pos, ok := t.probeBucket(a1, fingerprint(h1), key); ok {
		return pos, true
	}
	if t.store.Meta(a1).unlucky() {
		a2 := int(fastrange(h1, uint64(N)))
		return t.probeBucket(a2, fingerprint(h0), key)
	}
	return 0, false
}

// computeGrowSize returns the next bin count to try when growing,
// and whether growth is still possible (false means overflow).
func (t *table[K, V]) computeGrowSize() (int, bool) {
	n := t.store.Cap()
	grown := int(float64(n) * t.growFactor)
	target := n + 2*t.bucketSize - 2
	if grown > target {
		target = grown
	}
	if target <= n {
		return 0, false
	}
	return target, true
}

// rehash grows the table to at least newN bins, relocating every
// occupied bin. If the relocation pass cannot place every element at
// the chosen size it enlarges by ~0.8% and restarts the whole pass;
// this terminates because load factor strictly decreases each retry.
func (t *table[K, V]) rehash(newN int) {
	if newN <= t.store.Cap() {
		return
	}

	// pending carries elements that couldn't be placed in the current
	// pass forward into the next, larger one, the way secondary_tmp
	// persists untouched across while(need_rehash) retries in
	// original_source/cbg.hpp: truncating it at the top of this loop
	// would silently drop every element still waiting to be placed
	// when a retry was needed.
	var pending []struct {
		key K
		val V
	}

	for {
		oldN := t.store.Cap()
		t.store.Grow(newN, t.bucketSize)
		t.numElems = 0

		for i := oldN - 1; i > 0; i-- {
			occupied := !t.store.Meta(i).isEmpty()
			if occupied {
				key, val := t.store.Elem(i)
				h0, h1 := t.store.Hash(key)
				a1 := int(fastrange(h0, uint64(newN)))
				r1 := t.store.Meta(a1).reversed()
				base1 := windowBase(a1, t.bucketSize, r1)

				moved := false
				if a1 > i {
					if min1, pos1 := t.minLabelInWindow(base1); min1 == 0 {
						t.store.SetMeta(pos1, t.store.Meta(pos1).update(uint8(pos1-base1), r1, 1))
						t.store.SetFingerprint(pos1, fingerprint(h1))
						t.store.MoveElem(pos1, i)
						t.numElems++
						moved = true
					}
				}
				if !moved {
					pending = append(pending, struct {
						key K
						val V
					}{key, val})
				}
			}
			// a full zero, not setEmpty: this bin, occupied or not,
			// may carry a stale reversed/unlucky flag from the old
			// table that has no bearing on its role in the new one.
			t.store.SetMeta(i, meta(0))
		}

		if oldN > 0 {
			if !t.store.Meta(0).isEmpty() {
				key, val := t.store.Elem(0)
				pending = append(pending, struct {
					key K
					val V
				}{key, val})
			}
			t.store.SetMeta(0, meta(0))
		}

		needRetry := false
		for i := len(pending) - 1; i >= 0; i-- {
			if t.tryInsert(pending[i].key, pending[i].val) {
				pending = pending[:i]
			} else {
				needRetry = true
				break
			}
		}

		if !needRetry {
			return
		}
		newN += max(1, newN/128)
	}
}

// insert overwrites on a duplicate key and otherwise places key/val
// fresh, growing the table as many times as the displacement budget
// demands.
func (t *table[K, V]) insert(key K, val V) {
	if pos, ok := t.findPosition(key); ok {
		*t.store.ValuePtr(pos) = val
		return
	}
	if t.store.Cap() == 0 || t.loadFactor() >= t.maxLoadFactor {
		t.growOnce()
	}
	for !t.tryInsert(key, val) {
		t.growOnce()
	}
}

func (t *table[K, V]) growOnce() {
	newN, ok := t.computeGrowSize()
	if !ok {
		panic(ErrCapacityOverflow)
	}
	t.rehash(newN)
}

func (t *table[K, V]) lookup(key K) (V, bool) {
	if pos, ok := t.findPosition(key); ok {
		return *t.store.ValuePtr(pos), true
	}
	var zero V
	return zero, false
}

func (t *table[K, V]) remove(key K) bool {
	pos, ok := t.findPosition(key)
	if !ok {
		return false
	}
	t.store.SetMeta(pos, t.store.Meta(pos).setEmpty())
	t.numElems--
	return true
}

func (t *table[K, V]) clear() {
	t.store.ClearAll(t.bucketSize)
	t.numElems = 0
}

func (t *table[K, V]) reserve(n int) {
	if n > t.store.Cap() {
		t.rehash(n)
	}
}
