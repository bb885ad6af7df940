package cbg

import "errors"

// ErrKeyNotFound is returned by Map.At when the key has no entry.
var ErrKeyNotFound = errors.New("cbg: key not found")

// ErrCapacityOverflow is the value growOnce panics with when a grow
// computation can no longer strictly increase the bin count, i.e. the
// table cannot be grown any further on this platform. Put/Add have no
// error return of their own to surface this through, so it panics
// the same way ErrInvalidBucketSize does from NewWithHasher rather
// than failing a caller's Put silently.
var ErrCapacityOverflow = errors.New("cbg: capacity overflow, cannot grow table further")

// ErrInvalidBucketSize is returned when NewWithBucketSize is called
// with a bucket size outside the supported {2, 3, 4} range.
var ErrInvalidBucketSize = errors.New("cbg: bucket size must be 2, 3 or 4")

// ErrOutOfRange signals an out of range request, e.g. an invalid
// load factor passed to MaxLoadFactor.
var ErrOutOfRange = errors.New("cbg: out of range")
