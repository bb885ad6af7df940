package cbg

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// HashFn is a function that returns two independent hashes of 'key'.
// The placement engine uses the first as the primary hash and the
// second as the secondary hash; a correct implementation must make
// the two behave as if drawn from independent hash families, or the
// cuckoo displacement degenerates into plain linear probing.
type HashFn[Key any] func(key Key) (uint64, uint64)

// GetHasher returns a default two-hash function for the golang
// builtin kinds. It panics for composite key types (structs, slices,
// maps) that the caller must supply their own HashFn for.
func GetHasher[Key any]() HashFn[Key] {
	var key Key
	kind := reflect.ValueOf(&key).Elem().Type().Kind()

	switch kind {
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		switch unsafe.Sizeof(key) {
		case 2:
			return *(*HashFn[Key])(unsafe.Pointer(&hashWord))
		case 4:
			return *(*HashFn[Key])(unsafe.Pointer(&hashDword))
		case 8:
			return *(*HashFn[Key])(unsafe.Pointer(&hashQword))
		default:
			panic("unsupported integer byte size")
		}

	case reflect.Int8, reflect.Uint8:
		return *(*HashFn[Key])(unsafe.Pointer(&hashByte))
	case reflect.Int16, reflect.Uint16:
		return *(*HashFn[Key])(unsafe.Pointer(&hashWord))
	case reflect.Int32, reflect.Uint32:
		return *(*HashFn[Key])(unsafe.Pointer(&hashDword))
	case reflect.Int64, reflect.Uint64:
		return *(*HashFn[Key])(unsafe.Pointer(&hashQword))
	case reflect.Float32:
		return *(*HashFn[Key])(unsafe.Pointer(&hashFloat32))
	case reflect.Float64:
		return *(*HashFn[Key])(unsafe.Pointer(&hashFloat64))
	case reflect.String:
		return *(*HashFn[Key])(unsafe.Pointer(&hashString))

	default:
		panic(fmt.Sprintf("cbg: unsupported key type %T of kind %v, supply a HashFn", key, kind))
	}
}

// mix64 is MurmurHash3's 64-bit finalizer, used as the primary hash
// for every fixed-width scalar kind below.
func mix64(key uint64) uint64 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	key *= 0xc4ceb9fe1a85ec53
	key ^= key >> 33
	return key
}

// mix64b re-mixes a value with a second odd multiplier so the
// secondary hash stays independent of mix64 even when fed the same
// input word.
func mix64b(key uint64) uint64 {
	key ^= key >> 31
	key *= 0x94d049bb133111eb
	key ^= key >> 31
	key *= 0xbf58476d1ce4e5b9
	key ^= key >> 31
	return key
}

var hashByte = func(in uint8) (uint64, uint64) {
	w := uint64(in)
	return mix64(w), mix64b(w)
}

var hashWord = func(in uint16) (uint64, uint64) {
	w := uint64(in)
	return mix64(w), mix64b(w)
}

var hashDword = func(in uint32) (uint64, uint64) {
	w := uint64(in)
	return mix64(w), mix64b(w)
}

var hashQword = func(in uint64) (uint64, uint64) {
	return mix64(in), mix64b(in)
}

var hashFloat32 = func(in float32) (uint64, uint64) {
	w := uint64(*(*uint32)(unsafe.Pointer(&in)))
	return mix64(w), mix64b(w)
}

var hashFloat64 = func(in float64) (uint64, uint64) {
	w := *(*uint64)(unsafe.Pointer(&in))
	return mix64(w), mix64b(w)
}

// hashString hashes with xxhash for h0 and re-mixes the digest for
// h1, instead of running xxhash twice, since xxhash's output already
// avalanches well enough that a second independent pass over the
// string buys nothing over mixing its digest.
var hashString = func(in string) (uint64, uint64) {
	h := xxhash.Sum64String(in)
	return h, mix64b(h)
}

// BytesHasher returns a HashFn for []byte keys backed by xxhash, for
// callers that key a Map by raw byte slices instead of strings.
func BytesHasher() HashFn[[]byte] {
	return func(in []byte) (uint64, uint64) {
		h := xxhash.Sum64(in)
		return h, mix64b(h)
	}
}
