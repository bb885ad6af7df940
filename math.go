package cbg

import "math/bits"

// fastrange maps a uniform 64-bit integer into [0, p) without a
// division, by taking the high 64 bits of a 128-bit multiply. It is
// as fair as a modulo reduction in the sense that iterating over all
// inputs covers all outputs as evenly as possible, biased by at most
// 1/2^64, and it is considerably cheaper than a division. This is
// the Go equivalent of the original's fastrange64, using bits.Mul64
// in place of the __uint128_t / _umul128 intrinsics it falls back on.
func fastrange(word uint64, p uint64) uint64 {
	if p == 0 {
		return 0
	}
	hi, _ := bits.Mul64(word, p)
	return hi
}
