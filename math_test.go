package cbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFastrangeBounds(t *testing.T) {
	for _, n := range []uint64{0, 1, 2, 7, 100, 1 << 20} {
		for _, h := range []uint64{0, 1, 0xFFFFFFFFFFFFFFFF, 0x9E3779B97F4A7C15} {
			got := fastrange(h, n)
			assert.Less(t, got, n+1)
			if n > 0 {
				assert.Less(t, got, n)
			} else {
				assert.Equal(t, uint64(0), got)
			}
		}
	}
}

func TestFastrangeCoversRange(t *testing.T) {
	const n = 8
	seen := make(map[uint64]bool)
	// fastrange keys off the high bits, so spread the samples over the
	// whole 64-bit input range.
	for i := uint64(0); i < 1<<20; i += 97 {
		seen[fastrange(i<<44, n)] = true
	}
	assert.Len(t, seen, n)
}
