package cbg

import (
	"fmt"
	"io"
	"testing"
)

// benchKeys returns n distinct, deterministic keys, the same style
// cockroachdb-swiss's bench_test.go uses to build a fixed input set
// before ResetTimer.
func benchKeys(n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	return keys
}

var benchLoadFactors = []float64{0.5, 0.75, 0.9}

const benchN = 1 << 14

func BenchmarkPut(b *testing.B) {
	for _, layout := range allLayouts() {
		b.Run(layout.String(), func(b *testing.B) {
			for _, lf := range benchLoadFactors {
				b.Run(fmt.Sprintf("loadFactor=%.2f", lf), func(b *testing.B) {
					keys := benchKeys(benchN)
					m := NewWithLayout[int, int](layout)
					_ = m.MaxLoadFactor(lf)
					m.Reserve(benchN)
					b.ResetTimer()
					for i := 0; i < b.N; i++ {
						k := keys[i%benchN]
						m.Put(k, i)
					}
				})
			}
		})
	}
}

func BenchmarkGet(b *testing.B) {
	for _, layout := range allLayouts() {
		b.Run(layout.String(), func(b *testing.B) {
			for _, lf := range benchLoadFactors {
				b.Run(fmt.Sprintf("loadFactor=%.2f", lf), func(b *testing.B) {
					keys := benchKeys(benchN)
					m := NewWithLayout[int, int](layout)
					_ = m.MaxLoadFactor(lf)
					for _, k := range keys {
						m.Put(k, k)
					}
					b.ResetTimer()
					var v int
					var ok bool
					for i := 0; i < b.N; i++ {
						v, ok = m.Get(keys[i%benchN])
					}
					b.StopTimer()
					fmt.Fprint(io.Discard, v, ok)
				})
			}
		})
	}
}

func BenchmarkRemove(b *testing.B) {
	for _, layout := range allLayouts() {
		b.Run(layout.String(), func(b *testing.B) {
			for _, lf := range benchLoadFactors {
				b.Run(fmt.Sprintf("loadFactor=%.2f", lf), func(b *testing.B) {
					keys := benchKeys(benchN)
					m := NewWithLayout[int, int](layout)
					_ = m.MaxLoadFactor(lf)
					b.ResetTimer()
					for i := 0; i < b.N; i++ {
						for _, k := range keys {
							m.Put(k, k)
						}
						for _, k := range keys {
							m.Remove(k)
						}
					}
				})
			}
		})
	}
}
