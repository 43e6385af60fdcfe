package demo

import "math/rand/v2"

// Rand is the randomness capability handed to the engine. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewSeededRand returns a reproducible source for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Draw returns a uniform value in [Min, Max]. A reversed range is swapped.
func (r Range) Draw(src Rand) int {
	lo, hi := r.Min, r.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + src.IntN(hi-lo+1)
}

func pick[T any](src Rand, items []T) T {
	return items[src.IntN(len(items))]
}
