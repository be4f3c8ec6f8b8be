package arena

import (
	"math/rand"
	"time"
)

// newRand returns a deterministic source for seed, or a time-seeded one
// when seed is 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// step returns -1, 0 or 1 with equal probability.
func step(r *rand.Rand) float64 {
	return float64(r.Intn(3) - 1)
}

func coin(r *rand.Rand) bool {
	return r.Intn(2) == 1
}
