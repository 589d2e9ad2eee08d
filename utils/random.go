package utils

import (
	"math/rand"
	"sync"
	"time"
)

// LockedRand is a rand.Rand safe for use from concurrent request handlers.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedRand() *LockedRand {
	return &LockedRand{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededRand returns a LockedRand with a fixed seed for deterministic
// tests.
func NewSeededRand(seed int64) *LockedRand {
	return &LockedRand{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *LockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}
