package leveling

import (
	"math/rand"
	"sync"
)

// GainSource yields the XP granted for one qualifying message.
type GainSource interface {
	Gain() int
}

type randomGain struct {
	mu  sync.Mutex
	rng *rand.Rand
	min int
	max int
}

// NewRandomGain draws uniformly from the inclusive range [min, max].
func NewRandomGain(min, max int, seed int64) GainSource {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return &randomGain{rng: rand.New(rand.NewSource(seed)), min: min, max: max}
}

func (g *randomGain) Gain() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.min + g.rng.Intn(g.max-g.min+1)
}

// FixedGain always returns the same amount.
type FixedGain int

func (f FixedGain) Gain() int { return int(f) }
