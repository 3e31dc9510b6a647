package leveling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownTryConsume(t *testing.T) {
	gate := NewCooldown()
	t0 := time.Unix(100, 0)
	interval := 10 * time.Second

	assert.True(t, gate.TryConsume("g1", "u1", t0, interval))
	assert.False(t, gate.TryConsume("g1", "u1", t0.Add(5*time.Second), interval))

	last, ok := gate.lastAward("g1", "u1")
	assert.True(t, ok)
	assert.Equal(t, t0, last, "rejection must not overwrite the last award")

	assert.True(t, gate.TryConsume("g1", "u1", t0.Add(interval), interval))
	assert.True(t, gate.TryConsume("g1", "u2", t0, interval))
	assert.True(t, gate.TryConsume("g2", "u1", t0, interval))
}

func TestRandomGainRange(t *testing.T) {
	gain := NewRandomGain(10, 15, 7)
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		value := gain.Gain()
		assert.GreaterOrEqual(t, value, 10)
		assert.LessOrEqual(t, value, 15)
		seen[value] = true
	}
	assert.Len(t, seen, 6)

	assert.Equal(t, 5, NewRandomGain(5, 1, 1).Gain())
}
