package leveling

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"xaver/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(gain GainSource) *Engine {
	engine := NewEngine(config.LevelingConfig{CooldownSeconds: 10, MinGain: 10, MaxGain: 15, IdleTTLHours: 1})
	if gain != nil {
		engine.WithGain(gain)
	}
	return engine
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 10, Threshold(0))
	assert.Equal(t, 35, Threshold(1))
	assert.Equal(t, 70, Threshold(2))
	for level := 0; level < 100; level++ {
		assert.Less(t, Threshold(level), Threshold(level+1))
	}
}

func TestAwardFreshMember(t *testing.T) {
	engine := newTestEngine(nil)
	t0 := time.Unix(1_700_000_000, 0)

	result, err := engine.Award("g1", "u1", "alice", t0)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.GreaterOrEqual(t, result.Gain, 10)
	assert.LessOrEqual(t, result.Gain, 15)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.Record.Level)
	assert.Equal(t, result.Gain-10, result.Record.XP)
	assert.Equal(t, 1, result.Record.MessageCount)
	assert.Equal(t, "alice", result.Record.DisplayName)
}

func TestAwardCooldown(t *testing.T) {
	engine := newTestEngine(FixedGain(12))
	t0 := time.Unix(1_700_000_000, 0)

	first, err := engine.Award("g1", "u1", "alice", t0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := engine.Award("g1", "u1", "alice", t0.Add(9999*time.Millisecond))
	require.NoError(t, err)
	assert.Nil(t, second)

	stats := engine.Stats("g1", "u1")
	assert.Equal(t, first.Record.XP, stats.XP)
	assert.Equal(t, first.Record.Level, stats.Level)
	assert.Equal(t, 1, stats.MessageCount)

	third, err := engine.Award("g1", "u1", "alice", t0.Add(10*time.Second))
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, 2, third.Record.MessageCount)
}

func TestCooldownRejectedMessageRefreshesPresence(t *testing.T) {
	engine := newTestEngine(FixedGain(12))
	t0 := time.Unix(1_700_000_000, 0)

	first, err := engine.Award("g1", "u1", "alice", t0)
	require.NoError(t, err)
	require.NotNil(t, first)

	later := t0.Add(5 * time.Second)
	second, err := engine.Award("g1", "u1", "alice2", later)
	require.NoError(t, err)
	assert.Nil(t, second)

	stats := engine.Stats("g1", "u1")
	assert.True(t, stats.LastSeen.Equal(later))
	assert.Equal(t, "alice2", stats.DisplayName)
	assert.Equal(t, first.Record.XP, stats.XP)
	assert.Equal(t, first.Record.Level, stats.Level)
	assert.Equal(t, 1, stats.MessageCount)

	// a rejected key with no record stays untracked
	engine.cooldown.TryConsume("g1", "ghost", t0, time.Hour)
	_, err = engine.Award("g1", "ghost", "ghost", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, engine.Len())
}

func TestAwardExactBoundary(t *testing.T) {
	engine := newTestEngine(FixedGain(10))
	t0 := time.Unix(0, 0)

	result, err := engine.Award("g1", "u1", "alice", t0)
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.Record.Level)
	assert.Equal(t, 0, result.Record.XP)

	engine.WithGain(FixedGain(35))
	result, err = engine.Award("g1", "u1", "alice", t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.Record.Level)
	assert.Equal(t, 0, result.Record.XP)

	engine.WithGain(FixedGain(1))
	result, err = engine.Award("g1", "u1", "alice", t0.Add(20*time.Second))
	require.NoError(t, err)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.Record.XP)
}

func TestAwardCrossesSeveralLevels(t *testing.T) {
	engine := newTestEngine(FixedGain(50))

	result, err := engine.Award("g1", "u1", "alice", time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.Record.Level)
	assert.Equal(t, 5, result.Record.XP)
}

func TestAwardInvariantAndMonotonicity(t *testing.T) {
	engine := NewEngine(config.LevelingConfig{CooldownSeconds: 10})
	engine.WithGain(NewRandomGain(10, 15, 42))
	now := time.Unix(0, 0)

	prev := Record{}
	for i := 0; i < 500; i++ {
		now = now.Add(10 * time.Second)
		result, err := engine.Award("g1", "u1", "alice", now)
		require.NoError(t, err)
		require.NotNil(t, result)

		rec := result.Record
		require.GreaterOrEqual(t, rec.XP, 0)
		require.Less(t, rec.XP, Threshold(rec.Level))
		require.GreaterOrEqual(t, rec.Level, prev.Level)
		require.Equal(t, prev.MessageCount+1, rec.MessageCount)
		prev = rec
	}
}

func TestAwardRejectsEmptyKey(t *testing.T) {
	engine := newTestEngine(nil)

	_, err := engine.Award("", "u1", "alice", time.Now())
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = engine.Award("g1", "", "alice", time.Now())
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, 0, engine.Len())
}

func TestCrossGuildIsolation(t *testing.T) {
	engine := newTestEngine(FixedGain(12))

	_, err := engine.Award("guildX", "u1", "alice", time.Unix(0, 0))
	require.NoError(t, err)

	assert.Equal(t, Record{}, engine.Stats("guildY", "u1"))
	assert.Empty(t, engine.Top("guildY", 10))

	result, err := engine.Award("guildY", "u1", "alice", time.Unix(1, 0))
	require.NoError(t, err)
	assert.NotNil(t, result, "cooldown must be tracked per guild")
}

func TestStatsDoesNotCreateEntries(t *testing.T) {
	engine := newTestEngine(nil)

	assert.Equal(t, Record{}, engine.Stats("g1", "ghost"))
	assert.Equal(t, 0, engine.Len())
	_, ok := engine.Rank("g1", "ghost")
	assert.False(t, ok)
}

func TestTopOrdering(t *testing.T) {
	engine := newTestEngine(nil)
	engine.records["g1"] = map[string]*Record{
		"A": {Level: 2, XP: 5},
		"B": {Level: 3, XP: 0},
		"C": {Level: 2, XP: 9},
	}
	engine.records["g2"] = map[string]*Record{"D": {Level: 9}}

	top := engine.Top("g1", 10)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{top[0].UserID, top[1].UserID, top[2].UserID})

	assert.Len(t, engine.Top("g1", 2), 2)
	assert.Empty(t, engine.Top("g1", 0))
	assert.Empty(t, engine.Top("empty", 5))

	rank, ok := engine.Rank("g1", "A")
	assert.True(t, ok)
	assert.Equal(t, 3, rank)
}

func TestTopTiesAreDeterministic(t *testing.T) {
	engine := newTestEngine(nil)
	engine.records["g1"] = map[string]*Record{
		"u3": {Level: 1, XP: 1},
		"u1": {Level: 1, XP: 1},
		"u2": {Level: 1, XP: 1},
	}
	for i := 0; i < 5; i++ {
		top := engine.Top("g1", 3)
		assert.Equal(t, "u1", top[0].UserID)
		assert.Equal(t, "u2", top[1].UserID)
		assert.Equal(t, "u3", top[2].UserID)
	}
}

func TestResetAndSweep(t *testing.T) {
	engine := newTestEngine(FixedGain(12))
	t0 := time.Unix(0, 0)

	_, _ = engine.Award("g1", "old", "old", t0)
	_, _ = engine.Award("g1", "fresh", "fresh", t0.Add(50*time.Minute))
	require.Equal(t, 2, engine.Len())

	removed := engine.Sweep(t0.Add(90 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, Record{}, engine.Stats("g1", "old"))
	_, tracked := engine.cooldown.lastAward("g1", "old")
	assert.False(t, tracked)

	engine.Reset("g1", "fresh")
	assert.Equal(t, 0, engine.Len())
	result, err := engine.Award("g1", "fresh", "fresh", t0.Add(50*time.Minute+time.Second))
	require.NoError(t, err)
	assert.NotNil(t, result, "reset clears the cooldown")
}

func TestSweepDisabled(t *testing.T) {
	engine := NewEngine(config.LevelingConfig{CooldownSeconds: 10})
	engine.WithGain(FixedGain(1))
	_, _ = engine.Award("g1", "u1", "alice", time.Unix(0, 0))

	assert.Equal(t, 0, engine.Sweep(time.Unix(0, 0).Add(10000*time.Hour)))
	assert.Equal(t, 1, engine.Len())
}

func TestAwardConcurrentMembers(t *testing.T) {
	engine := newTestEngine(FixedGain(3))
	now := time.Unix(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = engine.Award("g1", fmt.Sprintf("u%d", i), "member", now)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, engine.Len())
	assert.Len(t, engine.Top("g1", 100), 50)
}

func TestWithGainWhileAwarding(t *testing.T) {
	engine := newTestEngine(FixedGain(10))
	t0 := time.Unix(1_700_000_000, 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, err := engine.Award("g1", fmt.Sprintf("u%d", i), "member", t0)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			engine.WithGain(FixedGain(10 + i%5))
		}
	}()
	wg.Wait()
	assert.Equal(t, 100, engine.Len())
}
