package polls

import (
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	stopped bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeClock) Fire() {
	f.mu.Lock()
	pending := append([]*fakeTimer{}, f.timers...)
	f.timers = nil
	f.mu.Unlock()
	for _, timer := range pending {
		if !timer.stopped {
			timer.fn()
		}
	}
}

func newTestModule() (*Module, *fakeClock) {
	module := New(4)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module.WithClock(clock)
	return module, clock
}

func TestParseOptions(t *testing.T) {
	module, _ := newTestModule()

	options, err := module.ParseOptions(" pizza ; pasta;;pizza ")
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza", "pasta"}, options)

	_, err = module.ParseOptions("only")
	assert.ErrorIs(t, err, ErrTooFewOptions)

	_, err = module.ParseOptions("a;b;c;d;e")
	assert.ErrorIs(t, err, ErrTooManyOptions)
}

func TestVoteFlow(t *testing.T) {
	module, _ := newTestModule()
	poll, err := module.Create("g1", "c1", "creator", "Lunch?", []string{"pizza", "pasta"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1000, 0).Add(time.Hour), poll.EndsAt)

	_, outcome, err := module.Vote(poll.ID, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, VoteCast, outcome)

	_, outcome, err = module.Vote(poll.ID, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, VoteChanged, outcome)

	updated, _, err := module.Vote(poll.ID, "u2", 1)
	require.NoError(t, err)
	results := updated.Results()
	assert.Equal(t, 0, results[0].Votes)
	assert.Equal(t, 2, results[1].Votes)
	assert.InDelta(t, 100.0, results[1].Percent, 0.001)

	updated, outcome, err = module.Vote(poll.ID, "u2", 1)
	require.NoError(t, err)
	assert.Equal(t, VoteRetracted, outcome)
	assert.Len(t, updated.Votes, 1)

	_, _, err = module.Vote(poll.ID, "u3", 7)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	module, _ := newTestModule()
	poll, _ := module.Create("g1", "c1", "creator", "Q", []string{"a", "b"}, 0)
	snapshot, _, _ := module.Vote(poll.ID, "u1", 0)
	snapshot.Votes["u9"] = 1

	current, _, err := module.Vote(poll.ID, "u2", 1)
	require.NoError(t, err)
	assert.Len(t, current.Votes, 2)
	assert.NotContains(t, current.Votes, "u9")
}

func TestTimerClosesPoll(t *testing.T) {
	module, clock := newTestModule()
	var closed []Poll
	module.SetCloser(func(p Poll) { closed = append(closed, p) })

	poll, _ := module.Create("g1", "c1", "creator", "Q", []string{"a", "b"}, time.Minute)
	module.Attach(poll.ID, "m1")
	_, _, _ = module.Vote(poll.ID, "u1", 1)

	clock.Fire()
	require.Len(t, closed, 1)
	assert.True(t, closed[0].Closed)
	assert.Equal(t, "m1", closed[0].MessageID)
	assert.Len(t, closed[0].Votes, 1)

	_, _, err := module.Vote(poll.ID, "u2", 0)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestManualClose(t *testing.T) {
	module, clock := newTestModule()
	fired := false
	module.SetCloser(func(Poll) { fired = true })
	poll, _ := module.Create("g1", "c1", "creator", "Q", []string{"a", "b"}, time.Minute)

	_, err := module.Close(poll.ID, "stranger", false)
	assert.ErrorIs(t, err, ErrNotPollModerator)

	closed, err := module.Close(poll.ID, "creator", false)
	require.NoError(t, err)
	assert.True(t, closed.Closed)

	clock.Fire()
	assert.False(t, fired, "stopped timer must not fire")

	_, err = module.Close(poll.ID, "creator", false)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestCustomIDRoundTrip(t *testing.T) {
	id := CustomID("abc123", 3)
	pollID, option, ok := ParseCustomID(id)
	assert.True(t, ok)
	assert.Equal(t, "abc123", pollID)
	assert.Equal(t, 3, option)

	_, _, ok = ParseCustomID("verify:go")
	assert.False(t, ok)
	_, _, ok = ParseCustomID("poll:abc:x")
	assert.False(t, ok)
}

func TestComponentsChunkButtons(t *testing.T) {
	module := New(10)
	options := []string{"1", "2", "3", "4", "5", "6", "7"}
	poll, err := module.Create("g1", "c1", "u", "Q", options, 0)
	require.NoError(t, err)

	rows := Components(poll)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0].(discordgo.ActionsRow).Components, 5)
	assert.Len(t, rows[1].(discordgo.ActionsRow).Components, 2)

	poll.Closed = true
	assert.Empty(t, Components(poll))
	assert.Contains(t, BuildEmbed(poll, 0).Footer.Text, "closed")
}
