// Package polls runs button polls: one vote per member, closed by a timer or
// by hand.
package polls

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const customIDPrefix = "poll:"

var (
	ErrPollNotFound     = errors.New("poll not found or already closed")
	ErrInvalidOption    = errors.New("invalid poll option")
	ErrTooFewOptions    = errors.New("a poll needs at least two options")
	ErrTooManyOptions   = errors.New("too many poll options")
	ErrEmptyQuestion    = errors.New("poll question is empty")
	ErrNotPollModerator = errors.New("only the creator or a moderator can close this poll")
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

type Poll struct {
	ID        string
	GuildID   string
	ChannelID string
	MessageID string
	CreatorID string
	Question  string
	Options   []string
	Votes     map[string]int
	EndsAt    time.Time
	Closed    bool
}

type Result struct {
	Option  string
	Votes   int
	Percent float64
}

type VoteOutcome int

const (
	VoteCast VoteOutcome = iota
	VoteChanged
	VoteRetracted
)

type Module struct {
	mu         sync.Mutex
	clock      Clock
	maxOptions int
	polls      map[string]*Poll
	timers     map[string]Timer
	onClose    func(Poll)
}

func New(maxOptions int) *Module {
	if maxOptions < 2 {
		maxOptions = 10
	}
	return &Module{
		clock:      realClock{},
		maxOptions: maxOptions,
		polls:      make(map[string]*Poll),
		timers:     make(map[string]Timer),
	}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// SetCloser registers the callback run when a poll's timer fires.
func (m *Module) SetCloser(onClose func(Poll)) {
	m.onClose = onClose
}

// ParseOptions splits a ";"-separated option list, dropping blanks and duplicates.
func (m *Module) ParseOptions(raw string) ([]string, error) {
	parts := lo.Map(strings.Split(raw, ";"), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	options := lo.Uniq(lo.Compact(parts))
	if len(options) < 2 {
		return nil, ErrTooFewOptions
	}
	if len(options) > m.maxOptions {
		return nil, fmt.Errorf("%w: max %d", ErrTooManyOptions, m.maxOptions)
	}
	return options, nil
}

func (m *Module) Create(guildID, channelID, creatorID, question string, options []string, duration time.Duration) (Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Poll{}, ErrEmptyQuestion
	}
	if len(options) < 2 {
		return Poll{}, ErrTooFewOptions
	}
	if len(options) > m.maxOptions {
		return Poll{}, ErrTooManyOptions
	}

	poll := &Poll{
		ID:        uuid.NewString()[:8],
		GuildID:   guildID,
		ChannelID: channelID,
		CreatorID: creatorID,
		Question:  question,
		Options:   append([]string(nil), options...),
		Votes:     make(map[string]int),
		EndsAt:    m.clock.Now().Add(duration),
	}

	m.mu.Lock()
	m.polls[poll.ID] = poll
	if duration > 0 {
		id := poll.ID
		m.timers[id] = m.clock.AfterFunc(duration, func() { m.expire(id) })
	}
	snapshot := poll.snapshot()
	m.mu.Unlock()
	return snapshot, nil
}

// Attach records the message that displays the poll.
func (m *Module) Attach(pollID, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if poll := m.polls[pollID]; poll != nil {
		poll.MessageID = messageID
	}
}

// Vote casts, switches, or (when repeating the same choice) retracts a vote.
func (m *Module) Vote(pollID, userID string, option int) (Poll, VoteOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	poll := m.polls[pollID]
	if poll == nil || poll.Closed {
		return Poll{}, VoteCast, ErrPollNotFound
	}
	if option < 0 || option >= len(poll.Options) {
		return Poll{}, VoteCast, ErrInvalidOption
	}

	outcome := VoteCast
	if previous, voted := poll.Votes[userID]; voted {
		if previous == option {
			delete(poll.Votes, userID)
			return poll.snapshot(), VoteRetracted, nil
		}
		outcome = VoteChanged
	}
	poll.Votes[userID] = option
	return poll.snapshot(), outcome, nil
}

// Close ends a poll on behalf of userID. Moderators may close any poll.
func (m *Module) Close(pollID, userID string, moderator bool) (Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	poll := m.polls[pollID]
	if poll == nil {
		return Poll{}, ErrPollNotFound
	}
	if !moderator && poll.CreatorID != userID {
		return Poll{}, ErrNotPollModerator
	}
	return m.closeLocked(poll), nil
}

func (m *Module) expire(pollID string) {
	m.mu.Lock()
	poll := m.polls[pollID]
	if poll == nil {
		m.mu.Unlock()
		return
	}
	snapshot := m.closeLocked(poll)
	onClose := m.onClose
	m.mu.Unlock()

	if onClose != nil {
		onClose(snapshot)
	}
}

func (m *Module) closeLocked(poll *Poll) Poll {
	if timer := m.timers[poll.ID]; timer != nil {
		timer.Stop()
		delete(m.timers, poll.ID)
	}
	poll.Closed = true
	delete(m.polls, poll.ID)
	return poll.snapshot()
}

func (p *Poll) snapshot() Poll {
	clone := *p
	clone.Options = append([]string(nil), p.Options...)
	clone.Votes = make(map[string]int, len(p.Votes))
	for user, option := range p.Votes {
		clone.Votes[user] = option
	}
	return clone
}

func (p Poll) Results() []Result {
	counts := make([]int, len(p.Options))
	for _, option := range p.Votes {
		if option >= 0 && option < len(counts) {
			counts[option]++
		}
	}
	total := len(p.Votes)
	return lo.Map(p.Options, func(option string, i int) Result {
		percent := 0.0
		if total > 0 {
			percent = float64(counts[i]) * 100 / float64(total)
		}
		return Result{Option: option, Votes: counts[i], Percent: percent}
	})
}

func CustomID(pollID string, option int) string {
	return fmt.Sprintf("%s%s:%d", customIDPrefix, pollID, option)
}

func ParseCustomID(customID string) (string, int, bool) {
	if !strings.HasPrefix(customID, customIDPrefix) {
		return "", 0, false
	}
	rest := strings.TrimPrefix(customID, customIDPrefix)
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, false
	}
	option, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:idx], option, true
}

func BuildEmbed(p Poll, color int) *discordgo.MessageEmbed {
	lines := lo.Map(p.Results(), func(r Result, i int) string {
		return fmt.Sprintf("**%d.** %s\n%s %d vote(s) (%.0f%%)", i+1, r.Option, bar(r.Percent), r.Votes, r.Percent)
	})
	footer := fmt.Sprintf("Poll %s • %d vote(s)", p.ID, len(p.Votes))
	if p.Closed {
		footer += " • closed"
	} else if !p.EndsAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Ends <t:%d:R>", p.EndsAt.Unix()))
	}
	return &discordgo.MessageEmbed{
		Title:       "📊 " + p.Question,
		Description: strings.Join(lines, "\n\n"),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

func Components(p Poll) []discordgo.MessageComponent {
	if p.Closed {
		return []discordgo.MessageComponent{}
	}
	var rows []discordgo.MessageComponent
	for _, chunk := range lo.Chunk(lo.Range(len(p.Options)), 5) {
		buttons := lo.Map(chunk, func(i int, _ int) discordgo.MessageComponent {
			return discordgo.Button{
				Label:    truncate(fmt.Sprintf("%d. %s", i+1, p.Options[i]), 80),
				Style:    discordgo.PrimaryButton,
				CustomID: CustomID(p.ID, i),
			}
		})
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func bar(percent float64) string {
	filled := int(percent/10 + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
