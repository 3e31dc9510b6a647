// Package leveling tracks per-guild XP progression driven by chat activity.
//
// An Engine owns two maps keyed by guild member: the progression records and the
// cooldown gate. Award is the only writer on the hot path; Stats, Top and Rank
// are read-only projections over the same state.
package leveling

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"xaver/internal/config"
)

// ErrInvalidKey is returned when a guild or user id is empty.
var ErrInvalidKey = errors.New("leveling: invalid member key")

type Record struct {
	XP           int
	Level        int
	MessageCount int
	DisplayName  string
	LastSeen     time.Time
}

// Needed is the XP still missing before the next level.
func (r Record) Needed() int {
	return Threshold(r.Level) - r.XP
}

type Entry struct {
	UserID string
	Record Record
}

type AwardResult struct {
	Record    Record
	LeveledUp bool
	Gain      int
}

type Engine struct {
	mu       sync.Mutex
	cfg      config.LevelingConfig
	gain     GainSource
	records  map[string]map[string]*Record
	cooldown *Cooldown
}

func NewEngine(cfg config.LevelingConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		gain:     NewRandomGain(cfg.MinGain, cfg.MaxGain, time.Now().UnixNano()),
		records:  make(map[string]map[string]*Record),
		cooldown: NewCooldown(),
	}
}

func (e *Engine) WithGain(gain GainSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gain = gain
}

func (e *Engine) interval() time.Duration {
	return time.Duration(e.cfg.CooldownSeconds) * time.Second
}

// Award grants XP for one activity event. It returns nil without error when the
// member is still cooling down; a known member's name and last-seen instant
// still follow that message.
func (e *Engine) Award(guildID, userID, displayName string, now time.Time) (*AwardResult, error) {
	if err := validateKey(guildID, userID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cooldown.TryConsume(guildID, userID, now, e.interval()) {
		if record := e.records[guildID][userID]; record != nil {
			record.DisplayName = displayName
			record.LastSeen = now
		}
		return nil, nil
	}

	guild := e.records[guildID]
	if guild == nil {
		guild = make(map[string]*Record)
		e.records[guildID] = guild
	}
	record := guild[userID]
	if record == nil {
		record = &Record{}
		guild[userID] = record
	}

	record.MessageCount++
	record.DisplayName = displayName
	record.LastSeen = now

	gain := e.gain.Gain()
	record.XP += gain

	leveledUp := false
	for record.XP >= Threshold(record.Level) {
		record.XP -= Threshold(record.Level)
		record.Level++
		leveledUp = true
	}

	return &AwardResult{Record: *record, LeveledUp: leveledUp, Gain: gain}, nil
}

// Stats returns the member's record, or the zero record if the member was never seen.
func (e *Engine) Stats(guildID, userID string) Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	if record := e.records[guildID][userID]; record != nil {
		return *record
	}
	return Record{}
}

// Top lists at most n members of a guild ordered by level, then XP.
func (e *Engine) Top(guildID string, n int) []Entry {
	if n <= 0 {
		return nil
	}
	e.mu.Lock()
	entries := e.rankedLocked(guildID)
	e.mu.Unlock()

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Rank is the member's 1-based position on the guild leaderboard.
func (e *Engine) Rank(guildID, userID string) (int, bool) {
	e.mu.Lock()
	entries := e.rankedLocked(guildID)
	e.mu.Unlock()

	for i, entry := range entries {
		if entry.UserID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

func (e *Engine) Reset(guildID, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if guild := e.records[guildID]; guild != nil {
		delete(guild, userID)
		if len(guild) == 0 {
			delete(e.records, guildID)
		}
	}
	e.cooldown.forget(guildID, userID)
}

// Sweep drops members idle for longer than the configured TTL and reports how
// many were removed. A non-positive TTL keeps everything.
func (e *Engine) Sweep(now time.Time) int {
	if e.cfg.IdleTTLHours <= 0 {
		return 0
	}
	cutoff := now.Add(-time.Duration(e.cfg.IdleTTLHours) * time.Hour)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for guildID, guild := range e.records {
		for userID, record := range guild {
			if record.LastSeen.After(cutoff) {
				continue
			}
			delete(guild, userID)
			e.cooldown.forget(guildID, userID)
			removed++
		}
		if len(guild) == 0 {
			delete(e.records, guildID)
		}
	}
	return removed
}

// Len is the number of tracked guild members across all guilds.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, guild := range e.records {
		total += len(guild)
	}
	return total
}

func (e *Engine) rankedLocked(guildID string) []Entry {
	guild := e.records[guildID]
	entries := make([]Entry, 0, len(guild))
	for userID, record := range guild {
		entries = append(entries, Entry{UserID: userID, Record: *record})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Record, entries[j].Record
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

func validateKey(guildID, userID string) error {
	if guildID == "" {
		return fmt.Errorf("%w: empty guild id", ErrInvalidKey)
	}
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidKey)
	}
	return nil
}
