package afk

import (
	"strings"
	"sync"
	"time"
)

const maxReasonLength = 200

type Status struct {
	Reason string
	Since  time.Time
}

type Module struct {
	mu      sync.RWMutex
	entries map[string]Status
}

func New() *Module {
	return &Module{entries: make(map[string]Status)}
}

func (m *Module) Set(guildID, userID, reason string, now time.Time) Status {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "AFK"
	}
	if len([]rune(reason)) > maxReasonLength {
		reason = string([]rune(reason)[:maxReasonLength])
	}
	status := Status{Reason: reason, Since: now}

	m.mu.Lock()
	m.entries[guildID+":"+userID] = status
	m.mu.Unlock()
	return status
}

// Clear removes the AFK status and returns what was set, if anything.
func (m *Module) Clear(guildID, userID string) (Status, bool) {
	key := guildID + ":" + userID
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	return status, ok
}

func (m *Module) Get(guildID, userID string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.entries[guildID+":"+userID]
	return status, ok
}

type Mention struct {
	UserID string
	Status Status
}

// Mentioned returns the AFK statuses of the mentioned users, skipping the author.
func (m *Module) Mentioned(guildID, authorID string, mentionIDs []string) []Mention {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{}, len(mentionIDs))
	var result []Mention
	for _, id := range mentionIDs {
		if id == authorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if status, ok := m.entries[guildID+":"+id]; ok {
			result = append(result, Mention{UserID: id, Status: status})
		}
	}
	return result
}
