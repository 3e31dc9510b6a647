package leveling

import "time"

// Cooldown remembers the last award instant per guild member.
// It is not safe for concurrent use; Engine serialises access.
type Cooldown struct {
	last map[string]time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{last: make(map[string]time.Time)}
}

// TryConsume reports whether an award is allowed at now and records it if so.
// A rejected call leaves the gate untouched.
func (c *Cooldown) TryConsume(guildID, userID string, now time.Time, interval time.Duration) bool {
	key := memberKey(guildID, userID)
	if last, ok := c.last[key]; ok && now.Sub(last) < interval {
		return false
	}
	c.last[key] = now
	return true
}

func (c *Cooldown) lastAward(guildID, userID string) (time.Time, bool) {
	last, ok := c.last[memberKey(guildID, userID)]
	return last, ok
}

func (c *Cooldown) forget(guildID, userID string) {
	delete(c.last, memberKey(guildID, userID))
}

func memberKey(guildID, userID string) string {
	return guildID + ":" + userID
}
