// Package tickets tracks support tickets: one open ticket per member, each
// backed by a private channel that is removed shortly after closing.
package tickets

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

var (
	ErrAlreadyOpen = errors.New("you already have an open ticket")
	ErrNotTicket   = errors.New("this channel is not a ticket")
)

var unsafeChannelChars = regexp.MustCompile(`[^a-z0-9-]+`)

type Ticket struct {
	ID        string
	GuildID   string
	OwnerID   string
	ChannelID string
	OpenedAt  time.Time
	Reason    string
}

type Module struct {
	mu        sync.Mutex
	byOwner   map[string]*Ticket
	byChannel map[string]*Ticket
	schedule  func(d time.Duration, f func())
}

func New() *Module {
	return &Module{
		byOwner:   make(map[string]*Ticket),
		byChannel: make(map[string]*Ticket),
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// WithScheduler replaces the deferred-deletion scheduler.
func (m *Module) WithScheduler(schedule func(d time.Duration, f func())) *Module {
	m.schedule = schedule
	return m
}

// Reserve claims the single ticket slot for a member before the channel exists.
func (m *Module) Reserve(guildID, ownerID, reason string, now time.Time) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := guildID + ":" + ownerID
	if _, exists := m.byOwner[key]; exists {
		return Ticket{}, ErrAlreadyOpen
	}
	ticket := &Ticket{
		ID:       uuid.NewString()[:8],
		GuildID:  guildID,
		OwnerID:  ownerID,
		OpenedAt: now,
		Reason:   strings.TrimSpace(reason),
	}
	m.byOwner[key] = ticket
	return *ticket, nil
}

// Release drops a reservation whose channel could not be created.
func (m *Module) Release(guildID, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := guildID + ":" + ownerID
	if ticket := m.byOwner[key]; ticket != nil {
		delete(m.byChannel, ticket.ChannelID)
		delete(m.byOwner, key)
	}
}

func (m *Module) Bind(guildID, ownerID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket := m.byOwner[guildID+":"+ownerID]; ticket != nil {
		ticket.ChannelID = channelID
		m.byChannel[channelID] = ticket
	}
}

func (m *Module) ByChannel(channelID string) (Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket := m.byChannel[channelID]
	if ticket == nil {
		return Ticket{}, false
	}
	return *ticket, true
}

// Close frees the owner's slot and schedules deleteChannel after delay.
func (m *Module) Close(channelID string, delay time.Duration, deleteChannel func(channelID string)) (Ticket, error) {
	m.mu.Lock()
	ticket := m.byChannel[channelID]
	if ticket == nil {
		m.mu.Unlock()
		return Ticket{}, ErrNotTicket
	}
	delete(m.byChannel, channelID)
	delete(m.byOwner, ticket.GuildID+":"+ticket.OwnerID)
	closed := *ticket
	schedule := m.schedule
	m.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	schedule(delay, func() { deleteChannel(channelID) })
	return closed, nil
}

func (m *Module) OpenCount(guildID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ticket := range m.byOwner {
		if ticket.GuildID == guildID {
			count++
		}
	}
	return count
}

// ChannelName builds "ticket-<username>" restricted to characters Discord keeps in text channel names.
func ChannelName(username string) string {
	name := unsafeChannelChars.ReplaceAllString(strings.ToLower(username), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "member"
	}
	if len(name) > 90 {
		name = name[:90]
	}
	return "ticket-" + name
}

// Overwrites hides the channel from everyone except the owner and the bot.
func Overwrites(guildID, ownerID, botID string) []*discordgo.PermissionOverwrite {
	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory | discordgo.PermissionAttachFiles)
	return []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: allow},
		{ID: botID, Type: discordgo.PermissionOverwriteTypeMember, Allow: allow | discordgo.PermissionManageChannels},
	}
}
