package reactionroles

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const maxBindings = 20

var (
	ErrPanelNotFound   = errors.New("reaction-role panel not found")
	ErrTooManyBindings = errors.New("panel already has the maximum number of roles")
	ErrInvalidEmoji    = errors.New("invalid emoji")
)

type Panel struct {
	ID        string
	GuildID   string
	ChannelID string
	MessageID string
	Title     string
	Bindings  map[string]string
}

type Module struct {
	mu        sync.RWMutex
	panels    map[string]*Panel
	byMessage map[string]string
}

func New() *Module {
	return &Module{
		panels:    make(map[string]*Panel),
		byMessage: make(map[string]string),
	}
}

func (m *Module) Create(guildID, channelID, title string) Panel {
	panel := &Panel{
		ID:        uuid.NewString()[:8],
		GuildID:   guildID,
		ChannelID: channelID,
		Title:     strings.TrimSpace(title),
		Bindings:  make(map[string]string),
	}
	if panel.Title == "" {
		panel.Title = "Pick your roles"
	}
	m.mu.Lock()
	m.panels[panel.ID] = panel
	m.mu.Unlock()
	return panel.snapshot()
}

func (m *Module) Attach(panelID, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if panel := m.panels[panelID]; panel != nil {
		panel.MessageID = messageID
		m.byMessage[messageID] = panelID
	}
}

// Bind maps an emoji on a guild's panel to a role. Rebinding an emoji replaces its role.
func (m *Module) Bind(guildID, panelID, emoji, roleID string) (Panel, error) {
	key := NormalizeEmoji(emoji)
	if key == "" {
		return Panel{}, ErrInvalidEmoji
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	panel := m.panels[panelID]
	if panel == nil || panel.GuildID != guildID {
		return Panel{}, ErrPanelNotFound
	}
	if _, exists := panel.Bindings[key]; !exists && len(panel.Bindings) >= maxBindings {
		return Panel{}, ErrTooManyBindings
	}
	panel.Bindings[key] = roleID
	return panel.snapshot(), nil
}

// RoleFor resolves the role bound to a reaction on a panel message.
func (m *Module) RoleFor(messageID string, emoji *discordgo.Emoji) (string, bool) {
	if emoji == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	panel := m.panels[m.byMessage[messageID]]
	if panel == nil {
		return "", false
	}
	roleID, ok := panel.Bindings[NormalizeEmoji(emoji.APIName())]
	return roleID, ok
}

// NormalizeEmoji turns "<:name:id>", "<a:name:id>" and "name:id" into the
// "name:id" form used by reaction events; unicode emoji are returned trimmed.
func NormalizeEmoji(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
		raw = strings.TrimPrefix(raw, "a:")
		raw = strings.TrimPrefix(raw, ":")
	}
	return raw
}

func (p *Panel) snapshot() Panel {
	clone := *p
	clone.Bindings = make(map[string]string, len(p.Bindings))
	for emoji, role := range p.Bindings {
		clone.Bindings[emoji] = role
	}
	return clone
}

func BuildEmbed(p Panel, color int) *discordgo.MessageEmbed {
	keys := make([]string, 0, len(p.Bindings))
	for emoji := range p.Bindings {
		keys = append(keys, emoji)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, emoji := range keys {
		lines = append(lines, fmt.Sprintf("%s → <@&%s>", displayEmoji(emoji), p.Bindings[emoji]))
	}
	description := "React below to pick a role. Remove your reaction to drop it."
	if len(lines) > 0 {
		description += "\n\n" + strings.Join(lines, "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Panel " + p.ID},
	}
}

func displayEmoji(key string) string {
	if strings.Contains(key, ":") {
		return "<:" + key + ">"
	}
	return key
}
