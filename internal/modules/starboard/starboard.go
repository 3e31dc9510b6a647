package starboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"xaver/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type Action int

const (
	ActionNone Action = iota
	ActionPost
	ActionUpdate
)

type Entry struct {
	GuildID            string
	ChannelID          string
	MessageID          string
	StarboardMessageID string
	Count              int
	pending            bool
}

// Module caches which source messages already have a starboard post.
type Module struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func New() *Module {
	return &Module{entries: make(map[string]*Entry)}
}

// Observe records the current reaction count of a message and decides whether
// the starboard needs a new post or an edit.
func (m *Module) Observe(guildID, channelID, messageID string, count, threshold int) (Action, Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[messageID]
	if entry == nil {
		if count < threshold {
			return ActionNone, Entry{GuildID: guildID, ChannelID: channelID, MessageID: messageID, Count: count}
		}
		entry = &Entry{GuildID: guildID, ChannelID: channelID, MessageID: messageID}
		m.entries[messageID] = entry
	}
	changed := entry.Count != count
	entry.Count = count

	switch {
	case entry.pending:
		return ActionNone, *entry
	case entry.StarboardMessageID == "":
		entry.pending = true
		return ActionPost, *entry
	case changed:
		return ActionUpdate, *entry
	default:
		return ActionNone, *entry
	}
}

// Bind stores the starboard message created for a source message and returns
// the entry with the latest observed count. It reports false when the source
// was forgotten while the post was in flight.
func (m *Module) Bind(messageID, starboardMessageID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entries[messageID]
	if entry == nil {
		return Entry{}, false
	}
	entry.StarboardMessageID = starboardMessageID
	entry.pending = false
	return *entry, true
}

// Abort forgets a post that could not be sent so a later reaction retries.
func (m *Module) Abort(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry := m.entries[messageID]; entry != nil && entry.StarboardMessageID == "" {
		delete(m.entries, messageID)
	}
}

func (m *Module) Forget(messageID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entries[messageID]
	if entry == nil {
		return Entry{}, false
	}
	delete(m.entries, messageID)
	return *entry, true
}

// CountReaction counts the human reactors of a message, excluding its author.
func CountReaction(msg *discordgo.Message, users []*discordgo.User) int {
	count := 0
	for _, user := range users {
		if user == nil || user.Bot {
			continue
		}
		if msg != nil && msg.Author != nil && user.ID == msg.Author.ID {
			continue
		}
		count++
	}
	return count
}

func Header(emoji string, count int, channelID string) string {
	return fmt.Sprintf("%s **%d** | <#%s>", emoji, count, channelID)
}

func BuildEmbed(msg *discordgo.Message, guildID string, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: msg.Content,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Source",
			Value: fmt.Sprintf("[Jump to message](https://discord.com/channels/%s/%s/%s)", guildID, msg.ChannelID, msg.ID),
		}},
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.Format(time.RFC3339)
	}
	if msg.Author != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: msg.Author.Username, IconURL: msg.Author.AvatarURL("")}
	}
	if image := imageFor(msg); image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: image}
	}
	return embed
}

func imageFor(msg *discordgo.Message) string {
	for _, attachment := range msg.Attachments {
		if attachment == nil {
			continue
		}
		if strings.HasPrefix(attachment.ContentType, "image/") || utils.IsImageURL(attachment.URL) {
			return attachment.URL
		}
	}
	return utils.FirstImageURL(msg.Content)
}
