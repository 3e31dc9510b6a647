package starboard

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestObserveLifecycle(t *testing.T) {
	module := New()

	action, _ := module.Observe("g1", "c1", "m1", 2, 3)
	assert.Equal(t, ActionNone, action)

	action, entry := module.Observe("g1", "c1", "m1", 3, 3)
	assert.Equal(t, ActionPost, action)
	assert.Equal(t, 3, entry.Count)

	action, _ = module.Observe("g1", "c1", "m1", 4, 3)
	assert.Equal(t, ActionNone, action, "post in flight")

	bound, ok := module.Bind("m1", "s1")
	assert.True(t, ok)
	assert.Equal(t, 4, bound.Count)

	action, entry = module.Observe("g1", "c1", "m1", 2, 3)
	assert.Equal(t, ActionUpdate, action)
	assert.Equal(t, "s1", entry.StarboardMessageID)

	action, _ = module.Observe("g1", "c1", "m1", 2, 3)
	assert.Equal(t, ActionNone, action)
}

func TestAbortAllowsRetry(t *testing.T) {
	module := New()
	action, _ := module.Observe("g1", "c1", "m1", 5, 3)
	assert.Equal(t, ActionPost, action)

	module.Abort("m1")
	action, _ = module.Observe("g1", "c1", "m1", 5, 3)
	assert.Equal(t, ActionPost, action)
}

func TestBindAfterSourceDeleted(t *testing.T) {
	module := New()
	action, _ := module.Observe("g1", "c1", "m1", 3, 3)
	assert.Equal(t, ActionPost, action)

	_, ok := module.Forget("m1")
	assert.True(t, ok)

	bound, ok := module.Bind("m1", "s1")
	assert.False(t, ok)
	assert.Empty(t, bound.StarboardMessageID)

	action, _ = module.Observe("g1", "c1", "m1", 1, 3)
	assert.Equal(t, ActionNone, action)
}

func TestCountReactionSkipsAuthorAndBots(t *testing.T) {
	msg := &discordgo.Message{Author: &discordgo.User{ID: "author"}}
	users := []*discordgo.User{{ID: "author"}, {ID: "bot", Bot: true}, {ID: "u1"}, {ID: "u2"}, nil}
	assert.Equal(t, 2, CountReaction(msg, users))
}

func TestBuildEmbedUsesAttachment(t *testing.T) {
	msg := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "nice https://example.com/other.gif",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn.discordapp.com/a.png", ContentType: "image/png"},
		},
	}
	embed := BuildEmbed(msg, "g1", 0xFFD700)
	assert.Equal(t, "https://cdn.discordapp.com/a.png", embed.Image.URL)
	assert.Equal(t, "alice", embed.Author.Name)
	assert.Contains(t, embed.Fields[0].Value, "https://discord.com/channels/g1/c1/m1")
	assert.Equal(t, "⭐ **4** | <#c1>", Header("⭐", 4, "c1"))
}
