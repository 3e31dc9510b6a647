package reactionroles

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndResolve(t *testing.T) {
	module := New()
	panel := module.Create("g1", "c1", "")
	assert.Equal(t, "Pick your roles", panel.Title)
	module.Attach(panel.ID, "m1")

	_, err := module.Bind("g1", panel.ID, "🟣", "r-purple")
	require.NoError(t, err)
	_, err = module.Bind("g1", panel.ID, "<:xaver:123>", "r-custom")
	require.NoError(t, err)

	role, ok := module.RoleFor("m1", &discordgo.Emoji{Name: "🟣"})
	assert.True(t, ok)
	assert.Equal(t, "r-purple", role)

	role, ok = module.RoleFor("m1", &discordgo.Emoji{Name: "xaver", ID: "123"})
	assert.True(t, ok)
	assert.Equal(t, "r-custom", role)

	_, ok = module.RoleFor("m2", &discordgo.Emoji{Name: "🟣"})
	assert.False(t, ok)
	_, ok = module.RoleFor("m1", nil)
	assert.False(t, ok)
}

func TestBindRejectsForeignGuild(t *testing.T) {
	module := New()
	panel := module.Create("g1", "c1", "Roles")

	_, err := module.Bind("g2", panel.ID, "🟣", "r1")
	assert.ErrorIs(t, err, ErrPanelNotFound)
	_, err = module.Bind("g1", panel.ID, "  ", "r1")
	assert.ErrorIs(t, err, ErrInvalidEmoji)
}

func TestBindLimit(t *testing.T) {
	module := New()
	panel := module.Create("g1", "c1", "Roles")
	for i := 0; i < maxBindings; i++ {
		_, err := module.Bind("g1", panel.ID, fmt.Sprintf("e%d:%d", i, i), "r")
		require.NoError(t, err)
	}
	_, err := module.Bind("g1", panel.ID, "extra:1", "r")
	assert.ErrorIs(t, err, ErrTooManyBindings)
	_, err = module.Bind("g1", panel.ID, "e0:0", "r-new")
	assert.NoError(t, err, "rebinding an existing emoji stays allowed")
}

func TestNormalizeEmoji(t *testing.T) {
	assert.Equal(t, "party:42", NormalizeEmoji("<a:party:42>"))
	assert.Equal(t, "party:42", NormalizeEmoji("<:party:42>"))
	assert.Equal(t, "⭐", NormalizeEmoji(" ⭐ "))
}

func TestBuildEmbedListsBindings(t *testing.T) {
	module := New()
	panel := module.Create("g1", "c1", "Colors")
	panel, _ = module.Bind("g1", panel.ID, "<:xaver:123>", "r1")
	embed := BuildEmbed(panel, 0)
	assert.Contains(t, embed.Description, "<:xaver:123> → <@&r1>")
}
