package moderation

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"10m":   10 * time.Minute,
		"1h30m": 90 * time.Minute,
		"2d":    48 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		"15":    15 * time.Minute,
		"28d":   MaxTimeout,
	}
	for raw, want := range cases {
		got, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseDurationRejects(t *testing.T) {
	_, err := ParseDuration("")
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = ParseDuration("soon")
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = ParseDuration("29d")
	assert.ErrorIs(t, err, ErrDurationRange)
	_, err = ParseDuration("500ms")
	assert.ErrorIs(t, err, ErrDurationRange)
	_, err = ParseDuration("0")
	assert.ErrorIs(t, err, ErrDurationRange)
}

func TestValidateBounds(t *testing.T) {
	assert.NoError(t, ValidatePurge(1, 100))
	assert.NoError(t, ValidatePurge(100, 100))
	assert.ErrorIs(t, ValidatePurge(0, 100), ErrPurgeRange)
	assert.ErrorIs(t, ValidatePurge(51, 50), ErrPurgeRange)
	assert.NoError(t, ValidateDeleteDays(0))
	assert.NoError(t, ValidateDeleteDays(7))
	assert.ErrorIs(t, ValidateDeleteDays(8), ErrDeleteDays)
}

func TestPurgeableSkipsOldAndPinned(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	messages := []*discordgo.Message{
		{ID: "1", Timestamp: now.Add(-time.Minute)},
		{ID: "2", Timestamp: now.Add(-time.Hour), Pinned: true},
		{ID: "3", Timestamp: now.Add(-15 * 24 * time.Hour)},
		{ID: "4", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "5", Timestamp: now.Add(-3 * time.Hour)},
	}
	assert.Equal(t, []string{"1", "4", "5"}, Purgeable(messages, now, 10))
	assert.Equal(t, []string{"1", "4"}, Purgeable(messages, now, 2))
}

func TestShouldAutoTimeout(t *testing.T) {
	assert.False(t, ShouldAutoTimeout(2, 3))
	assert.True(t, ShouldAutoTimeout(3, 3))
	assert.True(t, ShouldAutoTimeout(4, 3))
	assert.False(t, ShouldAutoTimeout(10, 0))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "No reason provided", Reason("  ", "No reason provided"))
	assert.Equal(t, "spam", Reason(" spam ", "x"))
}

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0, Permissions: discordgo.PermissionSendMessages},
			{ID: "mod", Position: 5, Permissions: discordgo.PermissionKickMembers | discordgo.PermissionModerateMembers},
			{ID: "admin", Position: 10, Permissions: discordgo.PermissionAdministrator},
		},
	}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func TestPermissions(t *testing.T) {
	guild := testGuild()

	perms := Permissions(guild, member("m", "mod"))
	assert.True(t, HasPermission(perms, discordgo.PermissionKickMembers))
	assert.True(t, HasPermission(perms, discordgo.PermissionSendMessages))
	assert.False(t, HasPermission(perms, discordgo.PermissionBanMembers))

	admin := Permissions(guild, member("a", "admin"))
	assert.True(t, HasPermission(admin, discordgo.PermissionBanMembers))

	assert.Equal(t, int64(discordgo.PermissionAll), Permissions(guild, member("owner")))
	assert.Zero(t, Permissions(nil, member("m")))
}

func TestOutranks(t *testing.T) {
	guild := testGuild()
	mod := member("m", "mod")
	admin := member("a", "admin")
	plain := member("p")
	owner := member("owner")

	assert.True(t, Outranks(guild, admin, mod))
	assert.False(t, Outranks(guild, mod, admin))
	assert.True(t, Outranks(guild, mod, plain))
	assert.False(t, Outranks(guild, mod, member("m2", "mod")))
	assert.True(t, Outranks(guild, owner, admin))
	assert.False(t, Outranks(guild, admin, owner))
	assert.True(t, Outranks(guild, mod, nil))
}
