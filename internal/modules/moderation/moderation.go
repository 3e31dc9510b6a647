// Package moderation holds the rules behind the moderation commands:
// duration and amount bounds, warning escalation and role hierarchy.
package moderation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

const (
	MinTimeout     = time.Second
	MaxTimeout     = 28 * 24 * time.Hour
	MaxDeleteDays  = 7
	BulkDeleteAge  = 14 * 24 * time.Hour
	MaxReasonRunes = 512
)

var (
	ErrInvalidDuration = errors.New("invalid duration, try 10m, 2h or 1d")
	ErrDurationRange   = errors.New("duration must be between 1s and 28d")
	ErrPurgeRange      = errors.New("amount out of range")
	ErrDeleteDays      = errors.New("delete_days must be between 0 and 7")
)

// ParseDuration accepts str2duration strings ("1h30m", "2d") and bare numbers as minutes.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return 0, ErrInvalidDuration
	}
	if minutes, err := strconv.Atoi(raw); err == nil {
		return checkTimeout(time.Duration(minutes) * time.Minute)
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}
	return checkTimeout(d)
}

func checkTimeout(d time.Duration) (time.Duration, error) {
	if d < MinTimeout || d > MaxTimeout {
		return 0, ErrDurationRange
	}
	return d, nil
}

func FormatDuration(d time.Duration) string {
	return str2duration.String(d)
}

func ValidatePurge(amount, max int) error {
	if max <= 0 || max > 100 {
		max = 100
	}
	if amount < 1 || amount > max {
		return fmt.Errorf("%w: pick 1..%d", ErrPurgeRange, max)
	}
	return nil
}

func ValidateDeleteDays(days int) error {
	if days < 0 || days > MaxDeleteDays {
		return ErrDeleteDays
	}
	return nil
}

// Purgeable returns the ids of messages young enough for bulk deletion, newest first, at most limit.
func Purgeable(messages []*discordgo.Message, now time.Time, limit int) []string {
	fresh := lo.Filter(messages, func(msg *discordgo.Message, _ int) bool {
		return msg != nil && !msg.Pinned && now.Sub(msg.Timestamp) < BulkDeleteAge
	})
	ids := lo.Map(fresh, func(msg *discordgo.Message, _ int) string { return msg.ID })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// ShouldAutoTimeout reports whether a warning count has reached the escalation point; threshold 0 disables it.
func ShouldAutoTimeout(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}

func Reason(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	runes := []rune(raw)
	if len(runes) > MaxReasonRunes {
		return string(runes[:MaxReasonRunes])
	}
	return raw
}

// Permissions folds @everyone and the member's role permissions.
func Permissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}
	roles := lo.SliceToMap(guild.Roles, func(role *discordgo.Role) (string, *discordgo.Role) {
		return role.ID, role
	})
	perms := int64(0)
	if everyone := roles[guild.ID]; everyone != nil {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role := roles[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func HasPermission(perms, want int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&want == want
}

// TopPosition is the highest role position the member holds.
func TopPosition(guild *discordgo.Guild, member *discordgo.Member) int {
	if guild == nil || member == nil {
		return 0
	}
	top := 0
	for _, role := range guild.Roles {
		if lo.Contains(member.Roles, role.ID) && role.Position > top {
			top = role.Position
		}
	}
	return top
}

// Outranks reports whether actor may act on target; the guild owner outranks everyone.
func Outranks(guild *discordgo.Guild, actor, target *discordgo.Member) bool {
	if guild == nil || actor == nil || actor.User == nil {
		return false
	}
	if target == nil || target.User == nil {
		return true
	}
	if target.User.ID == guild.OwnerID {
		return false
	}
	if actor.User.ID == guild.OwnerID {
		return true
	}
	return TopPosition(guild, actor) > TopPosition(guild, target)
}
