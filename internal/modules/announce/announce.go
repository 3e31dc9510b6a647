package announce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xaver/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	maxTitle       = 256
	maxDescription = 4096
)

var (
	ErrEmptyTitle   = errors.New("announcement title is empty")
	ErrEmptyMessage = errors.New("announcement message is empty")
	ErrInvalidColor = errors.New("color must be a hex value like #A855F7")
)

type Request struct {
	Title        string
	Message      string
	Color        string
	ImageURL     string
	PingEveryone bool
	AuthorName   string
}

// Build turns a request into a message ready for ChannelMessageSendComplex.
// A literal "\n" in the message becomes a line break.
func Build(req Request, defaultColor int, now time.Time) (*discordgo.MessageSend, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	body := strings.TrimSpace(strings.ReplaceAll(req.Message, `\n`, "\n"))
	if body == "" {
		return nil, ErrEmptyMessage
	}

	color := defaultColor
	if strings.TrimSpace(req.Color) != "" {
		parsed, err := ParseColor(req.Color)
		if err != nil {
			return nil, err
		}
		color = parsed
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(title, maxTitle),
		Description: truncate(body, maxDescription),
		Color:       color,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	if req.AuthorName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Announced by " + req.AuthorName}
	}
	if strings.TrimSpace(req.ImageURL) != "" {
		normalized, _, err := utils.NormalizeURL(req.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("image url: %w", err)
		}
		embed.Image = &discordgo.MessageEmbedImage{URL: normalized}
	}

	send := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if req.PingEveryone {
		send.Content = "@everyone"
		send.AllowedMentions.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
	}
	return send, nil
}

func ParseColor(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "0x")
	if len(raw) != 6 {
		return 0, ErrInvalidColor
	}
	value, err := strconv.ParseInt(raw, 16, 32)
	if err != nil {
		return 0, ErrInvalidColor
	}
	return int(value), nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
