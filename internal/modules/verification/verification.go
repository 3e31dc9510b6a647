package verification

import (
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const CustomID = "verify:go"

type Outcome int

const (
	OutcomeGrant Outcome = iota
	OutcomeAlreadyVerified
	OutcomeNotConfigured
)

// Decide reports what a press of the verify button should do for a member.
func Decide(memberRoles []string, verifyRoleID string) Outcome {
	if verifyRoleID == "" {
		return OutcomeNotConfigured
	}
	if lo.Contains(memberRoles, verifyRoleID) {
		return OutcomeAlreadyVerified
	}
	return OutcomeGrant
}

func (o Outcome) Message() string {
	switch o {
	case OutcomeAlreadyVerified:
		return "You are already verified."
	case OutcomeNotConfigured:
		return "Verification is not set up yet. Ask an admin to run /config role."
	default:
		return "You are verified. Welcome in! 💜"
	}
}

func Panel(color int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title:       "Verification",
		Description: "Press the button below to confirm you are human and unlock the server.",
		Color:       color,
	}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Verify",
				Style:    discordgo.SuccessButton,
				CustomID: CustomID,
				Emoji:    discordgo.ComponentEmoji{Name: "✅"},
			},
		}},
	}
	return embed, components
}
