package discord

import (
	"strings"

	"crystaltides/internal/application"
	"crystaltides/internal/models"

	"github.com/bwmarrin/discordgo"
)

// interactionUser returns the invoking user for guild and DM interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// userTag renders name#discriminator; migrated accounts have discriminator "0".
func userTag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	return u.Username + "#" + valueOrDefault(u.Discriminator, "0")
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

func renderLinkError(err error) string {
	switch application.KindOf(err) {
	case application.KindNotFound:
		return "That code does not exist. Check it and try again."
	case application.KindExpired:
		return "That code has expired. Generate a new one and try again."
	case application.KindPrerequisiteMissing:
		return "Link your game account first, then redeem this code again."
	case application.KindUnsupportedSource:
		return "This code was issued by Discord. Enter it in game or on the website instead."
	default:
		return "Something went wrong on our side. Please try again later."
	}
}

func identityFields(rec *models.IdentityRecord) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{Name: "Game account", Value: valueOrDefault(rec.GameAccountName, rec.GameID), Inline: true},
		{Name: "Discord", Value: chatValue(rec), Inline: true},
		{Name: "Web profile", Value: linkedOrNot(rec.WebUserID), Inline: true},
	}
}

func chatValue(rec *models.IdentityRecord) string {
	if !rec.HasChat() {
		return "not linked"
	}
	return valueOrDefault(rec.ChatTag, "<@"+rec.ChatID+">")
}

func linkedOrNot(id string) string {
	if id == "" {
		return "not linked"
	}
	return "linked"
}

func memberFromDiscord(m *discordgo.Member) models.Member {
	return models.NewMember(m.User.ID, userTag(m.User), m.User.Username, m.Roles...)
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
