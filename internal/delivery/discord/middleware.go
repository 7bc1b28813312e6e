package discord

import (
	"github.com/bwmarrin/discordgo"
)

// responder is the part of the session that answers interactions.
type responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

func (b *Bot) respondMessage(s responder, i *discordgo.Interaction, msg string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   flags,
		},
	})
	if err != nil {
		b.logger.Error("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEmbed(s responder, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("Failed to respond to interaction: %v", err)
	}
}

// deferReply acknowledges a slow command privately; finish with editReply.
func (b *Bot) deferReply(s responder, i *discordgo.Interaction) bool {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("Failed to defer interaction: %v", err)
		return false
	}
	return true
}

func (b *Bot) editReply(s responder, i *discordgo.Interaction, edit *discordgo.WebhookEdit) {
	if _, err := s.InteractionResponseEdit(i, edit); err != nil {
		b.logger.Error("Failed to edit interaction response: %v", err)
	}
}

func (b *Bot) editText(s responder, i *discordgo.Interaction, content string) {
	b.editReply(s, i, &discordgo.WebhookEdit{Content: &content})
}

func (b *Bot) editEmbed(s responder, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	b.editReply(s, i, &discordgo.WebhookEdit{Embeds: &[]*discordgo.MessageEmbed{embed}})
}

func (b *Bot) ensureAdmin(s responder, i *discordgo.Interaction, handler func(responder, *discordgo.Interaction)) {
	user := interactionUser(i)
	if user == nil || !b.isAdmin(user.ID) {
		b.respondMessage(s, i, "You do not have permission to use this command.", true)
		return
	}
	handler(s, i)
}
