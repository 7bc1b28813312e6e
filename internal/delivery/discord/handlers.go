package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"crystaltides/internal/application"
	"crystaltides/internal/models"

	"github.com/bwmarrin/discordgo"
)

// handleLink acknowledges first: issuing or redeeming goes through the store
// and a merge may be retried, which can outlast the interaction deadline.
func (b *Bot) handleLink(s responder, i *discordgo.Interaction) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	if !b.deferReply(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	code := optionString(i.ApplicationCommandData().Options, optCode)
	if code == "" {
		b.issueChatCode(ctx, s, i, user)
		return
	}

	res, err := b.services.LinkService.LinkChat(ctx, code, user.ID, userTag(user))
	if err != nil {
		b.editText(s, i, renderLinkError(err))
		return
	}

	b.editEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Account linked",
		Description: res.Message,
		Color:       colorGreen,
		Fields:      identityFields(&res.Record),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) issueChatCode(ctx context.Context, s responder, i *discordgo.Interaction, user *discordgo.User) {
	lc, err := b.services.LinkCodeService.Issue(ctx, models.SourceChat, user.ID, userTag(user))
	if err != nil {
		b.logger.Error("Failed to issue link code for %s: %v", user.ID, err)
		b.editText(s, i, renderLinkError(err))
		return
	}

	b.editEmbed(s, i, &discordgo.MessageEmbed{
		Title: "Your link code",
		Description: fmt.Sprintf("Enter this code on your CrystalTides profile page or in game with `/link`:\n\n```\n%s\n```\nExpires <t:%d:R>.",
			lc.Code, lc.ExpiresAt.Unix()),
		Color:  colorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) handleLinkStatus(s responder, i *discordgo.Interaction) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	rec, err := b.services.LinkService.IdentityByChat(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to load identity for %s: %v", user.ID, err)
		b.respondMessage(s, i, renderLinkError(err), true)
		return
	}
	if rec == nil {
		b.respondMessage(s, i, "Your Discord account is not linked yet. Run `/link` in game to get a code.", true)
		return
	}

	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:  "Linked accounts",
		Color:  colorGray,
		Fields: identityFields(rec),
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) handleSync(s responder, i *discordgo.Interaction) {
	if !b.deferReply(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, syncTimeout)
	defer cancel()

	report, err := b.services.ReconcileService.Run(ctx)
	var content string
	switch {
	case errors.Is(err, application.ErrAlreadyRunning):
		content = "A verification pass is already running."
	case err != nil:
		b.logger.Error("Manual sync failed: %v", err)
		content = "Verification failed. Check the audit log for details."
	default:
		content = fmt.Sprintf("Verification complete: %d candidates, %d verified, %d unverified. Roles added %d, removed %d, failed %d.",
			report.Candidates, report.Verified, report.Unverified, report.Added, report.Removed, report.Failed)
	}
	b.editReply(s, i, &discordgo.WebhookEdit{Content: &content})
}

func (b *Bot) handleExport(s responder, i *discordgo.Interaction) {
	if !b.deferReply(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	data, err := b.services.RosterService.ExportExcel(ctx)
	if err != nil {
		b.logger.Error("Export error: %v", err)
		content := "Export failed: " + err.Error()
		b.editReply(s, i, &discordgo.WebhookEdit{Content: &content})
		return
	}

	content := "Your export is ready."
	b.editReply(s, i, &discordgo.WebhookEdit{
		Content: &content,
		Files: []*discordgo.File{
			{Name: exportFileName, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Reader: bytes.NewReader(data)},
		},
	})
}

func (b *Bot) handleSyncSheet(s responder, i *discordgo.Interaction) {
	if !b.deferReply(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	url, err := b.services.RosterService.SyncSheet(ctx)
	var content string
	switch {
	case errors.Is(err, application.ErrNotConfigured):
		content = "Google Sheets is not configured."
	case err != nil:
		b.logger.Error("Sheet sync error: %v", err)
		content = "Sheet sync failed: " + err.Error()
	default:
		content = fmt.Sprintf("Sheet updated.\nLink: %s", url)
	}
	b.editReply(s, i, &discordgo.WebhookEdit{Content: &content})
}
