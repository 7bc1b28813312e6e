package audit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	colorBlue   = 0x3498DB
	colorYellow = 0xF1C40F
	colorRed    = 0xE74C3C
	colorGreen  = 0x2ECC71
	colorPurple = 0x9B59B6
	colorGray   = 0x95A5A6
)

func levelColor(level Level) int {
	switch level {
	case LevelInfo:
		return colorBlue
	case LevelWarn:
		return colorYellow
	case LevelError:
		return colorRed
	case LevelSuccess:
		return colorGreen
	case LevelAction:
		return colorPurple
	default:
		return colorGray
	}
}

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Webhook posts entries as embeds to a Discord channel webhook.
type Webhook struct {
	session   webhookExecutor
	webhookID string
	token     string
}

func NewWebhook(webhookURL string) (*Webhook, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &Webhook{session: s, webhookID: id, token: token}, nil
}

// ParseWebhookURL extracts id and token from .../api/webhooks/{id}/{token}.
func ParseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook url: missing id or token")
}

func (w *Webhook) Name() string { return "discord-webhook" }

func (w *Webhook) Send(ctx context.Context, e Entry) error {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Message,
		Color:       levelColor(e.Level),
		Timestamp:   e.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	_, err := w.session.WebhookExecute(w.webhookID, w.token, false,
		&discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}},
		discordgo.WithContext(ctx))
	return err
}
