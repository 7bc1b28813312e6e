package discord

import (
	"context"
	"fmt"
	"strings"

	"crystaltides/internal/application"

	"github.com/bwmarrin/discordgo"
)

type Config struct {
	AppID            string
	GuildID          string
	AdminUserIDs     []string
	RegisterCommands bool
}

type Bot struct {
	session  *discordgo.Session
	services *application.Service
	logger   application.Logger
	cfg      Config

	adminIDs map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an unopened session with the intents the bot needs.
// Listing guild members requires the privileged members intent.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return s, nil
}

func NewBot(session *discordgo.Session, cfg Config, services *application.Service, logger application.Logger) *Bot {
	admins := make(map[string]struct{})
	for _, id := range cfg.AdminUserIDs {
		cleanID := strings.TrimSpace(id)
		if cleanID != "" {
			admins[cleanID] = struct{}{}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		session:  session,
		services: services,
		logger:   logger,
		cfg:      cfg,
		adminIDs: admins,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (b *Bot) Init() error {
	if b.cfg.GuildID == "" {
		return fmt.Errorf("discord guild id is required")
	}
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)
	return nil
}

func (b *Bot) Run(ctx context.Context) {
	if err := b.session.Open(); err != nil {
		b.logger.Error("Failed to open discord session: %v", err)
		return
	}
	b.logger.Info("Discord Bot Started")

	if b.cfg.RegisterCommands {
		appID := b.cfg.AppID
		if appID == "" {
			appID = b.session.State.User.ID
		}
		if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, Commands()); err != nil {
			b.logger.Error("Failed to register commands: %v", err)
		} else {
			b.logger.Info("Slash commands registered for guild %s", b.cfg.GuildID)
		}
	}

	select {
	case <-ctx.Done():
	case <-b.ctx.Done():
	}
}

func (b *Bot) Stop() {
	b.cancel()
	if err := b.session.Close(); err != nil {
		b.logger.Warn("Failed to close discord session: %v", err)
	}
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in as %s", userTag(r.User))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case cmdLink:
		b.handleLink(s, i.Interaction)
	case cmdLinkStatus:
		b.handleLinkStatus(s, i.Interaction)
	case cmdSync:
		b.ensureAdmin(s, i.Interaction, b.handleSync)
	case cmdExport:
		b.ensureAdmin(s, i.Interaction, b.handleExport)
	case cmdSyncSheet:
		b.ensureAdmin(s, i.Interaction, b.handleSyncSheet)
	}
}
