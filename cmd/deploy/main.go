// Command deploy registers the bot's slash commands with Discord.
package main

import (
	"fmt"
	"os"

	"crystaltides/internal/delivery/discord"
	"crystaltides/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type deployConfig struct {
	Token   string `env:"DISCORD_TOKEN,required"`
	AppID   string `env:"DISCORD_APP_ID,required"`
	GuildID string `env:"DISCORD_GUILD_ID"`
}

func main() {
	_ = godotenv.Load()

	var cfg deployConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	guildID := pflag.String("guild", cfg.GuildID, "guild to register commands in; empty skips guild registration")
	global := pflag.Bool("global", true, "also register commands globally")
	wipe := pflag.Bool("clear", false, "remove all commands instead of registering them")
	pflag.Parse()

	log := logger.NewLogger(&logger.Config{Level: "info", Format: "console"})

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Error("failed to create discord session: %v", err)
		os.Exit(1)
	}

	commands := discord.Commands()
	if *wipe {
		commands = []*discordgo.ApplicationCommand{}
	}

	if *guildID != "" {
		log.Info("Registering %d commands for guild %s", len(commands), *guildID)
		if _, err := session.ApplicationCommandBulkOverwrite(cfg.AppID, *guildID, commands); err != nil {
			log.Error("guild registration failed: %v", err)
			os.Exit(1)
		}
	}

	if *global {
		log.Info("Registering %d commands globally", len(commands))
		if _, err := session.ApplicationCommandBulkOverwrite(cfg.AppID, "", commands); err != nil {
			log.Error("global registration failed: %v", err)
			os.Exit(1)
		}
	}

	log.Info("Application commands refreshed")
}
