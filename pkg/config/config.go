package config

import (
	"errors"
	"fmt"
	"time"

	"crystaltides/internal/repository"
	"crystaltides/pkg/logger"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo   repository.Config `envPrefix:"REPO_"`
	Logger logger.Config     `envPrefix:"LOGGER_"`

	Discord  DiscordConfig
	Audit    AuditConfig
	Sync     SyncConfig
	LinkCode LinkCodeConfig
	HTTP     HTTPConfig
	Google   GoogleConfig

	RedisURL string `env:"REDIS_URL" envDefault:""`
}

type DiscordConfig struct {
	Token            string   `env:"DISCORD_TOKEN" envDefault:""`
	AppID            string   `env:"DISCORD_APP_ID" envDefault:""`
	GuildID          string   `env:"DISCORD_GUILD_ID" envDefault:""`
	CandidateRoleID  string   `env:"DISCORD_ROLE_CANDIDATE" envDefault:""`
	VerifiedRoleID   string   `env:"DISCORD_ROLE_VERIFIED" envDefault:""`
	UnverifiedRoleID string   `env:"DISCORD_ROLE_UNVERIFIED" envDefault:""`
	AdminUserIDs     []string `env:"ADMIN_USER_IDS" envSeparator:"," envDefault:""`
	RegisterCommands bool     `env:"DISCORD_REGISTER_COMMANDS" envDefault:"true"`
}

type AuditConfig struct {
	WebhookURL           string  `env:"AUDIT_WEBHOOK_URL" envDefault:""`
	TelegramToken        string  `env:"TELEGRAM_TOKEN" envDefault:""`
	TelegramAdminChatIDs []int64 `env:"TELEGRAM_ADMIN_CHAT_IDS" envSeparator:"," envDefault:""`
}

type SyncConfig struct {
	Interval      time.Duration `env:"SYNC_INTERVAL" envDefault:"30m"`
	MemberTimeout time.Duration `env:"SYNC_MEMBER_TIMEOUT" envDefault:"10s"`
}

type LinkCodeConfig struct {
	TTL           time.Duration `env:"LINK_CODE_TTL" envDefault:"15m"`
	SweepInterval time.Duration `env:"LINK_CODE_SWEEP_INTERVAL" envDefault:"0"`
}

type HTTPConfig struct {
	Addr   string `env:"HTTP_ADDR" envDefault:":8080"`
	APIKey string `env:"API_KEY" envDefault:""`
}

type GoogleConfig struct {
	CredentialsPath string `env:"GOOGLE_CREDENTIALS_PATH" envDefault:""`
	SpreadsheetID   string `env:"GOOGLE_SPREADSHEET_ID" envDefault:""`
	OwnerEmail      string `env:"GOOGLE_OWNER_EMAIL" envDefault:""`
}

func ReadEnvConfig(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"DISCORD_TOKEN", c.Discord.Token},
		{"DISCORD_GUILD_ID", c.Discord.GuildID},
		{"DISCORD_ROLE_CANDIDATE", c.Discord.CandidateRoleID},
		{"DISCORD_ROLE_VERIFIED", c.Discord.VerifiedRoleID},
		{"DISCORD_ROLE_UNVERIFIED", c.Discord.UnverifiedRoleID},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must be positive"))
	}
	if c.LinkCode.TTL <= 0 {
		errs = append(errs, errors.New("LINK_CODE_TTL must be positive"))
	}
	if c.Audit.TelegramToken != "" && len(c.Audit.TelegramAdminChatIDs) == 0 {
		errs = append(errs, errors.New("TELEGRAM_ADMIN_CHAT_IDS is required when TELEGRAM_TOKEN is set"))
	}
	return errors.Join(errs...)
}
