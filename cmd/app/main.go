package main

import (
	"context"
	"errors"

	"crystaltides/internal/application"
	"crystaltides/internal/audit"
	"crystaltides/internal/delivery/discord"
	httpapi "crystaltides/internal/delivery/http"
	"crystaltides/internal/metrics"
	"crystaltides/internal/repository"
	"crystaltides/internal/scheduler"
	"crystaltides/pkg/config"
	"crystaltides/pkg/logger"
	service "crystaltides/pkg/services"
	"crystaltides/pkg/sheets"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&cfg.Logger)
	defer log.Sync()

	ctx := context.Background()

	db, err := repository.NewPostgresDB(&cfg.Repo)
	if err != nil {
		log.Error("failed to init db: %s", err.Error())
		return
	}
	defer db.Close()

	log.Info("Running migrations...")
	if err := repository.RunMigrations(db, repository.Migrations, "migrations"); err != nil {
		log.Error("failed to run migrations: %s", err.Error())
		return
	}
	log.Info("Migrations applied successfully")

	rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to init redis: %s", err.Error())
		return
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("Link codes stored in Redis")
	}

	repos := repository.NewRepository(db, rdb)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := audit.NewDispatcher(log.With("component", "audit"), auditTargets(&cfg.Audit, log)...)

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		log.Error("failed to init discord: %s", err.Error())
		return
	}

	var sheetsClient sheets.Client
	if cfg.Google.CredentialsPath != "" {
		c, err := sheets.NewGoogleSheetsClient(ctx, cfg.Google.CredentialsPath)
		if err != nil {
			log.Error("failed to init google sheets: %s", err.Error())
			return
		}
		sheetsClient = c
	}

	clock := clockwork.NewRealClock()
	services := application.NewService(application.Deps{
		Repos:         repos,
		Guild:         discord.NewGuildMembers(session, cfg.Discord.GuildID),
		Audit:         dispatcher,
		Metrics:       m,
		Clock:         clock,
		Logger:        log.With("component", "application"),
		Sheets:        sheetsClient,
		SpreadsheetID: cfg.Google.SpreadsheetID,
		OwnerEmail:    cfg.Google.OwnerEmail,
	}, application.LinkCodeConfig{
		TTL: cfg.LinkCode.TTL,
	}, application.ReconcileConfig{
		CandidateRoleID:  cfg.Discord.CandidateRoleID,
		VerifiedRoleID:   cfg.Discord.VerifiedRoleID,
		UnverifiedRoleID: cfg.Discord.UnverifiedRoleID,
		MemberTimeout:    cfg.Sync.MemberTimeout,
	})

	bot := discord.NewBot(session, discord.Config{
		AppID:            cfg.Discord.AppID,
		GuildID:          cfg.Discord.GuildID,
		AdminUserIDs:     cfg.Discord.AdminUserIDs,
		RegisterCommands: cfg.Discord.RegisterCommands,
	}, services, log.With("component", "discord"))

	apiLog := log.With("component", "http")
	handler := httpapi.NewHandler(services.LinkCodeService, services.LinkService, repos, apiLog)
	if cfg.HTTP.APIKey == "" {
		log.Warn("API_KEY is empty, link API requests will be rejected")
	}
	api := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(handler, cfg.HTTP.APIKey, reg), apiLog)

	roleSync := scheduler.New("role-sync", cfg.Sync.Interval, func(ctx context.Context) error {
		_, err := services.ReconcileService.Run(ctx)
		if errors.Is(err, application.ErrAlreadyRunning) {
			return scheduler.ErrSkipped
		}
		return err
	}, clock, log.With("component", "scheduler"))

	manager := service.NewManager(log)
	manager.AddService(dispatcher, bot, api, roleSync)

	if cfg.LinkCode.SweepInterval > 0 {
		manager.AddService(scheduler.New("link-code-sweep", cfg.LinkCode.SweepInterval, func(ctx context.Context) error {
			_, err := services.LinkCodeService.SweepExpired(ctx)
			return err
		}, clock, log.With("component", "scheduler")))
	}

	if err := manager.Run(ctx); err != nil {
		log.Error("service manager: %s", err.Error())
		return
	}
	log.Info("Stopped")
}

func auditTargets(cfg *config.AuditConfig, log *logger.Logger) []audit.Target {
	var targets []audit.Target

	if cfg.WebhookURL != "" {
		w, err := audit.NewWebhook(cfg.WebhookURL)
		if err != nil {
			log.Warn("audit webhook disabled: %v", err)
		} else {
			targets = append(targets, w)
		}
	}

	if cfg.TelegramToken != "" {
		t, err := audit.NewTelegram(cfg.TelegramToken, cfg.TelegramAdminChatIDs)
		if err != nil {
			log.Warn("telegram audit disabled: %v", err)
		} else {
			targets = append(targets, t)
		}
	}

	if len(targets) == 0 {
		log.Info("No audit targets configured, audit events go to the process log only")
	}
	return targets
}
