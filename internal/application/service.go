package application

import (
	"crystaltides/internal/audit"
	"crystaltides/internal/metrics"
	"crystaltides/internal/repository"
	"crystaltides/pkg/sheets"

	"github.com/jonboulle/clockwork"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type Deps struct {
	Repos   *repository.Repository
	Guild   GuildMembers
	Audit   audit.Sink
	Metrics *metrics.Metrics
	Clock   clockwork.Clock
	Logger  Logger

	Sheets        sheets.Client
	SpreadsheetID string
	OwnerEmail    string
}

type Service struct {
	LinkCodeService  LinkCodeService
	LinkService      LinkService
	ReconcileService ReconcileService
	RosterService    RosterService
}

func NewService(deps Deps, linkCfg LinkCodeConfig, syncCfg ReconcileConfig) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}

	codes := NewLinkCodeServiceImpl(deps.Repos.LinkCode, linkCfg, deps.Clock, deps.Metrics, deps.Logger)
	return &Service{
		LinkCodeService:  codes,
		LinkService:      NewLinkServiceImpl(codes, deps.Repos.Identity, deps.Clock, deps.Audit, deps.Metrics, deps.Logger),
		ReconcileService: NewReconcileServiceImpl(deps.Repos.Identity, deps.Guild, syncCfg, deps.Clock, deps.Audit, deps.Metrics, deps.Logger),
		RosterService:    NewRosterServiceImpl(deps.Repos.Identity, deps.Sheets, deps.SpreadsheetID, deps.OwnerEmail, deps.Logger),
	}
}
