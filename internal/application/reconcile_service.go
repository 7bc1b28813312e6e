package application

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"crystaltides/internal/audit"
	"crystaltides/internal/metrics"
	"crystaltides/internal/models"
	"crystaltides/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// GuildMembers is the chat group the engine converges roles on.
type GuildMembers interface {
	MembersWithRole(ctx context.Context, roleID string) ([]models.Member, error)
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRole(ctx context.Context, memberID, roleID string) error
}

type ReconcileConfig struct {
	CandidateRoleID  string
	VerifiedRoleID   string
	UnverifiedRoleID string
	MemberTimeout    time.Duration
}

type ReconcileReport struct {
	RunID      string
	Candidates int
	Verified   int
	Unverified int
	Added      int
	Removed    int
	Failed     int
	Duration   time.Duration
}

func (r *ReconcileReport) Mutations() int {
	return r.Added + r.Removed
}

type ReconcileService interface {
	// Run performs one pass. Returns ErrAlreadyRunning when a pass is in flight.
	Run(ctx context.Context) (*ReconcileReport, error)
}

type ReconcileServiceImpl struct {
	identities repository.Identity
	guild      GuildMembers
	cfg        ReconcileConfig
	clock      clockwork.Clock
	audit      audit.Sink
	metrics    *metrics.Metrics
	logger     Logger

	running atomic.Bool
}

func NewReconcileServiceImpl(identities repository.Identity, guild GuildMembers, cfg ReconcileConfig, clock clockwork.Clock, sink audit.Sink, m *metrics.Metrics, logger Logger) *ReconcileServiceImpl {
	if cfg.MemberTimeout <= 0 {
		cfg.MemberTimeout = DefaultMemberTimeout
	}
	return &ReconcileServiceImpl{
		identities: identities,
		guild:      guild,
		cfg:        cfg,
		clock:      clock,
		audit:      sink,
		metrics:    m,
		logger:     logger,
	}
}

func (s *ReconcileServiceImpl) Run(ctx context.Context) (*ReconcileReport, error) {
	if s.guild == nil {
		return nil, fmt.Errorf("guild members: %w", ErrNotConfigured)
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Reconciliation already running, skipping trigger")
		s.metrics.IncReconcileRun("skipped")
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	start := s.clock.Now()
	report := &ReconcileReport{RunID: uuid.NewString()}
	s.logger.Info("Starting role reconciliation %s", report.RunID)

	links, err := s.buildLookup(ctx)
	if err != nil {
		return nil, s.fail(report, "identity store", err)
	}

	members, err := s.guild.MembersWithRole(ctx, s.cfg.CandidateRoleID)
	if err != nil {
		return nil, s.fail(report, "member fetch", err)
	}

	report.Candidates = len(members)
	for i := range members {
		m := &members[i]
		if links.verified(m) {
			report.Verified++
			s.converge(ctx, report, m, s.cfg.VerifiedRoleID, s.cfg.UnverifiedRoleID)
		} else {
			report.Unverified++
			s.converge(ctx, report, m, s.cfg.UnverifiedRoleID, s.cfg.VerifiedRoleID)
		}
	}

	report.Duration = s.clock.Since(start)
	s.metrics.IncReconcileRun("ok")
	s.metrics.ObserveReconcile(report.Candidates, report.Duration.Seconds())
	s.logger.Info("Reconciliation %s done: %d candidates, %d added, %d removed, %d failed",
		report.RunID, report.Candidates, report.Added, report.Removed, report.Failed)

	level := audit.LevelInfo
	if report.Failed > 0 {
		level = audit.LevelWarn
	}
	s.audit.Log("Sync Complete", fmt.Sprintf(
		"Processed %d candidates (%d verified, %d unverified). Roles added: %d, removed: %d, failed: %d.",
		report.Candidates, report.Verified, report.Unverified, report.Added, report.Removed, report.Failed), level)

	return report, nil
}

func (s *ReconcileServiceImpl) fail(report *ReconcileReport, stage string, err error) error {
	s.metrics.IncReconcileRun("error")
	s.logger.Error("Reconciliation %s failed at %s: %v", report.RunID, stage, err)
	s.audit.Log("Sync Error", fmt.Sprintf("Reconciliation failed at %s: %v", stage, err), audit.LevelError)
	return fmt.Errorf("reconcile %s: %w", stage, err)
}

// converge makes m hold want and not hold drop. Empty role ids are skipped.
func (s *ReconcileServiceImpl) converge(ctx context.Context, report *ReconcileReport, m *models.Member, want, drop string) {
	if want != "" && !m.HasRole(want) {
		s.mutate(ctx, report, m, want, "add", s.guild.AddRole)
	}
	if drop != "" && m.HasRole(drop) {
		s.mutate(ctx, report, m, drop, "remove", s.guild.RemoveRole)
	}
}

func (s *ReconcileServiceImpl) mutate(ctx context.Context, report *ReconcileReport, m *models.Member, roleID, action string,
	call func(ctx context.Context, memberID, roleID string) error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.MemberTimeout)
	defer cancel()

	if err := call(callCtx, m.ID, roleID); err != nil {
		report.Failed++
		s.metrics.IncRoleMutation(action, "error")
		s.logger.Warn("Failed to %s role %s for %s (%s): %v", action, roleID, m.ID, m.Username, err)
		return
	}

	s.metrics.IncRoleMutation(action, "ok")
	if action == "add" {
		report.Added++
	} else {
		report.Removed++
	}
	s.logger.Debug("Role %s %s for %s (%s)", roleID, action, m.ID, m.Username)
}

type linkLookup struct {
	byID  map[string]bool
	byTag map[string]bool
}

func (s *ReconcileServiceImpl) buildLookup(ctx context.Context) (*linkLookup, error) {
	records, err := s.identities.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	l := &linkLookup{
		byID:  make(map[string]bool, len(records)),
		byTag: make(map[string]bool, len(records)),
	}
	for _, rec := range records {
		linked := rec.GameID != ""
		switch {
		case isSnowflake(rec.ChatID):
			l.byID[rec.ChatID] = l.byID[rec.ChatID] || linked
		case rec.ChatID != "":
			// Older rows stored the tag in the id column.
			l.markTag(rec.ChatID, linked)
		}
		l.markTag(rec.ChatTag, linked)
	}
	return l, nil
}

func (l *linkLookup) markTag(tag string, linked bool) {
	key := strings.ToLower(strings.TrimSpace(tag))
	if key == "" {
		return
	}
	l.byTag[key] = l.byTag[key] || linked
}

func (l *linkLookup) verified(m *models.Member) bool {
	if l.byID[m.ID] {
		return true
	}
	for _, name := range []string{m.Tag, m.Username} {
		key := strings.ToLower(strings.TrimSpace(name))
		if key != "" && l.byTag[key] {
			return true
		}
	}
	return false
}
