package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crystaltides/internal/audit"
	"crystaltides/internal/metrics"
	"crystaltides/internal/models"
	"crystaltides/internal/repository"

	"github.com/jonboulle/clockwork"
)

// Claimant is the identity redeeming a code on the side opposite the issuer.
type Claimant struct {
	Source models.Source
	ID     string
	// Name is the chat tag, game account name or web display name.
	Name string
}

type LinkResult struct {
	Record  models.IdentityRecord
	Code    models.LinkCode
	Evicted []string
	Message string
}

type LinkService interface {
	Link(ctx context.Context, code string, claimant Claimant) (*LinkResult, error)
	LinkChat(ctx context.Context, code, chatID, chatTag string) (*LinkResult, error)
	IdentityByChat(ctx context.Context, chatID string) (*models.IdentityRecord, error)
	IdentityByGame(ctx context.Context, gameID string) (*models.IdentityRecord, error)
}

type LinkServiceImpl struct {
	codes      LinkCodeService
	identities repository.Identity
	clock      clockwork.Clock
	audit      audit.Sink
	metrics    *metrics.Metrics
	logger     Logger
}

func NewLinkServiceImpl(codes LinkCodeService, identities repository.Identity, clock clockwork.Clock, sink audit.Sink, m *metrics.Metrics, logger Logger) *LinkServiceImpl {
	return &LinkServiceImpl{
		codes:      codes,
		identities: identities,
		clock:      clock,
		audit:      sink,
		metrics:    m,
		logger:     logger,
	}
}

func (s *LinkServiceImpl) LinkChat(ctx context.Context, code, chatID, chatTag string) (*LinkResult, error) {
	return s.Link(ctx, code, Claimant{Source: models.SourceChat, ID: chatID, Name: chatTag})
}

// Link redeems code on behalf of claimant. A missing claimant id is a caller
// bug: it fails with ErrInvalidClaimant before the code is touched and is not
// audited.
func (s *LinkServiceImpl) Link(ctx context.Context, code string, claimant Claimant) (*LinkResult, error) {
	code = normalizeCode(code)
	claimant.ID = strings.TrimSpace(claimant.ID)
	if claimant.ID == "" {
		return nil, ErrInvalidClaimant
	}

	res, err := s.link(ctx, code, claimant)
	s.report(code, claimant, res, err)
	return res, err
}

func (s *LinkServiceImpl) link(ctx context.Context, code string, claimant Claimant) (*LinkResult, error) {
	// The code is spent from here on, whatever the merge outcome.
	lc, err := s.codes.Take(ctx, code)
	if err != nil {
		return nil, err
	}

	merge, err := buildMerge(lc, claimant)
	if err != nil {
		return nil, newLinkError(KindUnsupportedSource, code, err)
	}

	var result *models.MergeResult
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		result, err = s.identities.Merge(ctx, merge, s.clock.Now())
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		s.logger.Warn("merge conflict for code %s on attempt %d, retrying", code, attempt)
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, newLinkError(KindPrerequisiteMissing, code, err)
	case err != nil:
		return nil, newLinkError(KindStoreFailure, code, err)
	}

	return &LinkResult{
		Record:  result.Record,
		Code:    *lc,
		Evicted: result.Evicted,
		Message: successMessage(lc, claimant, &result.Record),
	}, nil
}

// buildMerge maps the (issuer, claimant) pair onto a store merge. Same-side
// redemption is rejected.
func buildMerge(lc *models.LinkCode, c Claimant) (models.Merge, error) {
	gameAnchor := func(id string) models.Anchor { return models.Anchor{Kind: models.AnchorGame, ID: id} }
	webAnchor := func(id string) models.Anchor { return models.Anchor{Kind: models.AnchorWeb, ID: id} }

	switch c.Source {
	case models.SourceChat:
		chat := &models.ChatIdentity{ID: c.ID, Tag: c.Name}
		switch lc.Source {
		case models.SourceGame:
			return models.Merge{Anchor: gameAnchor(lc.SourceID), GameAccountName: lc.DisplayName, Chat: chat}, nil
		case models.SourceWeb:
			return models.Merge{Anchor: webAnchor(lc.SourceID), Chat: chat}, nil
		}
	case models.SourceGame:
		switch lc.Source {
		case models.SourceChat:
			return models.Merge{Anchor: gameAnchor(c.ID), GameAccountName: c.Name,
				Chat: &models.ChatIdentity{ID: lc.SourceID, Tag: lc.DisplayName}}, nil
		case models.SourceWeb:
			return models.Merge{Anchor: gameAnchor(c.ID), GameAccountName: c.Name, WebUserID: lc.SourceID}, nil
		}
	case models.SourceWeb:
		switch lc.Source {
		case models.SourceChat:
			return models.Merge{Anchor: webAnchor(c.ID),
				Chat: &models.ChatIdentity{ID: lc.SourceID, Tag: lc.DisplayName}}, nil
		case models.SourceGame:
			return models.Merge{Anchor: gameAnchor(lc.SourceID), GameAccountName: lc.DisplayName, WebUserID: c.ID}, nil
		}
	}
	return models.Merge{}, fmt.Errorf("%s code redeemed from %s", lc.Source, c.Source)
}

func successMessage(lc *models.LinkCode, c Claimant, rec *models.IdentityRecord) string {
	account := valueOrDefault(rec.GameAccountName, rec.GameID)
	switch {
	case lc.Source == models.SourceGame:
		return fmt.Sprintf("Linked to game account **%s**.", account)
	case lc.Source == models.SourceWeb:
		return fmt.Sprintf("Linked to your web profile (game account **%s**).", account)
	case c.Source == models.SourceWeb:
		return fmt.Sprintf("Chat account **%s** linked to your web profile.", valueOrDefault(lc.DisplayName, lc.SourceID))
	default:
		return fmt.Sprintf("Chat account **%s** linked to **%s**.", valueOrDefault(lc.DisplayName, lc.SourceID), account)
	}
}

func (s *LinkServiceImpl) report(code string, c Claimant, res *LinkResult, err error) {
	who := fmt.Sprintf("%s `%s` (%s)", c.Source, c.ID, valueOrDefault(c.Name, "unknown"))

	if err == nil {
		s.metrics.IncLinkAttempt("success")
		s.logger.Info("Linked %s %s to game id %s", c.Source, c.ID, res.Record.GameID)
		msg := fmt.Sprintf("%s redeemed %s code `%s` for game id `%s`.", who, res.Code.Source, code, res.Record.GameID)
		if len(res.Evicted) > 0 {
			msg += fmt.Sprintf(" Previous holders cleared: %s.", strings.Join(res.Evicted, ", "))
		}
		s.audit.Log("Account Linked", msg, audit.LevelSuccess)
		return
	}

	kind := KindOf(err)
	s.metrics.IncLinkAttempt(kind.String())
	var le *LinkError
	if !errors.As(err, &le) || !le.UserFacing() {
		s.logger.Error("link failed for %s %s: %v", c.Source, c.ID, err)
		s.audit.Log("Link Error", fmt.Sprintf("%s failed to redeem `%s`: %v", who, code, err), audit.LevelError)
		return
	}
	s.audit.Log("Link Rejected", fmt.Sprintf("%s tried code `%s`: %s.", who, code, kind), audit.LevelWarn)
}

func (s *LinkServiceImpl) IdentityByChat(ctx context.Context, chatID string) (*models.IdentityRecord, error) {
	return s.lookup(s.identities.GetByChatID(ctx, chatID))
}

func (s *LinkServiceImpl) IdentityByGame(ctx context.Context, gameID string) (*models.IdentityRecord, error) {
	return s.lookup(s.identities.GetByGameID(ctx, gameID))
}

func (s *LinkServiceImpl) lookup(rec *models.IdentityRecord, err error) (*models.IdentityRecord, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, newLinkError(KindStoreFailure, "", err)
	}
	return rec, nil
}
