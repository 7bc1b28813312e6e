package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"crystaltides/internal/metrics"
	"crystaltides/internal/models"
	"crystaltides/internal/repository"

	"github.com/jonboulle/clockwork"
)

type LinkCodeService interface {
	// Issue creates a fresh code for (source, sourceID), replacing any live one.
	Issue(ctx context.Context, source models.Source, sourceID, displayName string) (*models.LinkCode, error)
	// Redeem returns the live code without consuming it.
	Redeem(ctx context.Context, code string) (*models.LinkCode, error)
	// Take redeems and deletes the code in one step. Of concurrent callers
	// holding the same code only one gets it; expired codes are spent as well.
	Take(ctx context.Context, code string) (*models.LinkCode, error)
	SweepExpired(ctx context.Context) (int, error)
}

type LinkCodeConfig struct {
	TTL time.Duration
}

type LinkCodeServiceImpl struct {
	repo    repository.LinkCode
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  Logger
}

func NewLinkCodeServiceImpl(repo repository.LinkCode, cfg LinkCodeConfig, clock clockwork.Clock, m *metrics.Metrics, logger Logger) *LinkCodeServiceImpl {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &LinkCodeServiceImpl{
		repo:    repo,
		ttl:     ttl,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

func (s *LinkCodeServiceImpl) Issue(ctx context.Context, source models.Source, sourceID, displayName string) (*models.LinkCode, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required")
	}
	source, err := models.ParseSource(string(source))
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		now := s.clock.Now()
		lc := &models.LinkCode{
			Code:        code,
			Source:      source,
			SourceID:    sourceID,
			DisplayName: truncateRunes(displayName, maxDisplayNameRune),
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}

		err = s.repo.Upsert(ctx, lc)
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Debug("link code collision on attempt %d, regenerating", attempt)
			continue
		}
		if err != nil {
			return nil, newLinkError(KindStoreFailure, code, err)
		}

		s.metrics.IncCodeIssued(string(source))
		s.logger.Info("Issued %s link code for %s", source, sourceID)
		return lc, nil
	}

	return nil, newLinkError(KindStoreFailure, "", fmt.Errorf("no free code after %d attempts", maxIssueAttempts))
}

func (s *LinkCodeServiceImpl) Redeem(ctx context.Context, code string) (*models.LinkCode, error) {
	code = normalizeCode(code)
	if !validCodeFormat(code) {
		return nil, newLinkError(KindNotFound, code, nil)
	}

	lc, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newLinkError(KindNotFound, code, nil)
	}
	if err != nil {
		return nil, newLinkError(KindStoreFailure, code, err)
	}

	if lc.Expired(s.clock.Now()) {
		if err := s.repo.Delete(ctx, code); err != nil {
			s.logger.Warn("failed to delete expired link code %s: %v", code, err)
		}
		return nil, newLinkError(KindExpired, code, nil)
	}

	return lc, nil
}

func (s *LinkCodeServiceImpl) Take(ctx context.Context, code string) (*models.LinkCode, error) {
	code = normalizeCode(code)
	if !validCodeFormat(code) {
		return nil, newLinkError(KindNotFound, code, nil)
	}

	lc, err := s.repo.Take(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newLinkError(KindNotFound, code, nil)
	}
	if err != nil {
		return nil, newLinkError(KindStoreFailure, code, err)
	}

	if lc.Expired(s.clock.Now()) {
		return nil, newLinkError(KindExpired, code, nil)
	}
	return lc, nil
}

func (s *LinkCodeServiceImpl) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("Swept %d expired link codes", n)
	}
	return n, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
