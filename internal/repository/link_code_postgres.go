package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crystaltides/internal/models"
)

type LinkCodePostgres struct {
	db *sql.DB
}

func NewLinkCodePostgres(db *sql.DB) *LinkCodePostgres {
	return &LinkCodePostgres{db: db}
}

func (r *LinkCodePostgres) Upsert(ctx context.Context, code *models.LinkCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO link_codes (code, source, source_id, display_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, source_id) DO UPDATE SET
			code = EXCLUDED.code,
			display_name = EXCLUDED.display_name,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, code.Code, string(code.Source), code.SourceID, code.DisplayName, code.CreatedAt, code.ExpiresAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("link code %s already issued: %w", code.Code, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert link code: %w", err)
	}
	return nil
}

func (r *LinkCodePostgres) GetByCode(ctx context.Context, code string) (*models.LinkCode, error) {
	var (
		lc     models.LinkCode
		source string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT code, source, source_id, display_name, created_at, expires_at
		FROM link_codes
		WHERE code = $1
	`, code).Scan(&lc.Code, &source, &lc.SourceID, &lc.DisplayName, &lc.CreatedAt, &lc.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link code: %w", err)
	}
	lc.Source = models.Source(source)
	return &lc, nil
}

func (r *LinkCodePostgres) Take(ctx context.Context, code string) (*models.LinkCode, error) {
	var (
		lc     models.LinkCode
		source string
	)
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM link_codes
		WHERE code = $1
		RETURNING code, source, source_id, display_name, created_at, expires_at
	`, code).Scan(&lc.Code, &source, &lc.SourceID, &lc.DisplayName, &lc.CreatedAt, &lc.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take link code: %w", err)
	}
	lc.Source = models.Source(source)
	return &lc, nil
}

func (r *LinkCodePostgres) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM link_codes WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete link code: %w", err)
	}
	return nil
}

func (r *LinkCodePostgres) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM link_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired link codes: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
