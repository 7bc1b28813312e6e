package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crystaltides/internal/models"
)

const identityColumns = `game_id, COALESCE(game_account_name, ''), COALESCE(chat_id, ''),
	COALESCE(chat_tag, ''), COALESCE(web_user_id, ''), created_at, updated_at`

type IdentityPostgres struct {
	db *sql.DB
}

func NewIdentityPostgres(db *sql.DB) *IdentityPostgres {
	return &IdentityPostgres{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.IdentityRecord, error) {
	var rec models.IdentityRecord
	err := row.Scan(&rec.GameID, &rec.GameAccountName, &rec.ChatID, &rec.ChatTag,
		&rec.WebUserID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Merge runs eviction and upsert inside one transaction. The unique
// constraints on chat_id and web_user_id turn a racing claim into ErrConflict.
func (r *IdentityPostgres) Merge(ctx context.Context, m models.Merge, now time.Time) (*models.MergeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge: %w", err)
	}
	defer tx.Rollback()

	gameID := m.Anchor.ID
	if m.Anchor.Kind == models.AnchorWeb {
		err := tx.QueryRowContext(ctx,
			`SELECT game_id FROM identities WHERE web_user_id = $1 FOR UPDATE`, m.Anchor.ID).Scan(&gameID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no identity for web user %s: %w", m.Anchor.ID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve web anchor: %w", err)
		}
	}

	var evicted []string
	if m.Chat != nil {
		ids, err := evict(ctx, tx, `
			UPDATE identities SET chat_id = NULL, chat_tag = NULL, updated_at = $3
			WHERE chat_id = $1 AND game_id <> $2
			RETURNING game_id
		`, m.Chat.ID, gameID, now)
		if err != nil {
			return nil, err
		}
		evicted = append(evicted, ids...)
	}
	if m.WebUserID != "" {
		ids, err := evict(ctx, tx, `
			UPDATE identities SET web_user_id = NULL, updated_at = $3
			WHERE web_user_id = $1 AND game_id <> $2
			RETURNING game_id
		`, m.WebUserID, gameID, now)
		if err != nil {
			return nil, err
		}
		evicted = append(evicted, ids...)
	}

	var chatID, chatTag string
	if m.Chat != nil {
		chatID, chatTag = m.Chat.ID, m.Chat.Tag
	}

	rec, err := scanIdentity(tx.QueryRowContext(ctx, `
		INSERT INTO identities (game_id, game_account_name, chat_id, chat_tag, web_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			game_account_name = COALESCE(EXCLUDED.game_account_name, identities.game_account_name),
			chat_id = CASE WHEN $7::boolean THEN EXCLUDED.chat_id ELSE identities.chat_id END,
			chat_tag = CASE WHEN $7::boolean THEN EXCLUDED.chat_tag ELSE identities.chat_tag END,
			web_user_id = COALESCE(EXCLUDED.web_user_id, identities.web_user_id),
			updated_at = EXCLUDED.updated_at
		RETURNING `+identityColumns,
		gameID, nullable(m.GameAccountName), nullable(chatID), nullable(chatTag),
		nullable(m.WebUserID), now, m.Chat != nil))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("identity attribute claimed concurrently: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("identity attribute claimed concurrently: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	return &models.MergeResult{Record: *rec, Evicted: evicted}, nil
}

func evict(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to evict identity attribute: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan evicted identity: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *IdentityPostgres) GetByGameID(ctx context.Context, gameID string) (*models.IdentityRecord, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE game_id = $1`, gameID)
}

func (r *IdentityPostgres) GetByChatID(ctx context.Context, chatID string) (*models.IdentityRecord, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE chat_id = $1`, chatID)
}

func (r *IdentityPostgres) getOne(ctx context.Context, query, arg string) (*models.IdentityRecord, error) {
	rec, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return rec, nil
}

func (r *IdentityPostgres) ListAll(ctx context.Context) ([]models.IdentityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var out []models.IdentityRecord
	for rows.Next() {
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
