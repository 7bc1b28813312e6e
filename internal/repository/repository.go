package repository

import (
	"context"
	"database/sql"
	"time"

	"crystaltides/internal/models"

	"github.com/redis/go-redis/v9"
)

type LinkCode interface {
	// Upsert stores the code, replacing any live code held by the same
	// (source, source id). Returns ErrConflict when the code value is taken.
	Upsert(ctx context.Context, code *models.LinkCode) error
	GetByCode(ctx context.Context, code string) (*models.LinkCode, error)
	// Take deletes the code and returns what was stored, expired or not.
	// Of several concurrent callers exactly one gets the code; the rest get
	// ErrNotFound.
	Take(ctx context.Context, code string) (*models.LinkCode, error)
	Delete(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type Identity interface {
	// Merge applies the eviction and the write of m as one unit. Returns
	// ErrNotFound when a web anchor has no record and ErrConflict when a
	// concurrent writer claimed the same unique attribute.
	Merge(ctx context.Context, m models.Merge, now time.Time) (*models.MergeResult, error)
	GetByGameID(ctx context.Context, gameID string) (*models.IdentityRecord, error)
	GetByChatID(ctx context.Context, chatID string) (*models.IdentityRecord, error)
	ListAll(ctx context.Context) ([]models.IdentityRecord, error)
}

type Repository struct {
	LinkCode
	Identity
	db *sql.DB
}

// NewRepository keeps identities in Postgres. Link codes go to Redis when a
// client is supplied and to Postgres otherwise.
func NewRepository(db *sql.DB, rdb *redis.Client) *Repository {
	var codes LinkCode = NewLinkCodePostgres(db)
	if rdb != nil {
		codes = NewLinkCodeRedis(rdb)
	}
	return &Repository{
		LinkCode: codes,
		Identity: NewIdentityPostgres(db),
		db:       db,
	}
}

func NewMemoryRepository() *Repository {
	return &Repository{
		LinkCode: NewLinkCodeMemory(),
		Identity: NewIdentityMemory(),
	}
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}
