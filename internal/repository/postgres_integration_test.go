//go:build integration

package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"crystaltides/internal/models"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresForTest(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("crystaltides"),
		tcpostgres.WithUsername("crystaltides"),
		tcpostgres.WithPassword("crystaltides"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db, Migrations, "migrations"))
	return db
}

func TestPostgresStores(t *testing.T) {
	db := newPostgresForTest(t)
	codes := NewLinkCodePostgres(db)
	identities := NewIdentityPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("reissue replaces code for same owner", func(t *testing.T) {
		require.NoError(t, codes.Upsert(ctx, testCode("PGAAAA", models.SourceGame, "uuid-1")))
		require.NoError(t, codes.Upsert(ctx, testCode("PGBBBB", models.SourceGame, "uuid-1")))

		_, err := codes.GetByCode(ctx, "PGAAAA")
		require.ErrorIs(t, err, ErrNotFound)

		lc, err := codes.GetByCode(ctx, "PGBBBB")
		require.NoError(t, err)
		require.Equal(t, models.SourceGame, lc.Source)
	})

	t.Run("code collision with other owner conflicts", func(t *testing.T) {
		err := codes.Upsert(ctx, testCode("PGBBBB", models.SourceWeb, "web-1"))
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("take deletes and returns the code once", func(t *testing.T) {
		require.NoError(t, codes.Upsert(ctx, testCode("PGTAKE", models.SourceChat, "111")))

		lc, err := codes.Take(ctx, "PGTAKE")
		require.NoError(t, err)
		require.Equal(t, models.SourceChat, lc.Source)
		require.Equal(t, "111", lc.SourceID)

		_, err = codes.Take(ctx, "PGTAKE")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		stale := testCode("PGSTAL", models.SourceGame, "uuid-9")
		stale.ExpiresAt = now.Add(-time.Minute)
		require.NoError(t, codes.Upsert(ctx, stale))

		n, err := codes.DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("merge moves chat identity between game records", func(t *testing.T) {
		chat := &models.ChatIdentity{ID: "111", Tag: "steve#0"}
		_, err := identities.Merge(ctx, models.Merge{
			Anchor: models.Anchor{Kind: models.AnchorGame, ID: "uuid-1"}, GameAccountName: "Steve", Chat: chat,
		}, now)
		require.NoError(t, err)

		res, err := identities.Merge(ctx, models.Merge{
			Anchor: models.Anchor{Kind: models.AnchorGame, ID: "uuid-2"}, GameAccountName: "Alex", Chat: chat,
		}, now)
		require.NoError(t, err)
		require.Equal(t, []string{"uuid-1"}, res.Evicted)

		old, err := identities.GetByGameID(ctx, "uuid-1")
		require.NoError(t, err)
		require.False(t, old.HasChat())
		require.Equal(t, "Steve", old.GameAccountName)
	})

	t.Run("web anchor without record is not created", func(t *testing.T) {
		_, err := identities.Merge(ctx, models.Merge{
			Anchor: models.Anchor{Kind: models.AnchorWeb, ID: "web-404"},
			Chat:   &models.ChatIdentity{ID: "222"},
		}, now)
		require.ErrorIs(t, err, ErrNotFound)

		_, err = identities.GetByChatID(ctx, "222")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("web id then chat through web anchor", func(t *testing.T) {
		_, err := identities.Merge(ctx, models.Merge{
			Anchor: models.Anchor{Kind: models.AnchorGame, ID: "uuid-3"}, WebUserID: "web-3",
		}, now)
		require.NoError(t, err)

		res, err := identities.Merge(ctx, models.Merge{
			Anchor: models.Anchor{Kind: models.AnchorWeb, ID: "web-3"},
			Chat:   &models.ChatIdentity{ID: "333", Tag: "herobrine"},
		}, now)
		require.NoError(t, err)
		require.Equal(t, "uuid-3", res.Record.GameID)
		require.Equal(t, "333", res.Record.ChatID)
		require.Equal(t, "web-3", res.Record.WebUserID)
	})

	t.Run("racing claims keep chat id unique", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, id := range []string{"race-1", "race-2", "race-3", "race-4"} {
			wg.Add(1)
			go func(gameID string) {
				defer wg.Done()
				_, _ = identities.Merge(ctx, models.Merge{
					Anchor: models.Anchor{Kind: models.AnchorGame, ID: gameID},
					Chat:   &models.ChatIdentity{ID: "999"},
				}, now)
			}(id)
		}
		wg.Wait()

		all, err := identities.ListAll(ctx)
		require.NoError(t, err)
		holders := 0
		for _, rec := range all {
			if rec.ChatID == "999" {
				holders++
			}
		}
		require.Equal(t, 1, holders)
	})
}
