package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crystaltides/internal/models"

	"github.com/redis/go-redis/v9"
)

// Every key carries the {linkcode} hash tag so the scripts below only touch
// keys of one cluster slot.
const (
	codeKeyPrefix  = "{linkcode}:code:"
	ownerKeyPrefix = "{linkcode}:owner:"

	// Keys outlive expires_at so a late redemption still reports Expired
	// instead of NotFound.
	expiredGrace = 10 * time.Minute
)

// KEYS[1] code key, KEYS[2] owner key, KEYS[3] key of the owner's previous
// code; ARGV[1] payload, ARGV[2] ttl ms, ARGV[3] code, ARGV[4] previous code
// as read by the caller. Returns -1 when the owner index moved in between.
var upsertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local prev = redis.call('GET', KEYS[2]) or ''
if prev ~= ARGV[4] then
	return -1
end
if prev ~= '' and prev ~= ARGV[3] then
	redis.call('DEL', KEYS[3])
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
return 1
`)

// KEYS[1] code key, KEYS[2] owner key; ARGV[1] code. Returns the payload of
// the deleted code, or nil when it was already gone.
var takeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return false
end
redis.call('DEL', KEYS[1])
if redis.call('GET', KEYS[2]) == ARGV[1] then
	redis.call('DEL', KEYS[2])
end
return raw
`)

type LinkCodeRedis struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLinkCodeRedis(rdb *redis.Client) *LinkCodeRedis {
	return &LinkCodeRedis{rdb: rdb, now: time.Now}
}

func (r *LinkCodeRedis) keyCode(code string) string { return codeKeyPrefix + code }
func (r *LinkCodeRedis) keyOwner(source models.Source, sourceID string) string {
	return ownerKeyPrefix + ownerKey(source, sourceID)
}

func (r *LinkCodeRedis) Upsert(ctx context.Context, code *models.LinkCode) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to encode link code: %w", err)
	}

	ttl := code.ExpiresAt.Sub(r.now()) + expiredGrace
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	ownerKey := r.keyOwner(code.Source, code.SourceID)
	prev, err := r.rdb.Get(ctx, ownerKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read owner index: %w", err)
	}

	stored, err := upsertScript.Run(ctx, r.rdb,
		[]string{r.keyCode(code.Code), ownerKey, r.keyCode(prev)},
		raw, ttl.Milliseconds(), code.Code, prev,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to upsert link code: %w", err)
	}
	switch stored {
	case 0:
		return fmt.Errorf("link code %s already issued: %w", code.Code, ErrConflict)
	case -1:
		return fmt.Errorf("link code owner %s reissued concurrently: %w", ownerKey, ErrConflict)
	}
	return nil
}

func (r *LinkCodeRedis) GetByCode(ctx context.Context, code string) (*models.LinkCode, error) {
	raw, err := r.rdb.Get(ctx, r.keyCode(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link code: %w", err)
	}

	var lc models.LinkCode
	if err := json.Unmarshal(raw, &lc); err != nil {
		return nil, fmt.Errorf("failed to decode link code: %w", err)
	}
	return &lc, nil
}

func (r *LinkCodeRedis) Take(ctx context.Context, code string) (*models.LinkCode, error) {
	// The owner key lives in the payload, so read it first; the script
	// itself decides who wins.
	lc, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	raw, err := takeScript.Run(ctx, r.rdb,
		[]string{r.keyCode(code), r.keyOwner(lc.Source, lc.SourceID)}, code).Text()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take link code: %w", err)
	}

	var taken models.LinkCode
	if err := json.Unmarshal([]byte(raw), &taken); err != nil {
		return nil, fmt.Errorf("failed to decode link code: %w", err)
	}
	return &taken, nil
}

func (r *LinkCodeRedis) Delete(ctx context.Context, code string) error {
	_, err := r.Take(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// DeleteExpired is a no-op: Redis drops the keys once their TTL runs out.
func (r *LinkCodeRedis) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
