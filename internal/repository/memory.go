package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crystaltides/internal/models"
)

// LinkCodeMemory keeps link codes in process memory for tests and local runs.
type LinkCodeMemory struct {
	mu      sync.Mutex
	byCode  map[string]models.LinkCode
	byOwner map[string]string
}

func NewLinkCodeMemory() *LinkCodeMemory {
	return &LinkCodeMemory{
		byCode:  make(map[string]models.LinkCode),
		byOwner: make(map[string]string),
	}
}

func ownerKey(source models.Source, sourceID string) string {
	return string(source) + ":" + sourceID
}

func (s *LinkCodeMemory) Upsert(_ context.Context, code *models.LinkCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := ownerKey(code.Source, code.SourceID)
	if existing, ok := s.byCode[code.Code]; ok && ownerKey(existing.Source, existing.SourceID) != owner {
		return fmt.Errorf("link code %s already issued: %w", code.Code, ErrConflict)
	}
	if prev, ok := s.byOwner[owner]; ok {
		delete(s.byCode, prev)
	}
	s.byCode[code.Code] = *code
	s.byOwner[owner] = code.Code
	return nil
}

func (s *LinkCodeMemory) GetByCode(_ context.Context, code string) (*models.LinkCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lc, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	return &lc, nil
}

func (s *LinkCodeMemory) Take(_ context.Context, code string) (*models.LinkCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lc, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("link code %s: %w", code, ErrNotFound)
	}
	s.deleteLocked(code)
	return &lc, nil
}

func (s *LinkCodeMemory) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(code)
	return nil
}

func (s *LinkCodeMemory) deleteLocked(code string) {
	lc, ok := s.byCode[code]
	if !ok {
		return
	}
	delete(s.byCode, code)
	owner := ownerKey(lc.Source, lc.SourceID)
	if s.byOwner[owner] == code {
		delete(s.byOwner, owner)
	}
}

func (s *LinkCodeMemory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for code, lc := range s.byCode {
		if lc.Expired(now) {
			s.deleteLocked(code)
			deleted++
		}
	}
	return deleted, nil
}

// IdentityMemory mirrors the Postgres identity store, unique constraints
// included, under a single mutex.
type IdentityMemory struct {
	mu      sync.RWMutex
	records map[string]*models.IdentityRecord
}

func NewIdentityMemory() *IdentityMemory {
	return &IdentityMemory{records: make(map[string]*models.IdentityRecord)}
}

func (s *IdentityMemory) Merge(_ context.Context, m models.Merge, now time.Time) (*models.MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gameID := m.Anchor.ID
	if m.Anchor.Kind == models.AnchorWeb {
		rec := s.findLocked(func(r *models.IdentityRecord) bool { return r.WebUserID == m.Anchor.ID })
		if rec == nil {
			return nil, fmt.Errorf("no identity for web user %s: %w", m.Anchor.ID, ErrNotFound)
		}
		gameID = rec.GameID
	}

	var evicted []string
	for id, rec := range s.records {
		if id == gameID {
			continue
		}
		touched := false
		if m.Chat != nil && rec.ChatID == m.Chat.ID {
			rec.ChatID, rec.ChatTag = "", ""
			touched = true
		}
		if m.WebUserID != "" && rec.WebUserID == m.WebUserID {
			rec.WebUserID = ""
			touched = true
		}
		if touched {
			rec.UpdatedAt = now
			evicted = append(evicted, id)
		}
	}
	sort.Strings(evicted)

	rec, ok := s.records[gameID]
	if !ok {
		rec = &models.IdentityRecord{GameID: gameID, CreatedAt: now}
		s.records[gameID] = rec
	}
	if m.GameAccountName != "" {
		rec.GameAccountName = m.GameAccountName
	}
	if m.Chat != nil {
		rec.ChatID, rec.ChatTag = m.Chat.ID, m.Chat.Tag
	}
	if m.WebUserID != "" {
		rec.WebUserID = m.WebUserID
	}
	rec.UpdatedAt = now

	return &models.MergeResult{Record: *rec, Evicted: evicted}, nil
}

func (s *IdentityMemory) findLocked(match func(*models.IdentityRecord) bool) *models.IdentityRecord {
	for _, rec := range s.records {
		if match(rec) {
			return rec
		}
	}
	return nil
}

func (s *IdentityMemory) GetByGameID(_ context.Context, gameID string) (*models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[gameID]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", gameID, ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (s *IdentityMemory) GetByChatID(_ context.Context, chatID string) (*models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.findLocked(func(r *models.IdentityRecord) bool { return r.ChatID == chatID })
	if rec == nil {
		return nil, fmt.Errorf("identity %s: %w", chatID, ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (s *IdentityMemory) ListAll(_ context.Context) ([]models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.IdentityRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

// Put seeds a record as-is, bypassing merge rules.
func (s *IdentityMemory) Put(rec models.IdentityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.GameID] = &rec
}
