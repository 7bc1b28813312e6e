package models

import "time"

// IdentityRecord is the merged identity, keyed by the game account identifier.
type IdentityRecord struct {
	GameID          string    `json:"game_id"`
	GameAccountName string    `json:"game_account_name,omitempty"`
	ChatID          string    `json:"chat_id,omitempty"`
	ChatTag         string    `json:"chat_tag,omitempty"`
	WebUserID       string    `json:"web_user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *IdentityRecord) HasChat() bool {
	return r.ChatID != "" || r.ChatTag != ""
}

type ChatIdentity struct {
	ID  string
	Tag string
}

type AnchorKind int

const (
	AnchorGame AnchorKind = iota
	AnchorWeb
)

// Anchor selects the record a merge writes into. A game anchor is upserted,
// a web anchor must already exist.
type Anchor struct {
	Kind AnchorKind
	ID   string
}

// Merge moves unique attributes (chat identity, web user id) onto the anchored
// record, clearing them from whichever record held them before.
type Merge struct {
	Anchor          Anchor
	GameAccountName string
	Chat            *ChatIdentity
	WebUserID       string
}

// MergeResult carries the written record and the game ids of records whose
// attributes were evicted.
type MergeResult struct {
	Record  IdentityRecord
	Evicted []string
}
