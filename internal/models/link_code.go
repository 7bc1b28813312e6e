package models

import (
	"fmt"
	"strings"
	"time"
)

// Source is the namespace that issued a link code or claims one.
type Source string

const (
	SourceGame Source = "game"
	SourceWeb  Source = "web"
	SourceChat Source = "chat"
)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceGame:
		return SourceGame, nil
	case SourceWeb:
		return SourceWeb, nil
	case SourceChat:
		return SourceChat, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

type LinkCode struct {
	Code        string    `json:"code"`
	Source      Source    `json:"source"`
	SourceID    string    `json:"source_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the code can no longer be redeemed at now.
// A code is live strictly before ExpiresAt.
func (c *LinkCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
