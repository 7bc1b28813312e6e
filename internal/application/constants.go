package application

import "time"

const (
	// Link codes
	codeLength         = 6
	codeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	DefaultCodeTTL     = 15 * time.Minute
	maxIssueAttempts   = 5
	maxMergeAttempts   = 3
	maxDisplayNameRune = 64

	// Reconciliation
	DefaultSyncInterval  = 30 * time.Minute
	DefaultMemberTimeout = 10 * time.Second

	// Roster export
	rosterSheetName  = "Identities"
	rosterSheetRange = "A1:Z5000"
	rosterSheetTitle = "CrystalTides Linked Accounts"
	sheetsWriterRole = "writer"
)
