package discord

import "time"

const (
	// Command names
	cmdLink       = "link"
	cmdLinkStatus = "linkstatus"
	cmdSync       = "sync"
	cmdExport     = "export"
	cmdSyncSheet  = "sync_sheet"
	optCode       = "code"

	// Embed colors
	colorGreen = 0x2ECC71
	colorBlue  = 0x3498DB
	colorGray  = 0x95A5A6

	// Discord API limits
	membersPageSize = 1000

	// Timeouts
	commandTimeout = 30 * time.Second
	syncTimeout    = 10 * time.Minute

	exportFileName = "identities.xlsx"
	footerText     = "CrystalTides Account Link"
)
