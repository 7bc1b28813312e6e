package discord

import "github.com/bwmarrin/discordgo"

var adminPermission int64 = discordgo.PermissionManageRoles

// Commands returns the slash-command set served by the bot.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		newLinkCommand(),
		newLinkStatusCommand(),
		newSyncCommand(),
		newExportCommand(),
		newSyncSheetCommand(),
	}
}

func newLinkCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdLink,
		Description: "Link your Discord account with your CrystalTides game and web accounts",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optCode,
				Description: "Code shown in game or on the website. Leave empty to get a code for the website",
				Required:    false,
				MinLength:   intPtr(6),
				MaxLength:   6,
			},
		},
	}
}

func newLinkStatusCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        cmdLinkStatus,
		Description: "Show which accounts are linked to your Discord account",
	}
}

func newSyncCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     cmdSync,
		Description:              "Run role verification now (admins only)",
		DefaultMemberPermissions: &adminPermission,
	}
}

func newExportCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     cmdExport,
		Description:              "Export linked accounts to Excel (admins only)",
		DefaultMemberPermissions: &adminPermission,
	}
}

func newSyncSheetCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     cmdSyncSheet,
		Description:              "Sync linked accounts to Google Sheets (admins only)",
		DefaultMemberPermissions: &adminPermission,
	}
}

func intPtr(v int) *int {
	return &v
}
