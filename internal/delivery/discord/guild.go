package discord

import (
	"context"
	"fmt"

	"crystaltides/internal/models"

	"github.com/bwmarrin/discordgo"
)

// guildAPI is the slice of *discordgo.Session the membership adapter uses.
type guildAPI interface {
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// GuildMembers lists and mutates members of one guild over the REST API.
type GuildMembers struct {
	api     guildAPI
	guildID string
}

func NewGuildMembers(session *discordgo.Session, guildID string) *GuildMembers {
	return &GuildMembers{api: session, guildID: guildID}
}

func (g *GuildMembers) MembersWithRole(ctx context.Context, roleID string) ([]models.Member, error) {
	var (
		out   []models.Member
		after string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := g.api.GuildMembers(g.guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members after %q: %w", after, err)
		}

		for _, m := range page {
			if m.User == nil || m.User.Bot {
				continue
			}
			member := memberFromDiscord(m)
			if roleID == "" || member.HasRole(roleID) {
				out = append(out, member)
			}
		}

		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (g *GuildMembers) AddRole(ctx context.Context, memberID, roleID string) error {
	return g.api.GuildMemberRoleAdd(g.guildID, memberID, roleID, discordgo.WithContext(ctx))
}

func (g *GuildMembers) RemoveRole(ctx context.Context, memberID, roleID string) error {
	return g.api.GuildMemberRoleRemove(g.guildID, memberID, roleID, discordgo.WithContext(ctx))
}
