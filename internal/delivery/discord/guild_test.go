package discord

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeGuildAPI struct {
	members []*discordgo.Member
	afters  []string
	added   []string
	removed []string
	listErr error
}

func (f *fakeGuildAPI) GuildMembers(_ string, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.afters = append(f.afters, after)
	start := 0
	if after != "" {
		for i, m := range f.members {
			if m.User.ID == after {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(f.members) {
		end = len(f.members)
	}
	return f.members[start:end], nil
}

func (f *fakeGuildAPI) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.added = append(f.added, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakeGuildAPI) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.removed = append(f.removed, guildID+"/"+userID+"/"+roleID)
	return nil
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: "user" + id, Discriminator: "0"},
		Roles: roles,
	}
}

func TestMembersWithRolePaginatesAndFilters(t *testing.T) {
	api := &fakeGuildAPI{}
	for i := 0; i < membersPageSize+5; i++ {
		roles := []string{"other"}
		if i%2 == 0 {
			roles = append(roles, "candidate")
		}
		api.members = append(api.members, member(fmt.Sprintf("%05d", i), roles...))
	}
	bot := member("bot")
	bot.User.Bot = true
	bot.Roles = []string{"candidate"}
	api.members = append(api.members, bot)

	g := &GuildMembers{api: api, guildID: "g1"}
	got, err := g.MembersWithRole(context.Background(), "candidate")
	require.NoError(t, err)
	require.Len(t, got, (membersPageSize+5+1)/2)
	require.Equal(t, []string{"", fmt.Sprintf("%05d", membersPageSize-1)}, api.afters)
	require.Equal(t, "user00000#0", got[0].Tag)
	require.Equal(t, "user00000", got[0].Username)
}

func TestMembersWithRoleWrapsErrors(t *testing.T) {
	g := &GuildMembers{api: &fakeGuildAPI{listErr: errors.New("403")}, guildID: "g1"}
	_, err := g.MembersWithRole(context.Background(), "candidate")
	require.ErrorContains(t, err, "403")
}

func TestRoleMutationsTargetGuild(t *testing.T) {
	api := &fakeGuildAPI{}
	g := &GuildMembers{api: api, guildID: "g1"}

	require.NoError(t, g.AddRole(context.Background(), "111", "verified"))
	require.NoError(t, g.RemoveRole(context.Background(), "111", "unverified"))
	require.Equal(t, []string{"g1/111/verified"}, api.added)
	require.Equal(t, []string{"g1/111/unverified"}, api.removed)
}
