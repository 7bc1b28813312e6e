package application_test

//go:generate mockgen -source=reconcile_service.go -destination=mocks/mocks.go -package=mocks GuildMembers,ReconcileService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crystaltides/internal/application"
	"crystaltides/internal/application/mocks"
	"crystaltides/internal/audit"
	"crystaltides/internal/models"
	"crystaltides/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const (
	roleCandidate  = "r-candidate"
	roleVerified   = "r-verified"
	roleUnverified = "r-unverified"
)

var reconcileCfg = application.ReconcileConfig{
	CandidateRoleID:  roleCandidate,
	VerifiedRoleID:   roleVerified,
	UnverifiedRoleID: roleUnverified,
	MemberTimeout:    time.Second,
}

type ReconcileServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	guild      *mocks.MockGuildMembers
	identities *repository.IdentityMemory
	sink       *recordingSink
	service    *application.ReconcileServiceImpl
	ctx        context.Context
}

func TestReconcileServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconcileServiceSuite))
}

func (s *ReconcileServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.guild = mocks.NewMockGuildMembers(s.ctrl)
	s.identities = repository.NewIdentityMemory()
	s.sink = &recordingSink{}
	s.service = application.NewReconcileServiceImpl(s.identities, s.guild, reconcileCfg,
		clockwork.NewFakeClockAt(epoch), s.sink, nil, nopLogger{})
	s.ctx = context.Background()
}

func (s *ReconcileServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ReconcileServiceSuite) members(m ...models.Member) {
	s.guild.EXPECT().MembersWithRole(gomock.Any(), roleCandidate).Return(m, nil)
}

func (s *ReconcileServiceSuite) TestUnlinkedMemberAlreadyUnverifiedIsUntouched() {
	s.members(models.NewMember("222", "nobody#0", "nobody", roleCandidate, roleUnverified))

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Candidates)
	s.Equal(1, report.Unverified)
	s.Zero(report.Mutations())
	s.NotEmpty(report.RunID)
}

func (s *ReconcileServiceSuite) TestLinkedMemberIsPromoted() {
	s.identities.Put(models.IdentityRecord{GameID: "uuid-1", ChatID: "111", ChatTag: "steve#0"})
	s.members(models.NewMember("111", "steve#0", "steve", roleCandidate, roleUnverified))

	s.guild.EXPECT().AddRole(gomock.Any(), "111", roleVerified).Return(nil)
	s.guild.EXPECT().RemoveRole(gomock.Any(), "111", roleUnverified).Return(nil)

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Verified)
	s.Equal(1, report.Added)
	s.Equal(1, report.Removed)
}

func (s *ReconcileServiceSuite) TestUnlinkedMemberIsDemoted() {
	s.members(models.NewMember("333", "ghost#0", "ghost", roleCandidate, roleVerified))

	s.guild.EXPECT().AddRole(gomock.Any(), "333", roleUnverified).Return(nil)
	s.guild.EXPECT().RemoveRole(gomock.Any(), "333", roleVerified).Return(nil)

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Unverified)
	s.Equal(2, report.Mutations())
}

func (s *ReconcileServiceSuite) TestTagFallback() {
	s.identities.Put(models.IdentityRecord{GameID: "uuid-1", ChatTag: "Steve#0"})
	s.identities.Put(models.IdentityRecord{GameID: "uuid-2", ChatID: "LegacyName"})
	s.members(
		models.NewMember("111", "steve#0", "steve", roleCandidate, roleVerified),
		models.NewMember("444", "other#1", "legacyname", roleCandidate, roleVerified),
	)

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Verified)
	s.Zero(report.Mutations())
}

func (s *ReconcileServiceSuite) TestEmptyTagsNeverMatch() {
	s.identities.Put(models.IdentityRecord{GameID: "uuid-1", ChatID: "111"})
	s.members(models.NewMember("555", "", "", roleCandidate, roleUnverified))

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Unverified)
}

func (s *ReconcileServiceSuite) TestFailuresAreIsolatedPerMember() {
	s.members(
		models.NewMember("1", "a#0", "a", roleCandidate),
		models.NewMember("2", "b#0", "b", roleCandidate),
	)

	gomock.InOrder(
		s.guild.EXPECT().AddRole(gomock.Any(), "1", roleUnverified).Return(errors.New("missing permissions")),
		s.guild.EXPECT().AddRole(gomock.Any(), "2", roleUnverified).Return(nil),
	)

	report, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Failed)
	s.Equal(1, report.Added)

	entries := s.sink.Entries()
	s.Require().Len(entries, 1)
	s.Equal("Sync Complete", entries[0].Title)
	s.Equal(audit.LevelWarn, entries[0].Level)
}

func (s *ReconcileServiceSuite) TestEachMutationGetsItsOwnDeadline() {
	s.members(models.NewMember("1", "a#0", "a", roleCandidate))

	s.guild.EXPECT().AddRole(gomock.Any(), "1", roleUnverified).DoAndReturn(
		func(ctx context.Context, memberID, roleID string) error {
			_, ok := ctx.Deadline()
			s.True(ok)
			return nil
		})

	_, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
}

func (s *ReconcileServiceSuite) TestFetchFailureIsAudited() {
	s.guild.EXPECT().MembersWithRole(gomock.Any(), roleCandidate).Return(nil, errors.New("gateway down"))

	_, err := s.service.Run(s.ctx)
	s.Require().Error(err)
	s.Equal([]string{"Sync Error"}, s.sink.Titles())
	s.Equal(audit.LevelError, s.sink.Entries()[0].Level)
}

func (s *ReconcileServiceSuite) TestSingleSummaryPerRun() {
	s.members(
		models.NewMember("1", "a#0", "a", roleCandidate, roleUnverified),
		models.NewMember("2", "b#0", "b", roleCandidate, roleUnverified),
		models.NewMember("3", "c#0", "c", roleCandidate, roleUnverified),
	)

	_, err := s.service.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Sync Complete"}, s.sink.Titles())
	s.Contains(s.sink.Entries()[0].Message, "Processed 3 candidates")
}

func (s *ReconcileServiceSuite) TestOverlappingRunIsSkipped() {
	entered := make(chan struct{})
	release := make(chan struct{})
	s.guild.EXPECT().MembersWithRole(gomock.Any(), roleCandidate).DoAndReturn(
		func(ctx context.Context, roleID string) ([]models.Member, error) {
			close(entered)
			<-release
			return nil, nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.service.Run(s.ctx)
		s.NoError(err)
	}()

	<-entered
	_, err := s.service.Run(s.ctx)
	s.ErrorIs(err, application.ErrAlreadyRunning)

	close(release)
	wg.Wait()
}

// fakeGuild applies role mutations to an in-memory membership.
type fakeGuild struct {
	mu      sync.Mutex
	members map[string]*models.Member
	calls   int
}

func newFakeGuild(members ...models.Member) *fakeGuild {
	g := &fakeGuild{members: make(map[string]*models.Member)}
	for i := range members {
		g.members[members[i].ID] = &members[i]
	}
	return g
}

func (g *fakeGuild) MembersWithRole(_ context.Context, roleID string) ([]models.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.Member
	for _, m := range g.members {
		if m.HasRole(roleID) {
			roles := make(map[string]struct{}, len(m.Roles))
			for r := range m.Roles {
				roles[r] = struct{}{}
			}
			out = append(out, models.Member{ID: m.ID, Tag: m.Tag, Username: m.Username, Roles: roles})
		}
	}
	return out, nil
}

func (g *fakeGuild) AddRole(_ context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.members[memberID].Roles[roleID] = struct{}{}
	return nil
}

func (g *fakeGuild) RemoveRole(_ context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	delete(g.members[memberID].Roles, roleID)
	return nil
}

func TestReconcileIsIdempotent(t *testing.T) {
	identities := repository.NewIdentityMemory()
	identities.Put(models.IdentityRecord{GameID: "uuid-1", ChatID: "111"})
	identities.Put(models.IdentityRecord{GameID: "uuid-2", ChatTag: "bob#0"})

	guild := newFakeGuild(
		models.NewMember("111", "steve#0", "steve", roleCandidate, roleUnverified),
		models.NewMember("222", "nobody#0", "nobody", roleCandidate, roleVerified),
		models.NewMember("333", "bob#0", "bob", roleCandidate),
		models.NewMember("999", "outsider#0", "outsider", roleVerified),
	)
	svc := application.NewReconcileServiceImpl(identities, guild, reconcileCfg,
		clockwork.NewFakeClock(), &recordingSink{}, nil, nopLogger{})

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, first.Candidates)
	require.Equal(t, 5, first.Mutations())

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, second.Mutations())
	require.Equal(t, 5, guild.calls)

	require.True(t, guild.members["111"].HasRole(roleVerified))
	require.False(t, guild.members["111"].HasRole(roleUnverified))
	require.True(t, guild.members["222"].HasRole(roleUnverified))
	require.True(t, guild.members["333"].HasRole(roleVerified))
	require.True(t, guild.members["999"].HasRole(roleVerified))
}

func TestReconcileWithoutGuildIsNotConfigured(t *testing.T) {
	svc := application.NewReconcileServiceImpl(repository.NewIdentityMemory(), nil, reconcileCfg,
		clockwork.NewFakeClock(), audit.Nop{}, nil, nopLogger{})
	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, application.ErrNotConfigured)
}
