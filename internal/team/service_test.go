package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/storage"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := New(store)

	projectID := idgen.Project()
	require.NoError(t, store.Projects().Create(context.Background(), &domain.Project{ID: projectID, Name: "demo"}))
	return svc, projectID
}

func TestListMembersSeedsDefaults(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	members, err := svc.ListMembers(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, members, len(builtinDefaults))
	for _, m := range members {
		require.True(t, m.IsDefault)
	}

	// A second call must not duplicate the seeded defaults.
	again, err := svc.ListMembers(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, again, len(builtinDefaults))
}

func TestUpdateDefaultMemberThenResetRestoresBuiltin(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	members, err := svc.ListMembers(ctx, projectID)
	require.NoError(t, err)
	target := members[0]
	originalName := target.Name

	newName := "Renamed Lead"
	updated, err := svc.UpdateMember(ctx, target.ID, UpdateMemberInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, newName, updated.Name)

	reset, err := svc.ResetDefault(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, originalName, reset.Name)
}

func TestDeleteMemberRequiresArchivedAndNonDefault(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	members, err := svc.ListMembers(ctx, projectID)
	require.NoError(t, err)
	require.Error(t, svc.DeleteMember(ctx, members[0].ID), "default members can never be deleted")

	custom, err := svc.CreateMember(ctx, CreateMemberInput{ProjectID: projectID, Name: "Custom"})
	require.NoError(t, err)
	require.Error(t, svc.DeleteMember(ctx, custom.ID), "active members must be archived first")

	archived := domain.TeamMemberArchived
	_, err = svc.UpdateMember(ctx, custom.ID, UpdateMemberInput{Status: &archived})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMember(ctx, custom.ID))
}

func TestCreateTeamValidatesLeaderAndMembers(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	m1, err := svc.CreateMember(ctx, CreateMemberInput{ProjectID: projectID, Name: "A"})
	require.NoError(t, err)
	m2, err := svc.CreateMember(ctx, CreateMemberInput{ProjectID: projectID, Name: "B"})
	require.NoError(t, err)

	_, err = svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Squad", LeaderID: "nope", MemberIDs: []string{m1.ID, m2.ID}})
	require.Error(t, err, "leaderId must be a member")

	team, err := svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Squad", LeaderID: m1.ID, MemberIDs: []string{m1.ID, m2.ID}})
	require.NoError(t, err)
	require.Equal(t, m1.ID, team.LeaderID)
}

func TestAddSubTeamRejectsCycle(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	m1, err := svc.CreateMember(ctx, CreateMemberInput{ProjectID: projectID, Name: "A"})
	require.NoError(t, err)

	parent, err := svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Parent", LeaderID: m1.ID, MemberIDs: []string{m1.ID}})
	require.NoError(t, err)
	child, err := svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Child", LeaderID: m1.ID, MemberIDs: []string{m1.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.AddSubTeam(ctx, parent.ID, child.ID))

	got, err := svc.GetTeam(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, parent.ID, got.ParentTeamID)

	err = svc.AddSubTeam(ctx, child.ID, parent.ID)
	require.Error(t, err, "making parent a sub-team of child would create a cycle")
}

func TestRemoveSubTeamClearsParentLinkOnlyIfStillPointing(t *testing.T) {
	svc, projectID := newTestService(t)
	ctx := context.Background()

	m1, err := svc.CreateMember(ctx, CreateMemberInput{ProjectID: projectID, Name: "A"})
	require.NoError(t, err)
	parent, err := svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Parent", LeaderID: m1.ID, MemberIDs: []string{m1.ID}})
	require.NoError(t, err)
	child, err := svc.CreateTeam(ctx, CreateTeamInput{ProjectID: projectID, Name: "Child", LeaderID: m1.ID, MemberIDs: []string{m1.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.AddSubTeam(ctx, parent.ID, child.ID))
	require.NoError(t, svc.RemoveSubTeam(ctx, parent.ID, child.ID))

	got, err := svc.GetTeam(ctx, child.ID)
	require.NoError(t, err)
	require.Empty(t, got.ParentTeamID)
}
