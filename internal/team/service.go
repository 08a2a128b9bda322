// Package team implements the TeamMember and Team halves of spec.md §4.10:
// default-member overlays and acyclic team nesting.
package team

import (
	"context"
	"time"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements TeamMember and Team operations. spec.md §4.10 describes
// no event-bus emissions for this component, unlike Project/Task/Session, so
// this service has no bus dependency.
type Service struct {
	store storage.Store
}

// New constructs a Service over store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// ListMembers returns projectID's team members, seeding the code-provided
// defaults into storage on first access so they have a concrete row to
// overlay edits onto (spec.md §4.10).
func (s *Service) ListMembers(ctx context.Context, projectID string) ([]*domain.TeamMember, error) {
	if err := s.ensureDefaults(ctx, projectID); err != nil {
		return nil, err
	}
	members, err := s.store.TeamMembers().List(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal("listing team members", err)
	}
	return members, nil
}

func (s *Service) ensureDefaults(ctx context.Context, projectID string) error {
	existing, err := s.store.TeamMembers().List(ctx, projectID)
	if err != nil {
		return apperr.Internal("listing team members", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.ID] = true
	}

	for _, d := range builtinDefaults {
		id := projectID + ":" + d.ID
		if seen[id] {
			continue
		}
		m := memberFromDefault(projectID, id, d)
		if err := s.store.TeamMembers().Create(ctx, m); err != nil {
			return apperr.Internal("seeding default team member", err)
		}
	}
	return nil
}

func memberFromDefault(projectID, id string, d defaultMember) *domain.TeamMember {
	now := time.Now()
	return &domain.TeamMember{
		ID:           id,
		ProjectID:    projectID,
		Name:         d.Name,
		Role:         d.Role,
		Avatar:       d.Avatar,
		Model:        d.Model,
		AgentTool:    d.AgentTool,
		Mode:         d.Mode,
		Skills:       append([]string(nil), d.Skills...),
		Capabilities: append([]string(nil), d.Capabilities...),
		IsDefault:    true,
		Status:       domain.TeamMemberActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// GetMember returns one member by id.
func (s *Service) GetMember(ctx context.Context, id string) (*domain.TeamMember, error) {
	m, err := s.store.TeamMembers().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("teamMember", id)
	}
	return m, nil
}

// CreateMemberInput is the payload for creating a custom (non-default)
// TeamMember.
type CreateMemberInput struct {
	ProjectID          string
	Name               string
	Role               string
	Avatar             string
	Model              string
	AgentTool          string
	Mode               string
	Skills             []string
	Capabilities       []string
	CommandPermissions []string
}

// CreateMember creates a custom TeamMember.
func (s *Service) CreateMember(ctx context.Context, in CreateMemberInput) (*domain.TeamMember, error) {
	if in.Name == "" {
		return nil, apperr.Validation("team member name must not be empty")
	}
	if _, err := s.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, apperr.NotFound("project", in.ProjectID)
	}

	now := time.Now()
	m := &domain.TeamMember{
		ID:                 idgen.TeamMember(),
		ProjectID:          in.ProjectID,
		Name:               in.Name,
		Role:               in.Role,
		Avatar:             in.Avatar,
		Model:              in.Model,
		AgentTool:          in.AgentTool,
		Mode:               in.Mode,
		Skills:             in.Skills,
		Capabilities:       in.Capabilities,
		CommandPermissions: in.CommandPermissions,
		IsDefault:          false,
		Status:             domain.TeamMemberActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.TeamMembers().Create(ctx, m); err != nil {
		return nil, apperr.Internal("creating team member", err)
	}
	return m, nil
}

// UpdateMemberInput is the payload for UpdateMember; non-nil fields apply.
// For isDefault members this writes the overlay in place (spec.md §4.10).
type UpdateMemberInput struct {
	Name               *string
	Role               *string
	Avatar             *string
	Model              *string
	AgentTool          *string
	Mode               *string
	Skills             []string
	Capabilities       []string
	CommandPermissions []string
	Status             *domain.TeamMemberStatus
}

// UpdateMember applies in to member id.
func (s *Service) UpdateMember(ctx context.Context, id string, in UpdateMemberInput) (*domain.TeamMember, error) {
	m, err := s.store.TeamMembers().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("teamMember", id)
	}

	if in.Name != nil {
		m.Name = *in.Name
	}
	if in.Role != nil {
		m.Role = *in.Role
	}
	if in.Avatar != nil {
		m.Avatar = *in.Avatar
	}
	if in.Model != nil {
		m.Model = *in.Model
	}
	if in.AgentTool != nil {
		m.AgentTool = *in.AgentTool
	}
	if in.Mode != nil {
		m.Mode = *in.Mode
	}
	if in.Skills != nil {
		m.Skills = in.Skills
	}
	if in.Capabilities != nil {
		m.Capabilities = in.Capabilities
	}
	if in.CommandPermissions != nil {
		m.CommandPermissions = in.CommandPermissions
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	m.UpdatedAt = time.Now()

	if err := s.store.TeamMembers().Update(ctx, m); err != nil {
		return nil, apperr.Internal("updating team member", err)
	}
	return m, nil
}

// ResetDefault discards a default member's overlay, restoring the
// code-provided values (spec.md §4.10). Only valid for isDefault members.
func (s *Service) ResetDefault(ctx context.Context, id string) (*domain.TeamMember, error) {
	m, err := s.store.TeamMembers().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("teamMember", id)
	}
	if !m.IsDefault {
		return nil, apperr.Validation("resetDefault only applies to default team members")
	}

	for _, d := range builtinDefaults {
		if m.ProjectID+":"+d.ID == id {
			restored := memberFromDefault(m.ProjectID, id, d)
			restored.CreatedAt = m.CreatedAt
			if err := s.store.TeamMembers().Update(ctx, restored); err != nil {
				return nil, apperr.Internal("resetting team member", err)
			}
			return restored, nil
		}
	}
	return nil, apperr.Internal("no built-in default matches this member", nil)
}

// DeleteMember requires status=archived and isDefault=false (spec.md §4.10).
func (s *Service) DeleteMember(ctx context.Context, id string) error {
	m, err := s.store.TeamMembers().Get(ctx, id)
	if err != nil {
		return apperr.NotFound("teamMember", id)
	}
	if m.IsDefault {
		return apperr.BusinessRule("default team members cannot be deleted")
	}
	if m.Status != domain.TeamMemberArchived {
		return apperr.BusinessRule("team member must be archived before deletion")
	}
	if err := s.store.TeamMembers().Delete(ctx, id); err != nil {
		return apperr.Internal("deleting team member", err)
	}
	return nil
}

// ListTeams returns projectID's teams.
func (s *Service) ListTeams(ctx context.Context, projectID string) ([]*domain.Team, error) {
	teams, err := s.store.Teams().List(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal("listing teams", err)
	}
	return teams, nil
}

// GetTeam returns one team by id.
func (s *Service) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	t, err := s.store.Teams().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("team", id)
	}
	return t, nil
}

// CreateTeamInput is the payload for CreateTeam.
type CreateTeamInput struct {
	ProjectID string
	Name      string
	LeaderID  string
	MemberIDs []string
}

// CreateTeam validates leaderId ∈ memberIds and that every member exists in
// the same project (spec.md §4.10).
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (*domain.Team, error) {
	if in.Name == "" {
		return nil, apperr.Validation("team name must not be empty")
	}
	if err := s.validateLeaderAndMembers(ctx, in.ProjectID, in.LeaderID, in.MemberIDs); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &domain.Team{
		ID:        idgen.Team(),
		ProjectID: in.ProjectID,
		Name:      in.Name,
		LeaderID:  in.LeaderID,
		MemberIDs: in.MemberIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Teams().Create(ctx, t); err != nil {
		return nil, apperr.Internal("creating team", err)
	}
	return t, nil
}

func (s *Service) validateLeaderAndMembers(ctx context.Context, projectID, leaderID string, memberIDs []string) error {
	found := false
	for _, id := range memberIDs {
		if id == leaderID {
			found = true
		}
		m, err := s.store.TeamMembers().Get(ctx, id)
		if err != nil || m.ProjectID != projectID {
			return apperr.Validation("member " + id + " does not exist in this project")
		}
	}
	if !found {
		return apperr.Validation("leaderId must be a member of memberIds")
	}
	return nil
}

// UpdateTeamInput is the payload for UpdateTeam.
type UpdateTeamInput struct {
	Name      *string
	LeaderID  *string
	MemberIDs []string
}

// UpdateTeam applies in to team id, re-validating the leader/member
// invariant if either changed.
func (s *Service) UpdateTeam(ctx context.Context, id string, in UpdateTeamInput) (*domain.Team, error) {
	t, err := s.store.Teams().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("team", id)
	}

	leaderID := t.LeaderID
	memberIDs := t.MemberIDs
	if in.LeaderID != nil {
		leaderID = *in.LeaderID
	}
	if in.MemberIDs != nil {
		memberIDs = in.MemberIDs
	}
	if err := s.validateLeaderAndMembers(ctx, t.ProjectID, leaderID, memberIDs); err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	t.LeaderID = leaderID
	t.MemberIDs = memberIDs
	t.UpdatedAt = time.Now()

	if err := s.store.Teams().Update(ctx, t); err != nil {
		return nil, apperr.Internal("updating team", err)
	}
	return t, nil
}

// AddSubTeam attaches childID as a sub-team of parentID, rejecting cycles by
// DFS from the proposed child to confirm parentID is not already one of its
// descendants (spec.md §4.10). Establishes the mirrored parentTeamId.
func (s *Service) AddSubTeam(ctx context.Context, parentID, childID string) error {
	if parentID == childID {
		return apperr.Validation("a team cannot be its own sub-team")
	}
	parent, err := s.store.Teams().Get(ctx, parentID)
	if err != nil {
		return apperr.NotFound("team", parentID)
	}
	child, err := s.store.Teams().Get(ctx, childID)
	if err != nil {
		return apperr.NotFound("team", childID)
	}
	if parent.ProjectID != child.ProjectID {
		return apperr.Validation("teams must belong to the same project")
	}

	isDescendant, err := s.isDescendant(ctx, childID, parentID)
	if err != nil {
		return err
	}
	if isDescendant {
		return apperr.BusinessRule("adding this sub-team would create a cycle")
	}

	parent.SubTeamIDs = append(parent.SubTeamIDs, childID)
	parent.UpdatedAt = time.Now()
	if err := s.store.Teams().Update(ctx, parent); err != nil {
		return apperr.Internal("updating team", err)
	}

	child.ParentTeamID = parentID
	child.UpdatedAt = time.Now()
	if err := s.store.Teams().Update(ctx, child); err != nil {
		return apperr.Internal("updating team", err)
	}
	return nil
}

// isDescendant reports whether candidateID is reachable from rootID's
// subTeamIds (i.e. candidateID is already a descendant of rootID).
func (s *Service) isDescendant(ctx context.Context, rootID, candidateID string) (bool, error) {
	visited := map[string]bool{}
	var walk func(string) (bool, error)
	walk = func(id string) (bool, error) {
		if visited[id] {
			return false, nil
		}
		visited[id] = true
		t, err := s.store.Teams().Get(ctx, id)
		if err != nil {
			return false, apperr.Internal("walking sub-teams", err)
		}
		for _, sub := range t.SubTeamIDs {
			if sub == candidateID {
				return true, nil
			}
			ok, err := walk(sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return walk(rootID)
}

// RemoveSubTeam detaches childID from parentID's subTeamIds, clearing the
// child's parentTeamId iff it still points at parentID.
func (s *Service) RemoveSubTeam(ctx context.Context, parentID, childID string) error {
	parent, err := s.store.Teams().Get(ctx, parentID)
	if err != nil {
		return apperr.NotFound("team", parentID)
	}
	parent.SubTeamIDs = removeID(parent.SubTeamIDs, childID)
	parent.UpdatedAt = time.Now()
	if err := s.store.Teams().Update(ctx, parent); err != nil {
		return apperr.Internal("updating team", err)
	}

	child, err := s.store.Teams().Get(ctx, childID)
	if err != nil {
		return nil // already gone; nothing to unlink
	}
	if child.ParentTeamID == parentID {
		child.ParentTeamID = ""
		child.UpdatedAt = time.Now()
		if err := s.store.Teams().Update(ctx, child); err != nil {
			return apperr.Internal("updating team", err)
		}
	}
	return nil
}

// DeleteTeam removes teamID.
func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	if _, err := s.store.Teams().Get(ctx, id); err != nil {
		return apperr.NotFound("team", id)
	}
	if err := s.store.Teams().Delete(ctx, id); err != nil {
		return apperr.Internal("deleting team", err)
	}
	return nil
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
