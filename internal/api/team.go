package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/team"
)

// TeamHandler exposes the TeamMember and Team halves of the service over REST.
type TeamHandler struct {
	service *team.Service
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(service *team.Service) *TeamHandler {
	return &TeamHandler{service: service}
}

// ListMembers handles GET /api/team-members?projectId=.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	list, err := h.service.ListMembers(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetMember handles GET /api/team-members/:id.
func (h *TeamHandler) GetMember(c *gin.Context) {
	m, err := h.service.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type createMemberRequest struct {
	ProjectID          string   `json:"projectId"`
	Name               string   `json:"name"`
	Role               string   `json:"role"`
	Avatar             string   `json:"avatar"`
	Model              string   `json:"model"`
	AgentTool          string   `json:"agentTool"`
	Mode               string   `json:"mode"`
	Skills             []string `json:"skills"`
	Capabilities       []string `json:"capabilities"`
	CommandPermissions []string `json:"commandPermissions"`
}

// CreateMember handles POST /api/team-members.
func (h *TeamHandler) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	m, err := h.service.CreateMember(c.Request.Context(), team.CreateMemberInput{
		ProjectID:          req.ProjectID,
		Name:               req.Name,
		Role:               req.Role,
		Avatar:             req.Avatar,
		Model:              req.Model,
		AgentTool:          req.AgentTool,
		Mode:               req.Mode,
		Skills:             req.Skills,
		Capabilities:       req.Capabilities,
		CommandPermissions: req.CommandPermissions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

type updateMemberRequest struct {
	Name               *string                     `json:"name"`
	Role               *string                     `json:"role"`
	Avatar             *string                     `json:"avatar"`
	Model              *string                     `json:"model"`
	AgentTool          *string                     `json:"agentTool"`
	Mode               *string                     `json:"mode"`
	Skills             []string                    `json:"skills"`
	Capabilities       []string                    `json:"capabilities"`
	CommandPermissions []string                    `json:"commandPermissions"`
	Status             *domain.TeamMemberStatus    `json:"status"`
}

// UpdateMember handles PATCH /api/team-members/:id.
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	m, err := h.service.UpdateMember(c.Request.Context(), c.Param("id"), team.UpdateMemberInput{
		Name:               req.Name,
		Role:               req.Role,
		Avatar:             req.Avatar,
		Model:              req.Model,
		AgentTool:          req.AgentTool,
		Mode:               req.Mode,
		Skills:             req.Skills,
		Capabilities:       req.Capabilities,
		CommandPermissions: req.CommandPermissions,
		Status:             req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ResetDefaultMember handles POST /api/team-members/:id/reset.
func (h *TeamHandler) ResetDefaultMember(c *gin.Context) {
	m, err := h.service.ResetDefault(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMember handles DELETE /api/team-members/:id.
func (h *TeamHandler) DeleteMember(c *gin.Context) {
	if err := h.service.DeleteMember(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTeams handles GET /api/teams?projectId=.
func (h *TeamHandler) ListTeams(c *gin.Context) {
	list, err := h.service.ListTeams(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetTeam handles GET /api/teams/:id.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	t, err := h.service.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type createTeamRequest struct {
	ProjectID string   `json:"projectId"`
	Name      string   `json:"name"`
	LeaderID  string   `json:"leaderId"`
	MemberIDs []string `json:"memberIds"`
}

// CreateTeam handles POST /api/teams.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	t, err := h.service.CreateTeam(c.Request.Context(), team.CreateTeamInput{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		LeaderID:  req.LeaderID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type updateTeamRequest struct {
	Name      *string  `json:"name"`
	LeaderID  *string  `json:"leaderId"`
	MemberIDs []string `json:"memberIds"`
}

// UpdateTeam handles PATCH /api/teams/:id.
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	var req updateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	t, err := h.service.UpdateTeam(c.Request.Context(), c.Param("id"), team.UpdateTeamInput{
		Name:      req.Name,
		LeaderID:  req.LeaderID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTeam handles DELETE /api/teams/:id.
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	if err := h.service.DeleteTeam(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type subTeamRequest struct {
	ChildID string `json:"childId"`
}

// AddSubTeam handles POST /api/teams/:id/sub-teams.
func (h *TeamHandler) AddSubTeam(c *gin.Context) {
	var req subTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	if err := h.service.AddSubTeam(c.Request.Context(), c.Param("id"), req.ChildID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveSubTeam handles DELETE /api/teams/:id/sub-teams/:childId.
func (h *TeamHandler) RemoveSubTeam(c *gin.Context) {
	if err := h.service.RemoveSubTeam(c.Request.Context(), c.Param("id"), c.Param("childId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
