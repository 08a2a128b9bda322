package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/spawn"
)

// SpawnHandler exposes the Spawn Orchestrator over REST.
type SpawnHandler struct {
	service *spawn.Service
}

// NewSpawnHandler constructs a SpawnHandler.
func NewSpawnHandler(service *spawn.Service) *SpawnHandler {
	return &SpawnHandler{service: service}
}

type spawnRequest struct {
	ProjectID       string   `json:"projectId"`
	TaskIDs         []string `json:"taskIds"`
	SpawnSource     string   `json:"spawnSource"`
	Role            string   `json:"role"`
	ParentSessionID string   `json:"parentSessionId"`
	TeamMemberID    string   `json:"teamMemberId"`
	Model           string   `json:"model"`
	PermissionMode  string   `json:"permissionMode"`
}

// Spawn handles POST /api/sessions/spawn (spec.md §4.11).
func (h *SpawnHandler) Spawn(c *gin.Context) {
	var req spawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	sess, err := h.service.Spawn(c.Request.Context(), spawn.Request{
		ProjectID:       req.ProjectID,
		TaskIDs:         req.TaskIDs,
		SpawnSource:     spawn.Source(req.SpawnSource),
		Role:            spawn.Role(req.Role),
		ParentSessionID: req.ParentSessionID,
		TeamMemberID:    req.TeamMemberID,
		Model:           req.Model,
		PermissionMode:  req.PermissionMode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}
