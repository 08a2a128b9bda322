package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
)

// TaskHandler exposes the Task Service over REST.
type TaskHandler struct {
	service *task.Service
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(service *task.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	ProjectID     string   `json:"projectId"`
	ParentID      string   `json:"parentId"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      string   `json:"priority"`
	InitialPrompt string   `json:"initialPrompt"`
	SkillIDs      []string `json:"skillIds"`
	AgentIDs      []string `json:"agentIds"`
	Dependencies  []string `json:"dependencies"`
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	t, err := h.service.CreateTask(c.Request.Context(), task.CreateInput{
		ProjectID:     req.ProjectID,
		ParentID:      req.ParentID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		InitialPrompt: req.InitialPrompt,
		SkillIDs:      req.SkillIDs,
		AgentIDs:      req.AgentIDs,
		Dependencies:  req.Dependencies,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.service.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// List handles GET /api/tasks?projectId=&status=&parentId=.
func (h *TaskHandler) List(c *gin.Context) {
	filter := storage.TaskFilter{
		ProjectID: c.Query("projectId"),
		ParentID:  c.Query("parentId"),
		Status:    domain.TaskStatus(c.Query("status")),
	}
	if v := c.Query("hasParent"); v != "" {
		has := v == "true"
		filter.HasParent = &has
	}

	list, err := h.service.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Children handles GET /api/tasks/:id/children.
func (h *TaskHandler) Children(c *gin.Context) {
	list, err := h.service.ChildTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateTaskRequest struct {
	Source        string                   `json:"updateSource"`
	SessionID     string                   `json:"sessionId"`
	SessionStatus domain.TaskSessionStatus `json:"sessionStatus"`
	Title         *string                  `json:"title"`
	Description   *string                  `json:"description"`
	Status        *domain.TaskStatus       `json:"status"`
	Priority      *string                  `json:"priority"`
	InitialPrompt *string                  `json:"initialPrompt"`
	SkillIDs      []string                 `json:"skillIds"`
	AgentIDs      []string                 `json:"agentIds"`
	Dependencies  []string                 `json:"dependencies"`
}

// Update handles PATCH /api/tasks/:id, honoring updateSource.
func (h *TaskHandler) Update(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	source := domain.UpdateSource(req.Source)
	if source == "" {
		source = domain.UpdateSourceUser
	}

	t, err := h.service.UpdateTask(c.Request.Context(), c.Param("id"), task.UpdateInput{
		Source:        source,
		SessionID:     req.SessionID,
		SessionStatus: req.SessionStatus,
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		InitialPrompt: req.InitialPrompt,
		SkillIDs:      req.SkillIDs,
		AgentIDs:      req.AgentIDs,
		Dependencies:  req.Dependencies,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addSessionToTaskRequest struct {
	SessionID string `json:"sessionId"`
}

// AddSession handles POST /api/tasks/:id/sessions.
func (h *TaskHandler) AddSession(c *gin.Context) {
	var req addSessionToTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	if err := h.service.AddSessionToTask(c.Request.Context(), c.Param("id"), req.SessionID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveSession handles DELETE /api/tasks/:id/sessions/:sessionId.
func (h *TaskHandler) RemoveSession(c *gin.Context) {
	if err := h.service.RemoveSessionFromTask(c.Request.Context(), c.Param("id"), c.Param("sessionId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
