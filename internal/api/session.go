package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/storage"
)

// SessionHandler exposes the Session Service over REST.
type SessionHandler struct {
	service *session.Service
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(service *session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	ProjectID       string            `json:"projectId"`
	TaskIDs         []string          `json:"taskIds"`
	ParentSessionID string            `json:"parentSessionId"`
	TeamMemberID    string            `json:"teamMemberId"`
	Role            string            `json:"role"`
	Env             map[string]string `json:"env"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	s, err := h.service.CreateSession(c.Request.Context(), session.CreateInput{
		ProjectID:       req.ProjectID,
		TaskIDs:         req.TaskIDs,
		ParentSessionID: req.ParentSessionID,
		TeamMemberID:    req.TeamMemberID,
		Role:            req.Role,
		Env:             req.Env,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// List handles GET /api/sessions?projectId=&taskId=&active=&parentSessionId=.
func (h *SessionHandler) List(c *gin.Context) {
	filter := storage.SessionFilter{
		ProjectID:       c.Query("projectId"),
		TaskID:          c.Query("taskId"),
		ParentSessionID: c.Query("parentSessionId"),
	}
	if v := c.Query("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}

	list, err := h.service.ListSessions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateSessionRequest struct {
	Status            *domain.SessionStatus `json:"status"`
	NeedsInputActive  *bool                 `json:"needsInputActive"`
	NeedsInputMessage *string               `json:"needsInputMessage"`
	Env               map[string]string     `json:"env"`
}

// Update handles PATCH /api/sessions/:id.
func (h *SessionHandler) Update(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	s, err := h.service.UpdateSession(c.Request.Context(), c.Param("id"), session.UpdateInput{
		Status:            req.Status,
		NeedsInputActive:  req.NeedsInputActive,
		NeedsInputMessage: req.NeedsInputMessage,
		Env:               req.Env,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /api/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addTaskToSessionRequest struct {
	TaskID string `json:"taskId"`
}

// AddTask handles POST /api/sessions/:id/tasks.
func (h *SessionHandler) AddTask(c *gin.Context) {
	var req addTaskToSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	if err := h.service.AddTaskToSession(c.Request.Context(), c.Param("id"), req.TaskID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveTask handles DELETE /api/sessions/:id/tasks/:taskId.
func (h *SessionHandler) RemoveTask(c *gin.Context) {
	if err := h.service.RemoveTaskFromSession(c.Request.Context(), c.Param("id"), c.Param("taskId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addTimelineEventRequest struct {
	Type     domain.TimelineEventType `json:"type"`
	Message  string                   `json:"message"`
	TaskID   string                   `json:"taskId"`
	Metadata map[string]interface{}   `json:"metadata"`
}

// AddTimelineEvent handles POST /api/sessions/:id/timeline.
func (h *SessionHandler) AddTimelineEvent(c *gin.Context) {
	var req addTimelineEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	s, err := h.service.AddTimelineEvent(c.Request.Context(), c.Param("id"), req.Type, req.Message, req.TaskID, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Timeline handles GET /api/sessions/:id/timeline (spec.md §4a).
func (h *SessionHandler) Timeline(c *gin.Context) {
	events, err := h.service.GetTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type addDocRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AddDoc handles POST /api/sessions/:id/docs.
func (h *SessionHandler) AddDoc(c *gin.Context) {
	var req addDocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	s, err := h.service.AddDoc(c.Request.Context(), c.Param("id"), req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type promptRequest struct {
	Content         string `json:"content"`
	Mode            string `json:"mode"`
	SenderSessionID string `json:"senderSessionId"`
}

// Prompt handles POST /api/sessions/:id/prompt (spec.md §4.12).
func (h *SessionHandler) Prompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(c, apperr.Validation("content must not be empty"))
		return
	}
	mode := session.PromptMode(req.Mode)
	if mode != session.PromptModeSend && mode != session.PromptModePaste {
		respondError(c, apperr.Validation("mode must be 'send' or 'paste'"))
		return
	}

	s, err := h.service.SendPrompt(c.Request.Context(), c.Param("id"), req.Content, mode, req.SenderSessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
