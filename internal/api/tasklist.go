package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/tasklist"
)

// TaskListHandler exposes the TaskList Service over REST.
type TaskListHandler struct {
	service *tasklist.Service
}

// NewTaskListHandler constructs a TaskListHandler.
func NewTaskListHandler(service *tasklist.Service) *TaskListHandler {
	return &TaskListHandler{service: service}
}

type createTaskListRequest struct {
	ProjectID      string   `json:"projectId"`
	Name           string   `json:"name"`
	OrderedTaskIDs []string `json:"orderedTaskIds"`
}

// Create handles POST /api/task-lists.
func (h *TaskListHandler) Create(c *gin.Context) {
	var req createTaskListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	l, err := h.service.CreateTaskList(c.Request.Context(), tasklist.CreateInput{
		ProjectID:      req.ProjectID,
		Name:           req.Name,
		OrderedTaskIDs: req.OrderedTaskIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// Get handles GET /api/task-lists/:id.
func (h *TaskListHandler) Get(c *gin.Context) {
	l, err := h.service.GetTaskList(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// List handles GET /api/task-lists?projectId=.
func (h *TaskListHandler) List(c *gin.Context) {
	list, err := h.service.ListTaskLists(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type renameTaskListRequest struct {
	Name string `json:"name"`
}

// Rename handles PATCH /api/task-lists/:id.
func (h *TaskListHandler) Rename(c *gin.Context) {
	var req renameTaskListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	l, err := h.service.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type taskListTaskRequest struct {
	TaskID string `json:"taskId"`
}

// AddTask handles POST /api/task-lists/:id/tasks.
func (h *TaskListHandler) AddTask(c *gin.Context) {
	var req taskListTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	l, err := h.service.AddTask(c.Request.Context(), c.Param("id"), req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// RemoveTask handles DELETE /api/task-lists/:id/tasks/:taskId.
func (h *TaskListHandler) RemoveTask(c *gin.Context) {
	l, err := h.service.RemoveTask(c.Request.Context(), c.Param("id"), c.Param("taskId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// Delete handles DELETE /api/task-lists/:id.
func (h *TaskListHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteTaskList(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
