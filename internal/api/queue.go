package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/queue"
)

// QueueHandler exposes the Queue Service over REST.
type QueueHandler struct {
	service *queue.Service
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(service *queue.Service) *QueueHandler {
	return &QueueHandler{service: service}
}

type createQueueRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// Create handles POST /api/sessions/:id/queue.
func (h *QueueHandler) Create(c *gin.Context) {
	var req createQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	q, err := h.service.CreateQueue(c.Request.Context(), c.Param("id"), req.TaskIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// Get handles GET /api/sessions/:id/queue.
func (h *QueueHandler) Get(c *gin.Context) {
	q, err := h.service.GetQueue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type pushQueueItemRequest struct {
	TaskID string `json:"taskId"`
}

// Push handles POST /api/sessions/:id/queue/items.
func (h *QueueHandler) Push(c *gin.Context) {
	var req pushQueueItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	q, err := h.service.PushItem(c.Request.Context(), c.Param("id"), req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Start handles POST /api/sessions/:id/queue/start.
func (h *QueueHandler) Start(c *gin.Context) {
	q, err := h.service.StartItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Complete handles POST /api/sessions/:id/queue/complete.
func (h *QueueHandler) Complete(c *gin.Context) {
	q, err := h.service.CompleteItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type failQueueItemRequest struct {
	Reason string `json:"reason"`
}

// Fail handles POST /api/sessions/:id/queue/fail.
func (h *QueueHandler) Fail(c *gin.Context) {
	var req failQueueItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	q, err := h.service.FailItem(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Skip handles POST /api/sessions/:id/queue/skip.
func (h *QueueHandler) Skip(c *gin.Context) {
	q, err := h.service.SkipItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Stats handles GET /api/sessions/:id/queue/stats.
func (h *QueueHandler) Stats(c *gin.Context) {
	st, err := h.service.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
