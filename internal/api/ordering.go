package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/ordering"
	"github.com/maestro-run/maestro/internal/platform/apperr"
)

// OrderingHandler exposes the Ordering Service over REST.
type OrderingHandler struct {
	service *ordering.Service
}

// NewOrderingHandler constructs an OrderingHandler.
func NewOrderingHandler(service *ordering.Service) *OrderingHandler {
	return &OrderingHandler{service: service}
}

// Get handles GET /api/orderings/:entityType?projectId=.
func (h *OrderingHandler) Get(c *gin.Context) {
	o, err := h.service.Get(c.Request.Context(), c.Query("projectId"), c.Param("entityType"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setOrderingRequest struct {
	ProjectID string   `json:"projectId"`
	IDs       []string `json:"ids"`
}

// Set handles PUT /api/orderings/:entityType.
func (h *OrderingHandler) Set(c *gin.Context) {
	var req setOrderingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	o, err := h.service.Set(c.Request.Context(), req.ProjectID, c.Param("entityType"), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type moveToFrontRequest struct {
	ProjectID string `json:"projectId"`
	ID        string `json:"id"`
}

// MoveToFront handles POST /api/orderings/:entityType/move-to-front.
func (h *OrderingHandler) MoveToFront(c *gin.Context) {
	var req moveToFrontRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	o, err := h.service.MoveToFront(c.Request.Context(), req.ProjectID, c.Param("entityType"), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
