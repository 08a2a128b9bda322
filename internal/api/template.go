package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/template"
)

// TemplateHandler exposes the Template Service over REST.
type TemplateHandler struct {
	service *template.Service
}

// NewTemplateHandler constructs a TemplateHandler.
func NewTemplateHandler(service *template.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// Get handles GET /api/templates/:role?projectId=.
func (h *TemplateHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Query("projectId"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// List handles GET /api/templates?projectId=.
func (h *TemplateHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type setTemplateRequest struct {
	ProjectID string `json:"projectId"`
	Text      string `json:"text"`
}

// Set handles PUT /api/templates/:role.
func (h *TemplateHandler) Set(c *gin.Context) {
	var req setTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	t, err := h.service.Set(c.Request.Context(), req.ProjectID, c.Param("role"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Reset handles POST /api/templates/:role/reset?projectId=.
func (h *TemplateHandler) Reset(c *gin.Context) {
	t, err := h.service.Reset(c.Request.Context(), c.Query("projectId"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
