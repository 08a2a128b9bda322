package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/project"
)

// ProjectHandler exposes the Project Service over REST.
type ProjectHandler struct {
	service *project.Service
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(service *project.Service) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	WorkingDir  string `json:"workingDir"`
	Description string `json:"description"`
	IsMaster    bool   `json:"isMaster"`
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	p, err := h.service.CreateProject(c.Request.Context(), project.CreateInput{
		Name:        req.Name,
		WorkingDir:  req.WorkingDir,
		Description: req.Description,
		IsMaster:    req.IsMaster,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.service.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	list, err := h.service.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	WorkingDir  *string `json:"workingDir"`
	Description *string `json:"description"`
}

// Update handles PUT /api/projects/:id.
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	p, err := h.service.UpdateProject(c.Request.Context(), c.Param("id"), project.UpdateInput{
		Name:        req.Name,
		WorkingDir:  req.WorkingDir,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type setMasterStatusRequest struct {
	IsMaster bool `json:"isMaster"`
}

// SetMasterStatus handles PUT /api/projects/:id/master.
func (h *ProjectHandler) SetMasterStatus(c *gin.Context) {
	var req setMasterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}
	p, err := h.service.SetMasterStatus(c.Request.Context(), c.Param("id"), req.IsMaster)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/projects/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
