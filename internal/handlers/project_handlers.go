package handlers

import (
	"net/http"

	"vulx/internal/services"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService services.ProjectServiceMethods
	logger         *logger.Logger
}

func NewProjectHandler(projectService services.ProjectServiceMethods, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: log}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	project, err := h.projectService.CreateProject(c.Request.Context(), organizationID(c), req.toInput())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	project, err := h.projectService.GetProject(c.Request.Context(), projectID, organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	project, err := h.projectService.UpdateProject(c.Request.Context(), projectID, organizationID(c), req.toInput())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.projectService.DeleteProject(c.Request.Context(), projectID, organizationID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
