package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/middleware"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/models"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ============================================
// Project Handler
// ============================================

type ProjectHandler struct {
	projectService service.ProjectService
	logger         *zap.Logger
}

// Create - Create a project in the tenant organization
// POST /orgs/:orgID/projects (also POST /projects with organizationId in body)
func (h *ProjectHandler) Create(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	input := service.CreateProjectInput{
		Name:     req.Name,
		Status:   req.Status,
		Settings: req.Settings,
		Tags:     req.Tags,
	}
	if req.Budget != nil {
		input.Budget = *req.Budget
	}

	project, err := h.projectService.Create(c.Request.Context(), tc, input)
	if err != nil {
		respondError(c, h.logger, "project.create", err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListByOrganization - List projects in the tenant organization
// GET /orgs/:orgID/projects
func (h *ProjectHandler) ListByOrganization(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListByOrganization(c.Request.Context(), tc)
	if err != nil {
		respondError(c, h.logger, "project.list", err)
		return
	}

	c.JSON(http.StatusOK, projects)
}

// Search - Substring and tag search within the tenant organization
// GET /orgs/:orgID/projects/search?q=...&tags=a,b&limit=..&offset=..
func (h *ProjectHandler) Search(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	projects, err := h.projectService.Search(c.Request.Context(), tc,
		c.Query("q"), splitTags(c.Query("tags")), limit, offset)
	if err != nil {
		respondError(c, h.logger, "project.search", err)
		return
	}

	c.JSON(http.StatusOK, projects)
}

// Get - Fetch one project
// GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "project.get", err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// Update - Patch project fields
// PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), userID, c.Param("id"), service.UpdateProjectInput{
		Name:     req.Name,
		Status:   req.Status,
		Progress: req.Progress,
		Budget:   req.Budget,
		Settings: req.Settings,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, h.logger, "project.update", err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// Delete - Delete a project and its tasks
// DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.logger, "project.delete", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
