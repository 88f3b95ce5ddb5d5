package handlers

import (
	"net/http"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/middleware"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/models"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ============================================
// Organization Handler
// ============================================

type OrganizationHandler struct {
	orgService service.OrganizationService
	logger     *zap.Logger
}

// Create - Create a new organization
// POST /orgs
func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), userID, req.Name, req.Slug, req.Settings)
	if err != nil {
		respondError(c, h.logger, "organization.create", err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// List - List organizations the caller belongs to
// GET /orgs
func (h *OrganizationHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	orgs, err := h.orgService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "organization.list", err)
		return
	}

	c.JSON(http.StatusOK, orgs)
}

// Get - Fetch one organization
// GET /orgs/:orgID
func (h *OrganizationHandler) Get(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	org, err := h.orgService.Get(c.Request.Context(), tc)
	if err != nil {
		respondError(c, h.logger, "organization.get", err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// Update - Rename an organization
// PUT /orgs/:orgID
func (h *OrganizationHandler) Update(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	slug := ""
	if req.Slug != nil {
		slug = *req.Slug
	}
	org, err := h.orgService.Update(c.Request.Context(), tc, name, slug)
	if err != nil {
		respondError(c, h.logger, "organization.update", err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// UpdateSettings - Replace the organization settings document
// PUT /orgs/:orgID/settings
func (h *OrganizationHandler) UpdateSettings(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	org, err := h.orgService.UpdateSettings(c.Request.Context(), tc, req.Settings)
	if err != nil {
		respondError(c, h.logger, "organization.update_settings", err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// Delete - Delete an organization and everything under it
// DELETE /orgs/:orgID
func (h *OrganizationHandler) Delete(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	if err := h.orgService.Delete(c.Request.Context(), tc); err != nil {
		respondError(c, h.logger, "organization.delete", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted"})
}
