package handlers

import (
	"net/http"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/middleware"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/models"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ============================================
// Member Handler
// ============================================

type MemberHandler struct {
	memberService service.MemberService
	logger        *zap.Logger
}

// Add - Add an existing user to the organization
// POST /orgs/:orgID/members
func (h *MemberHandler) Add(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var perms *repository.PermissionSet
	if req.Permissions != nil {
		p, err := repository.PermissionsFromNames(req.Permissions)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "Validation"})
			return
		}
		perms = &p
	}

	member, err := h.memberService.Add(c.Request.Context(), tc, req.UserID, req.Role, perms)
	if err != nil {
		respondError(c, h.logger, "member.add", err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// Invite - Invite a user by email
// POST /orgs/:orgID/members/invite
func (h *MemberHandler) Invite(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	member, err := h.memberService.InviteByEmail(c.Request.Context(), tc, req.Email, req.Role)
	if err != nil {
		respondError(c, h.logger, "member.invite", err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// List - List members with directory profiles
// GET /orgs/:orgID/members
func (h *MemberHandler) List(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), tc)
	if err != nil {
		respondError(c, h.logger, "member.list", err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// Get - Fetch one membership
// GET /orgs/:orgID/members/:userID
func (h *MemberHandler) Get(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	member, err := h.memberService.Get(c.Request.Context(), tc, c.Param("userID"))
	if err != nil {
		respondError(c, h.logger, "member.get", err)
		return
	}

	c.JSON(http.StatusOK, member)
}

// UpdateRole - Change a member's role
// PUT /orgs/:orgID/members/:userID/role
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.memberService.UpdateRole(c.Request.Context(), tc, c.Param("userID"), req.Role); err != nil {
		respondError(c, h.logger, "member.update_role", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

// UpdatePermissions - Replace a member's permission flags
// PUT /orgs/:orgID/members/:userID/permissions
func (h *MemberHandler) UpdatePermissions(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	var req models.UpdateMemberPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	perms, err := repository.PermissionsFromNames(req.Permissions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "Validation"})
		return
	}

	if err := h.memberService.UpdatePermissions(c.Request.Context(), tc, c.Param("userID"), perms); err != nil {
		respondError(c, h.logger, "member.update_permissions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Permissions updated"})
}

// Remove - Remove a member from the organization
// DELETE /orgs/:orgID/members/:userID
func (h *MemberHandler) Remove(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), tc, c.Param("userID")); err != nil {
		respondError(c, h.logger, "member.remove", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
