package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

const tenantContextKey = "tenantContext"

// TenantContext builds the request's tenancy context before any handler
// runs. The organization id is taken from the orgID path parameter first,
// then an organizationId body field, then an organizationId query parameter.
// Requests with no resolvable organization get 400; authenticated users who
// are not members of the organization get 403.
func TenantContext(access service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := RequireUserID(c)
		if !ok {
			return
		}

		orgID := resolveOrgID(c)
		tc, err := access.BuildTenantContext(c.Request.Context(), orgID, userID)
		if err != nil {
			switch err {
			case service.ErrMissingOrganization:
				c.JSON(http.StatusBadRequest, gin.H{"error": "Organization id is required", "code": "MissingOrganization"})
			case service.ErrForbidden:
				c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this organization", "code": "Forbidden"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "Internal"})
			}
			c.Abort()
			return
		}

		c.Set(tenantContextKey, tc)
		c.Next()
	}
}

func resolveOrgID(c *gin.Context) string {
	if id := c.Param("orgID"); id != "" {
		return id
	}
	if id := orgIDFromBody(c); id != "" {
		return id
	}
	return c.Query("organizationId")
}

// orgIDFromBody peeks at a JSON body for an organizationId field and
// restores the body so handler binding still works.
func orgIDFromBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	var body struct {
		OrganizationID string `json:"organizationId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.OrganizationID
}

// GetTenant retrieves the tenancy context set by TenantContext.
func GetTenant(c *gin.Context) (*service.TenantContext, bool) {
	v, exists := c.Get(tenantContextKey)
	if !exists {
		return nil, false
	}
	tc, ok := v.(*service.TenantContext)
	return tc, ok
}

// RequireTenant is GetTenant for handlers behind TenantContext; it aborts
// with 400 if the context is missing.
func RequireTenant(c *gin.Context) (*service.TenantContext, bool) {
	tc, ok := GetTenant(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization id is required", "code": "MissingOrganization"})
		c.Abort()
	}
	return tc, ok
}

// RequireRole aborts with 403 unless the caller holds one of the roles.
func RequireRole(access service.AccessService, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := RequireTenant(c)
		if !ok {
			return
		}
		if err := access.RequireRole(tc, roles...); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role", "code": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOwner aborts with 403 unless the caller is an organization owner.
func RequireOwner(access service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := RequireTenant(c)
		if !ok {
			return
		}
		if err := access.RequireOwner(tc); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Owner role required", "code": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the caller holds the permission.
// Membership is re-read on every request so a revocation takes effect
// immediately, not at the next login.
func RequirePermission(access service.AccessService, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := RequireTenant(c)
		if !ok {
			return
		}
		if err := access.RequirePermission(c.Request.Context(), tc, permission); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
