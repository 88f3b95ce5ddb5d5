package handlers

import (
	"net/http"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Organization *OrganizationHandler
	Member       *MemberHandler
	Project      *ProjectHandler
	Task         *TaskHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, logger *zap.Logger) *Handlers {
	return &Handlers{
		Organization: &OrganizationHandler{orgService: services.Org, logger: logger},
		Member:       &MemberHandler{memberService: services.Member, logger: logger},
		Project:      &ProjectHandler{projectService: services.Project, logger: logger},
		Task:         &TaskHandler{taskService: services.Task, logger: logger},
	}
}

// respondError translates service errors into a status plus a stable code
// string. Clients branch on the code, never on the message text.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch err {
	case service.ErrMissingOrganization:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization id is required", "code": "MissingOrganization"})
	case service.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "Forbidden"})
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "code": "NotFound"})
	case service.ErrTargetNotMember:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Target user is not a member of this organization", "code": "TargetNotMember"})
	case service.ErrRoleEscalation:
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot assign a role higher than your own", "code": "RoleEscalationBlocked"})
	case service.ErrLastOwner:
		c.JSON(http.StatusConflict, gin.H{"error": "Organizations must keep at least one owner", "code": "LastOwnerProtected"})
	case service.ErrSelfModification:
		c.JSON(http.StatusConflict, gin.H{"error": "You cannot modify your own membership", "code": "SelfModificationBlocked"})
	case service.ErrDuplicateMember:
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member", "code": "DuplicateMembership"})
	case service.ErrSlugConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "Organization slug already exists", "code": "SlugConflict"})
	case service.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "code": "Validation"})
	default:
		logger.Error("request failed",
			zap.String("operation", op),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "Internal"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "Validation"})
}
