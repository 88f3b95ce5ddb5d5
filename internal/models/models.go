package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================
// Organization Models
// ============================================

type CreateOrganizationRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Slug     string                 `json:"slug"`
	Settings map[string]interface{} `json:"settings"`
}

type UpdateOrganizationRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

type UpdateSettingsRequest struct {
	Settings map[string]interface{} `json:"settings" binding:"required"`
}

// ============================================
// Member Models
// ============================================

type AddMemberRequest struct {
	UserID      string   `json:"userId" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
}

type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type UpdateMemberPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// ============================================
// Project Models
// ============================================

type CreateProjectRequest struct {
	OrganizationID string                 `json:"organizationId"`
	Name           string                 `json:"name" binding:"required"`
	Status         string                 `json:"status"`
	Budget         *decimal.Decimal       `json:"budget"`
	Settings       map[string]interface{} `json:"settings"`
	Tags           []string               `json:"tags"`
}

type UpdateProjectRequest struct {
	Name     *string                `json:"name"`
	Status   *string                `json:"status"`
	Progress *int                   `json:"progress"`
	Budget   *decimal.Decimal       `json:"budget"`
	Settings map[string]interface{} `json:"settings"`
	Tags     []string               `json:"tags"`
}

// ============================================
// Task Models
// ============================================

type CreateTaskRequest struct {
	Title          string                 `json:"title" binding:"required"`
	Description    *string                `json:"description"`
	Status         string                 `json:"status"`
	Priority       string                 `json:"priority"`
	DueDate        *time.Time             `json:"dueDate"`
	EstimatedHours *float64               `json:"estimatedHours"`
	AssigneeID     *string                `json:"assigneeId"`
	Tags           []string               `json:"tags"`
	Metadata       map[string]interface{} `json:"metadata"`
}

type UpdateTaskRequest struct {
	Title          *string                `json:"title"`
	Description    *string                `json:"description"`
	Status         *string                `json:"status"`
	Priority       *string                `json:"priority"`
	DueDate        *time.Time             `json:"dueDate"`
	EstimatedHours *float64               `json:"estimatedHours"`
	ActualHours    *float64               `json:"actualHours"`
	Tags           []string               `json:"tags"`
	Metadata       map[string]interface{} `json:"metadata"`
}

type MoveTaskRequest struct {
	Position int `json:"position" binding:"min=0"`
}

type AssignTaskRequest struct {
	AssigneeID *string `json:"assigneeId"`
}
