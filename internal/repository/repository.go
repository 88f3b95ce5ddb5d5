// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Write-path failures that services translate into client-facing outcomes.
// Read lookups keep the (nil, nil) convention for absent rows.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateMember = errors.New("member already exists")
	ErrSlugTaken       = errors.New("slug already taken")
	ErrOwnerRequired   = errors.New("organization requires at least one owner")
)

// ============================================
// Models / Entities
// ============================================

type Organization struct {
	ID        string
	Name      string
	Slug      string
	OwnerID   string
	Settings  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	ID             string
	OrganizationID string
	UserID         string
	Role           string
	Permissions    PermissionSet
	JoinedAt       time.Time
}

type Project struct {
	ID             string
	OrganizationID string
	Name           string
	Status         string
	Progress       int
	Budget         decimal.Decimal
	Settings       map[string]interface{}
	Tags           []string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Task struct {
	ID             string
	ProjectID      string
	OrganizationID string
	Title          string
	Description    *string
	Status         string
	Priority       string
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	AssigneeID     *string
	CreatedBy      string
	Position       int
	Tags           []string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TaskFilters struct {
	Status     []string
	Priority   []string
	AssigneeID *string
	Tags       []string
	Search     string
	Limit      int
	Offset     int
}

// ============================================
// Permission Set
// ============================================

// Permission names as they appear on the wire and in the permissions column.
const (
	PermInviteMembers  = "can_invite_members"
	PermRemoveMembers  = "can_remove_members"
	PermCreateProjects = "can_create_projects"
	PermEditProjects   = "can_edit_projects"
	PermDeleteProjects = "can_delete_projects"
	PermCreateTasks    = "can_create_tasks"
	PermEditTasks      = "can_edit_tasks"
	PermDeleteTasks    = "can_delete_tasks"
)

// PermissionSet is the closed set of per-member capability flags. Keeping it
// a struct rather than a keyed bag means an unknown permission name cannot
// silently grant or deny anything.
type PermissionSet struct {
	CanInviteMembers  bool `json:"can_invite_members"`
	CanRemoveMembers  bool `json:"can_remove_members"`
	CanCreateProjects bool `json:"can_create_projects"`
	CanEditProjects   bool `json:"can_edit_projects"`
	CanDeleteProjects bool `json:"can_delete_projects"`
	CanCreateTasks    bool `json:"can_create_tasks"`
	CanEditTasks      bool `json:"can_edit_tasks"`
	CanDeleteTasks    bool `json:"can_delete_tasks"`
}

// Has reports whether the named flag is set. Unknown names are never granted.
func (p PermissionSet) Has(name string) bool {
	switch name {
	case PermInviteMembers:
		return p.CanInviteMembers
	case PermRemoveMembers:
		return p.CanRemoveMembers
	case PermCreateProjects:
		return p.CanCreateProjects
	case PermEditProjects:
		return p.CanEditProjects
	case PermDeleteProjects:
		return p.CanDeleteProjects
	case PermCreateTasks:
		return p.CanCreateTasks
	case PermEditTasks:
		return p.CanEditTasks
	case PermDeleteTasks:
		return p.CanDeleteTasks
	default:
		return false
	}
}

// KnownPermission reports whether name is one of the closed capability names.
func KnownPermission(name string) bool {
	switch name {
	case PermInviteMembers, PermRemoveMembers,
		PermCreateProjects, PermEditProjects, PermDeleteProjects,
		PermCreateTasks, PermEditTasks, PermDeleteTasks:
		return true
	default:
		return false
	}
}

// Flatten returns the names of all flags currently true, in declaration order.
func (p PermissionSet) Flatten() []string {
	names := []string{}
	for _, n := range []string{
		PermInviteMembers, PermRemoveMembers,
		PermCreateProjects, PermEditProjects, PermDeleteProjects,
		PermCreateTasks, PermEditTasks, PermDeleteTasks,
	} {
		if p.Has(n) {
			names = append(names, n)
		}
	}
	return names
}

// PermissionsFromNames builds a set from flag names. An unknown name is an
// error rather than a silent no-op.
func PermissionsFromNames(names []string) (PermissionSet, error) {
	var p PermissionSet
	for _, n := range names {
		switch n {
		case PermInviteMembers:
			p.CanInviteMembers = true
		case PermRemoveMembers:
			p.CanRemoveMembers = true
		case PermCreateProjects:
			p.CanCreateProjects = true
		case PermEditProjects:
			p.CanEditProjects = true
		case PermDeleteProjects:
			p.CanDeleteProjects = true
		case PermCreateTasks:
			p.CanCreateTasks = true
		case PermEditTasks:
			p.CanEditTasks = true
		case PermDeleteTasks:
			p.CanDeleteTasks = true
		default:
			return PermissionSet{}, fmt.Errorf("unknown permission %q", n)
		}
	}
	return p, nil
}

// AllPermissions returns a set with every flag granted.
func AllPermissions() PermissionSet {
	return PermissionSet{
		CanInviteMembers:  true,
		CanRemoveMembers:  true,
		CanCreateProjects: true,
		CanEditProjects:   true,
		CanDeleteProjects: true,
		CanCreateTasks:    true,
		CanEditTasks:      true,
		CanDeleteTasks:    true,
	}
}

// ============================================
// Repository Interfaces
// ============================================

type OrganizationRepository interface {
	// Create persists the organization and its founding owner membership in
	// one transaction. Fails with ErrSlugTaken on slug collision.
	Create(ctx context.Context, org *Organization, owner *Member) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	FindByUserID(ctx context.Context, userID string) ([]*Organization, error)
	Update(ctx context.Context, org *Organization) error
	UpdateSettings(ctx context.Context, id string, settings map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type MemberRepository interface {
	Add(ctx context.Context, member *Member) error
	FindByOrgAndUser(ctx context.Context, orgID, userID string) (*Member, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*Member, error)
	CountOwners(ctx context.Context, orgID string) (int, error)
	UpdateRole(ctx context.Context, orgID, userID, role string) error
	// DemoteOwner changes an owner's role after verifying, under a lock on
	// the organization's member rows, that another owner remains. Fails with
	// ErrOwnerRequired otherwise.
	DemoteOwner(ctx context.Context, orgID, userID, newRole string) error
	UpdatePermissions(ctx context.Context, orgID, userID string, perms PermissionSet) error
	Remove(ctx context.Context, orgID, userID string) error
	// RemoveOwner removes an owner under the same locked owner-count check.
	RemoveOwner(ctx context.Context, orgID, userID string) error
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*Project, error)
	Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
	// RecomputeProgress refreshes every project's progress from its tasks'
	// completion ratio. Returns the number of projects updated.
	RecomputeProgress(ctx context.Context) (int, error)
}

type TaskRepository interface {
	// Create derives organization_id from the parent project and assigns
	// position = max+1, both inside one transaction holding the project row
	// lock. Fails with ErrNotFound when the project is absent.
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByProject(ctx context.Context, projectID string, filters *TaskFilters) ([]*Task, error)
	Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	UpdatePosition(ctx context.Context, id string, position int) error
	UpdateAssignee(ctx context.Context, id string, assigneeID *string) error
	Delete(ctx context.Context, id string) error
}

// ============================================
// Repositories Container
// ============================================

type Repositories struct {
	OrgRepo     OrganizationRepository
	MemberRepo  MemberRepository
	ProjectRepo ProjectRepository
	TaskRepo    TaskRepository
}

// NewRepositories creates in-memory repositories (for testing/fallback).
func NewRepositories() *Repositories {
	store := newMemoryStore()
	return &Repositories{
		OrgRepo:     &memOrganizationRepository{store: store},
		MemberRepo:  &memMemberRepository{store: store},
		ProjectRepo: &memProjectRepository{store: store},
		TaskRepo:    &memTaskRepository{store: store},
	}
}

// NewPgRepositories creates PostgreSQL-backed repositories.
func NewPgRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		OrgRepo:     &pgOrganizationRepository{pool: pool},
		MemberRepo:  &pgMemberRepository{pool: pool},
		ProjectRepo: &pgProjectRepository{pool: pool},
		TaskRepo:    &pgTaskRepository{pool: pool},
	}
}
