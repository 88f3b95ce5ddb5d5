package service

import (
	"context"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
)

// TenantContext is the request-scoped result of tenancy resolution: who the
// caller is inside which organization. It is built once, before any guard
// runs, and is read-only for the rest of the request.
type TenantContext struct {
	OrganizationID string
	UserID         string
	Role           string
	Permissions    []string
	Member         *repository.Member
}

// Access is the outcome of walking an entity up to its organization and the
// caller's membership there.
type Access struct {
	OrganizationID string
	Member         *repository.Member
}

// AccessService is the single place authorization state is resolved. Guards
// are pure predicates over a TenantContext plus fresh lookups; they return
// typed errors and never write a transport response.
type AccessService interface {
	// ResolveMember is the gate for "is this user in this organization".
	// Absent membership is ErrForbidden, not a distinct not-found.
	ResolveMember(ctx context.Context, orgID, userID string) (*repository.Member, error)

	// BuildTenantContext resolves membership and flattens the permission
	// flags. Empty orgID is ErrMissingOrganization.
	BuildTenantContext(ctx context.Context, orgID, userID string) (*TenantContext, error)

	RequireRole(tc *TenantContext, allowed ...string) error
	RequireOwner(tc *TenantContext) error
	// RequirePermission re-resolves membership at call time rather than
	// trusting the context; a role or flag revoked by a concurrent request
	// must be visible here.
	RequirePermission(ctx context.Context, tc *TenantContext, permission string) error
	// RequireCoMember passes trivially on an empty target.
	RequireCoMember(ctx context.Context, tc *TenantContext, targetUserID string) error

	// ResolveProjectAccess / ResolveTaskAccess walk entity -> project ->
	// organization -> member. A missing entity and a caller outside the
	// owning organization both come back as ErrNotFound so probing ids
	// reveals nothing.
	ResolveProjectAccess(ctx context.Context, projectID, userID string) (*Access, error)
	ResolveTaskAccess(ctx context.Context, taskID, userID string) (*Access, error)

	// HasCapability applies the role short-circuit (owner/admin pass all
	// checks) before consulting the member's flag.
	HasCapability(member *repository.Member, permission string) bool
}

type accessService struct {
	memberRepo  repository.MemberRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
}

func NewAccessService(
	memberRepo repository.MemberRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
) AccessService {
	return &accessService{
		memberRepo:  memberRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
	}
}

func (s *accessService) ResolveMember(ctx context.Context, orgID, userID string) (*repository.Member, error) {
	member, err := s.memberRepo.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrForbidden
	}
	return member, nil
}

func (s *accessService) BuildTenantContext(ctx context.Context, orgID, userID string) (*TenantContext, error) {
	if orgID == "" {
		return nil, ErrMissingOrganization
	}
	member, err := s.ResolveMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	return &TenantContext{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           member.Role,
		Permissions:    member.Permissions.Flatten(),
		Member:         member,
	}, nil
}

func (s *accessService) RequireRole(tc *TenantContext, allowed ...string) error {
	for _, role := range allowed {
		if tc.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

func (s *accessService) RequireOwner(tc *TenantContext) error {
	return s.RequireRole(tc, RoleOwner)
}

func (s *accessService) RequirePermission(ctx context.Context, tc *TenantContext, permission string) error {
	member, err := s.ResolveMember(ctx, tc.OrganizationID, tc.UserID)
	if err != nil {
		return err
	}
	if !s.HasCapability(member, permission) {
		return ErrForbidden
	}
	return nil
}

func (s *accessService) RequireCoMember(ctx context.Context, tc *TenantContext, targetUserID string) error {
	if targetUserID == "" {
		return nil
	}
	target, err := s.memberRepo.FindByOrgAndUser(ctx, tc.OrganizationID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrTargetNotMember
	}
	return nil
}

func (s *accessService) ResolveProjectAccess(ctx context.Context, projectID, userID string) (*Access, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	member, err := s.memberRepo.FindByOrgAndUser(ctx, project.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotFound
	}
	return &Access{OrganizationID: project.OrganizationID, Member: member}, nil
}

func (s *accessService) ResolveTaskAccess(ctx context.Context, taskID, userID string) (*Access, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	member, err := s.memberRepo.FindByOrgAndUser(ctx, task.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotFound
	}
	return &Access{OrganizationID: task.OrganizationID, Member: member}, nil
}

func (s *accessService) HasCapability(member *repository.Member, permission string) bool {
	if roleBypassesPermissions(member.Role) {
		return true
	}
	return member.Permissions.Has(permission)
}
