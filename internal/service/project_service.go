package service

import (
	"context"
	"strings"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var projectStatuses = map[string]bool{
	"planning":  true,
	"active":    true,
	"on_hold":   true,
	"completed": true,
	"archived":  true,
}

type CreateProjectInput struct {
	Name     string
	Status   string
	Budget   decimal.Decimal
	Settings map[string]interface{}
	Tags     []string
}

// UpdateProjectInput carries optional fields; nil means "leave unchanged".
type UpdateProjectInput struct {
	Name     *string
	Status   *string
	Progress *int
	Budget   *decimal.Decimal
	Settings map[string]interface{}
	Tags     []string
}

type ProjectService interface {
	Create(ctx context.Context, tc *TenantContext, input CreateProjectInput) (*repository.Project, error)
	// Get resolves access by walking project -> organization -> membership;
	// absence and denial are indistinguishable.
	Get(ctx context.Context, userID, projectID string) (*repository.Project, error)
	ListByOrganization(ctx context.Context, tc *TenantContext) ([]*repository.Project, error)
	Search(ctx context.Context, tc *TenantContext, query string, tags []string, limit, offset int) ([]*repository.Project, error)
	Update(ctx context.Context, userID, projectID string, input UpdateProjectInput) (*repository.Project, error)
	Delete(ctx context.Context, userID, projectID string) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
	access      AccessService
	logger      *zap.Logger
	pageSize    int
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	access AccessService,
	logger *zap.Logger,
	pageSize int,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		access:      access,
		logger:      logger,
		pageSize:    pageSize,
	}
}

func (s *projectService) Create(ctx context.Context, tc *TenantContext, input CreateProjectInput) (*repository.Project, error) {
	if err := s.access.RequirePermission(ctx, tc, repository.PermCreateProjects); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	status := input.Status
	if status == "" {
		status = "planning"
	}
	if !projectStatuses[status] {
		return nil, ErrInvalidInput
	}
	if input.Budget.IsNegative() {
		return nil, ErrInvalidInput
	}

	project := &repository.Project{
		OrganizationID: tc.OrganizationID,
		Name:           name,
		Status:         status,
		Budget:         input.Budget,
		Settings:       input.Settings,
		Tags:           input.Tags,
		CreatedBy:      tc.UserID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			zap.String("operation", "project.create"),
			zap.String("organization_id", tc.OrganizationID),
			zap.String("user_id", tc.UserID),
			zap.Error(err))
		return nil, err
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID string) (*repository.Project, error) {
	if _, err := s.access.ResolveProjectAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

func (s *projectService) ListByOrganization(ctx context.Context, tc *TenantContext) ([]*repository.Project, error) {
	return s.projectRepo.FindByOrganization(ctx, tc.OrganizationID)
}

func (s *projectService) Search(ctx context.Context, tc *TenantContext, query string, tags []string, limit, offset int) ([]*repository.Project, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	return s.projectRepo.Search(ctx, tc.OrganizationID, query, tags, limit, offset)
}

// Update evaluates can_edit_projects against the membership resolved through
// the project itself, not a tenant context: project routes do not carry an
// organization id.
func (s *projectService) Update(ctx context.Context, userID, projectID string, input UpdateProjectInput) (*repository.Project, error) {
	access, err := s.access.ResolveProjectAccess(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasCapability(access.Member, repository.PermEditProjects) {
		return nil, ErrForbidden
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		project.Name = name
	}
	if input.Status != nil {
		if !projectStatuses[*input.Status] {
			return nil, ErrInvalidInput
		}
		project.Status = *input.Status
	}
	if input.Progress != nil {
		if *input.Progress < 0 || *input.Progress > 100 {
			return nil, ErrInvalidInput
		}
		project.Progress = *input.Progress
	}
	if input.Budget != nil {
		if input.Budget.IsNegative() {
			return nil, ErrInvalidInput
		}
		project.Budget = *input.Budget
	}
	if input.Settings != nil {
		project.Settings = input.Settings
	}
	if input.Tags != nil {
		project.Tags = input.Tags
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		s.logger.Error("failed to update project",
			zap.String("operation", "project.update"),
			zap.String("organization_id", access.OrganizationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, userID, projectID string) error {
	access, err := s.access.ResolveProjectAccess(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !s.access.HasCapability(access.Member, repository.PermDeleteProjects) {
		return ErrForbidden
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		s.logger.Error("failed to delete project",
			zap.String("operation", "project.delete"),
			zap.String("organization_id", access.OrganizationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}
	return nil
}
