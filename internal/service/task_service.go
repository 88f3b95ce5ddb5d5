package service

import (
	"context"
	"strings"
	"time"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"go.uber.org/zap"
)

var taskStatuses = map[string]bool{
	"todo":        true,
	"in_progress": true,
	"review":      true,
	"done":        true,
	"cancelled":   true,
}

var taskPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
	"urgent": true,
}

type CreateTaskInput struct {
	Title          string
	Description    *string
	Status         string
	Priority       string
	DueDate        *time.Time
	EstimatedHours *float64
	AssigneeID     *string
	Tags           []string
	Metadata       map[string]interface{}
}

// UpdateTaskInput carries optional fields; nil means "leave unchanged".
// Project and organization are deliberately absent: a task can never move
// across the project/organization pair it was created under.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	Tags           []string
	Metadata       map[string]interface{}
}

type TaskService interface {
	Create(ctx context.Context, userID, projectID string, input CreateTaskInput) (*repository.Task, error)
	Get(ctx context.Context, userID, taskID string) (*repository.Task, error)
	ListByProject(ctx context.Context, userID, projectID string, filters *repository.TaskFilters) ([]*repository.Task, error)
	// SearchOrganization matches title/description substrings and tag
	// containment inside one fixed-size page; organization_id is denormalized
	// onto tasks exactly so this does not need the project join.
	SearchOrganization(ctx context.Context, tc *TenantContext, query string, tags []string, limit, offset int) ([]*repository.Task, error)
	Update(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*repository.Task, error)
	Move(ctx context.Context, userID, taskID string, position int) (*repository.Task, error)
	Assign(ctx context.Context, userID, taskID string, assigneeID *string) (*repository.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type taskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	access      AccessService
	logger      *zap.Logger
	pageSize    int
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	access AccessService,
	logger *zap.Logger,
	pageSize int,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		access:      access,
		logger:      logger,
		pageSize:    pageSize,
	}
}

// Create walks project -> organization -> membership for the permission
// check, then hands off to the repository, which assigns the position and
// re-derives organization_id inside the same transaction as the insert.
func (s *taskService) Create(ctx context.Context, userID, projectID string, input CreateTaskInput) (*repository.Task, error) {
	access, err := s.access.ResolveProjectAccess(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasCapability(access.Member, repository.PermCreateTasks) {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	status := input.Status
	if status == "" {
		status = "todo"
	}
	priority := input.Priority
	if priority == "" {
		priority = "medium"
	}
	if !taskStatuses[status] || !taskPriorities[priority] {
		return nil, ErrInvalidInput
	}
	if input.EstimatedHours != nil && *input.EstimatedHours < 0 {
		return nil, ErrInvalidInput
	}
	if input.AssigneeID != nil && *input.AssigneeID != "" {
		if err := s.requireCoMember(ctx, access.OrganizationID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &repository.Task{
		ProjectID:      projectID,
		Title:          title,
		Description:    input.Description,
		Status:         status,
		Priority:       priority,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		AssigneeID:     input.AssigneeID,
		CreatedBy:      userID,
		Tags:           input.Tags,
		Metadata:       input.Metadata,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to create task",
			zap.String("operation", "task.create"),
			zap.String("organization_id", access.OrganizationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, userID, taskID string) (*repository.Task, error) {
	if _, err := s.access.ResolveTaskAccess(ctx, taskID, userID); err != nil {
		return nil, err
	}
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *taskService) ListByProject(ctx context.Context, userID, projectID string, filters *repository.TaskFilters) ([]*repository.Task, error) {
	if _, err := s.access.ResolveProjectAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	if filters != nil && (filters.Limit <= 0 || filters.Limit > s.pageSize) {
		filters.Limit = s.pageSize
	}
	return s.taskRepo.FindByProject(ctx, projectID, filters)
}

func (s *taskService) SearchOrganization(ctx context.Context, tc *TenantContext, query string, tags []string, limit, offset int) ([]*repository.Task, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	return s.taskRepo.Search(ctx, tc.OrganizationID, query, tags, limit, offset)
}

func (s *taskService) Update(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*repository.Task, error) {
	access, err := s.access.ResolveTaskAccess(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasCapability(access.Member, repository.PermEditTasks) {
		return nil, ErrForbidden
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Status != nil {
		if !taskStatuses[*input.Status] {
			return nil, ErrInvalidInput
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !taskPriorities[*input.Priority] {
			return nil, ErrInvalidInput
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedHours != nil {
		if *input.EstimatedHours < 0 {
			return nil, ErrInvalidInput
		}
		task.EstimatedHours = input.EstimatedHours
	}
	if input.ActualHours != nil {
		if *input.ActualHours < 0 {
			return nil, ErrInvalidInput
		}
		task.ActualHours = input.ActualHours
	}
	if input.Tags != nil {
		task.Tags = input.Tags
	}
	if input.Metadata != nil {
		task.Metadata = input.Metadata
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		s.logger.Error("failed to update task",
			zap.String("operation", "task.update"),
			zap.String("organization_id", access.OrganizationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return task, nil
}

func (s *taskService) Move(ctx context.Context, userID, taskID string, position int) (*repository.Task, error) {
	access, err := s.access.ResolveTaskAccess(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasCapability(access.Member, repository.PermEditTasks) {
		return nil, ErrForbidden
	}
	if position < 0 {
		return nil, ErrInvalidInput
	}
	if err := s.taskRepo.UpdatePosition(ctx, taskID, position); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, taskID)
}

func (s *taskService) Assign(ctx context.Context, userID, taskID string, assigneeID *string) (*repository.Task, error) {
	access, err := s.access.ResolveTaskAccess(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasCapability(access.Member, repository.PermEditTasks) {
		return nil, ErrForbidden
	}
	if assigneeID != nil && *assigneeID != "" {
		if err := s.requireCoMember(ctx, access.OrganizationID, *assigneeID); err != nil {
			return nil, err
		}
	}
	if err := s.taskRepo.UpdateAssignee(ctx, taskID, assigneeID); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, taskID)
}

func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	access, err := s.access.ResolveTaskAccess(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if !s.access.HasCapability(access.Member, repository.PermDeleteTasks) {
		return ErrForbidden
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		s.logger.Error("failed to delete task",
			zap.String("operation", "task.delete"),
			zap.String("organization_id", access.OrganizationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *taskService) requireCoMember(ctx context.Context, orgID, targetUserID string) error {
	tc := &TenantContext{OrganizationID: orgID}
	return s.access.RequireCoMember(ctx, tc, targetUserID)
}
