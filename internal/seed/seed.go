package seed

import (
	"context"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SeedData creates a demo organization with members across the role spectrum
// plus a project board. Development only; skips if data exists.
func SeedData(repos *repository.Repositories, logger *zap.Logger) {
	ctx := context.Background()

	existing, _ := repos.OrgRepo.FindBySlug(ctx, "acme-labs")
	if existing != nil {
		logger.Info("seed data already present, skipping")
		return
	}

	logger.Info("seeding demo data")

	// ============================================
	// ORGANIZATION + MEMBERS (one per role)
	// ============================================
	const (
		ownerID  = "11111111-1111-1111-1111-111111111111"
		adminID  = "22222222-2222-2222-2222-222222222222"
		memberID = "33333333-3333-3333-3333-333333333333"
		viewerID = "44444444-4444-4444-4444-444444444444"
	)

	org := &repository.Organization{
		Name:    "Acme Labs",
		Slug:    "acme-labs",
		OwnerID: ownerID,
		Settings: map[string]interface{}{
			"default_board": "kanban",
		},
	}
	founder := &repository.Member{
		UserID:      ownerID,
		Role:        "owner",
		Permissions: repository.AllPermissions(),
	}
	if err := repos.OrgRepo.Create(ctx, org, founder); err != nil {
		logger.Error("seed: organization create failed", zap.Error(err))
		return
	}

	admin := &repository.Member{
		OrganizationID: org.ID,
		UserID:         adminID,
		Role:           "admin",
		Permissions:    repository.AllPermissions(),
	}
	repos.MemberRepo.Add(ctx, admin)

	member := &repository.Member{
		OrganizationID: org.ID,
		UserID:         memberID,
		Role:           "member",
		Permissions: repository.PermissionSet{
			CanCreateProjects: true,
			CanCreateTasks:    true,
			CanEditTasks:      true,
		},
	}
	repos.MemberRepo.Add(ctx, member)

	viewer := &repository.Member{
		OrganizationID: org.ID,
		UserID:         viewerID,
		Role:           "viewer",
	}
	repos.MemberRepo.Add(ctx, viewer)

	// ============================================
	// PROJECT + TASK BOARD
	// ============================================
	project := &repository.Project{
		OrganizationID: org.ID,
		Name:           "Platform Revamp",
		Status:         "active",
		Budget:         decimal.NewFromInt(50000),
		Tags:           []string{"platform", "q3"},
		CreatedBy:      ownerID,
	}
	if err := repos.ProjectRepo.Create(ctx, project); err != nil {
		logger.Error("seed: project create failed", zap.Error(err))
		return
	}

	titles := []struct {
		title    string
		status   string
		priority string
		assignee string
	}{
		{"Design new schema", "done", "high", adminID},
		{"Migrate auth flow", "in_progress", "urgent", memberID},
		{"Update API docs", "todo", "medium", memberID},
		{"Load test search", "todo", "low", ""},
	}
	for _, t := range titles {
		task := &repository.Task{
			ProjectID: project.ID,
			Title:     t.title,
			Status:    t.status,
			Priority:  t.priority,
			CreatedBy: ownerID,
			Tags:      []string{"seed"},
		}
		if t.assignee != "" {
			assignee := t.assignee
			task.AssigneeID = &assignee
		}
		if err := repos.TaskRepo.Create(ctx, task); err != nil {
			logger.Error("seed: task create failed", zap.String("title", t.title), zap.Error(err))
		}
	}

	repos.ProjectRepo.RecomputeProgress(ctx)

	logger.Info("seed complete",
		zap.String("organization_id", org.ID),
		zap.String("project_id", project.ID))
}
