package cron

import (
	"context"
	"testing"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerStart(t *testing.T) {
	repos := repository.NewRepositories()

	t.Run("valid schedule", func(t *testing.T) {
		s := NewScheduler(repos.ProjectRepo, "@every 10m", zap.NewNop())
		require.NoError(t, s.Start())
		s.Stop()
	})

	t.Run("malformed schedule is reported, not swallowed", func(t *testing.T) {
		s := NewScheduler(repos.ProjectRepo, "every ten minutes", zap.NewNop())
		err := s.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "every ten minutes")
	})
}

func TestRecomputeJobUpdatesProgress(t *testing.T) {
	repos := repository.NewRepositories()
	ctx := context.Background()

	org := &repository.Organization{Name: "Acme", Slug: "acme", OwnerID: "owner-1"}
	owner := &repository.Member{UserID: "owner-1", Role: "owner", Permissions: repository.AllPermissions()}
	require.NoError(t, repos.OrgRepo.Create(ctx, org, owner))
	project := &repository.Project{OrganizationID: org.ID, Name: "Board", Status: "active", CreatedBy: "owner-1"}
	require.NoError(t, repos.ProjectRepo.Create(ctx, project))
	for _, status := range []string{"done", "todo"} {
		require.NoError(t, repos.TaskRepo.Create(ctx, &repository.Task{
			ProjectID: project.ID,
			Title:     status,
			Status:    status,
			Priority:  "low",
			CreatedBy: "owner-1",
		}))
	}

	s := NewScheduler(repos.ProjectRepo, "@every 10m", zap.NewNop())
	s.recomputeProjectProgress()

	p, err := repos.ProjectRepo.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Progress)
}
