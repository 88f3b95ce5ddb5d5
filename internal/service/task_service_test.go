package service

import (
	"context"
	"sync"
	"testing"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	project := env.newProject(t, tc, "Board")

	t.Run("derives organization and defaults", func(t *testing.T) {
		task, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "First"})
		require.NoError(t, err)
		assert.Equal(t, org.ID, task.OrganizationID)
		assert.Equal(t, project.ID, task.ProjectID)
		assert.Equal(t, "todo", task.Status)
		assert.Equal(t, "medium", task.Priority)
		assert.Equal(t, 0, task.Position)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: " "})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "X", Status: "bogus"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "X", Priority: "asap"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		neg := -1.5
		_, err = env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "X", EstimatedHours: &neg})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("assignee must be a co-member", func(t *testing.T) {
		outsider := "stranger"
		_, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{
			Title:      "Assigned",
			AssigneeID: &outsider,
		})
		assert.ErrorIs(t, err, ErrTargetNotMember)

		insider := "member-1"
		task, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{
			Title:      "Assigned",
			AssigneeID: &insider,
		})
		require.NoError(t, err)
		assert.Equal(t, "member-1", *task.AssigneeID)
	})

	t.Run("member stripped of every flag cannot create", func(t *testing.T) {
		require.NoError(t, env.repos.MemberRepo.UpdatePermissions(ctx, org.ID, "member-1", repository.PermissionSet{}))
		_, err := env.services.Task.Create(ctx, "member-1", project.ID, CreateTaskInput{Title: "Denied"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("outsider cannot tell the project exists", func(t *testing.T) {
		_, err := env.services.Task.Create(ctx, "stranger", project.ID, CreateTaskInput{Title: "Probe"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTaskPositionsArePerProjectAndDense(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	board := env.newProject(t, tc, "Board")
	other := env.newProject(t, tc, "Other")

	for i := 0; i < 3; i++ {
		task, err := env.services.Task.Create(ctx, "owner-1", board.ID, CreateTaskInput{Title: "T"})
		require.NoError(t, err)
		assert.Equal(t, i, task.Position)
	}

	// The second project starts its own sequence.
	task, err := env.services.Task.Create(ctx, "owner-1", other.ID, CreateTaskInput{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, 0, task.Position)
}

func TestConcurrentTaskCreationAssignsUniquePositions(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	project := env.newProject(t, tc, "Board")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "Concurrent"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tasks, err := env.services.Task.ListByProject(ctx, "owner-1", project.ID, nil)
	require.NoError(t, err)
	require.Len(t, tasks, n)

	seen := make(map[int]bool, n)
	for _, task := range tasks {
		assert.False(t, seen[task.Position], "duplicate position %d", task.Position)
		assert.GreaterOrEqual(t, task.Position, 0)
		assert.Less(t, task.Position, n)
		seen[task.Position] = true
	}
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "viewer-1", RoleViewer)
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	project := env.newProject(t, tc, "Board")
	task, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "Original"})
	require.NoError(t, err)

	t.Run("patch semantics", func(t *testing.T) {
		status := "in_progress"
		updated, err := env.services.Task.Update(ctx, "owner-1", task.ID, UpdateTaskInput{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "in_progress", updated.Status)
		assert.Equal(t, "Original", updated.Title)
	})

	t.Run("project binding never changes", func(t *testing.T) {
		status := "done"
		updated, err := env.services.Task.Update(ctx, "owner-1", task.ID, UpdateTaskInput{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, project.ID, updated.ProjectID)
		assert.Equal(t, org.ID, updated.OrganizationID)
	})

	t.Run("viewer cannot edit", func(t *testing.T) {
		title := "Hijacked"
		_, err := env.services.Task.Update(ctx, "viewer-1", task.ID, UpdateTaskInput{Title: &title})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestMoveAndAssignTask(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	project := env.newProject(t, tc, "Board")
	task, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "Movable"})
	require.NoError(t, err)

	t.Run("move", func(t *testing.T) {
		moved, err := env.services.Task.Move(ctx, "owner-1", task.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, moved.Position)

		_, err = env.services.Task.Move(ctx, "owner-1", task.ID, -1)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("assign and clear", func(t *testing.T) {
		assignee := "member-1"
		assigned, err := env.services.Task.Assign(ctx, "owner-1", task.ID, &assignee)
		require.NoError(t, err)
		assert.Equal(t, "member-1", *assigned.AssigneeID)

		cleared, err := env.services.Task.Assign(ctx, "owner-1", task.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, cleared.AssigneeID)
	})

	t.Run("assign to outsider", func(t *testing.T) {
		outsider := "stranger"
		_, err := env.services.Task.Assign(ctx, "owner-1", task.ID, &outsider)
		assert.ErrorIs(t, err, ErrTargetNotMember)
	})
}

func TestSearchTasksAcrossOrganization(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	a := env.newProject(t, tc, "Alpha")
	b := env.newProject(t, tc, "Beta")

	desc := "investigate the search latency regression"
	_, err := env.services.Task.Create(ctx, "owner-1", a.ID, CreateTaskInput{Title: "Profile queries", Description: &desc, Tags: []string{"perf"}})
	require.NoError(t, err)
	_, err = env.services.Task.Create(ctx, "owner-1", b.ID, CreateTaskInput{Title: "Search UI polish", Tags: []string{"frontend"}})
	require.NoError(t, err)

	t.Run("matches title and description across projects", func(t *testing.T) {
		found, err := env.services.Task.SearchOrganization(ctx, tc, "search", nil, 10, 0)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("tag filter narrows", func(t *testing.T) {
		found, err := env.services.Task.SearchOrganization(ctx, tc, "", []string{"perf"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Profile queries", found[0].Title)
	})

	t.Run("other organization is isolated", func(t *testing.T) {
		orgB := env.newOrg(t, "bob", "Other")
		tcB := env.tenant(t, orgB.ID, "bob")
		found, err := env.services.Task.SearchOrganization(ctx, tcB, "search", nil, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")
	project := env.newProject(t, tc, "Board")
	task, err := env.services.Task.Create(ctx, "owner-1", project.ID, CreateTaskInput{Title: "Doomed"})
	require.NoError(t, err)

	// Default member permissions stop at editing; deletion needs its own flag.
	assert.ErrorIs(t, env.services.Task.Delete(ctx, "member-1", task.ID), ErrForbidden)

	require.NoError(t, env.services.Task.Delete(ctx, "owner-1", task.ID))
	_, err = env.services.Task.Get(ctx, "owner-1", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
