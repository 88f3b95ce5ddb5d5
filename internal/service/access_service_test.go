package service

import (
	"context"
	"testing"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTenantContext(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()

	t.Run("missing organization id", func(t *testing.T) {
		_, err := env.services.Access.BuildTenantContext(ctx, "", "owner-1")
		assert.ErrorIs(t, err, ErrMissingOrganization)
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		_, err := env.services.Access.BuildTenantContext(ctx, org.ID, "stranger")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("member gets flattened permissions", func(t *testing.T) {
		tc, err := env.services.Access.BuildTenantContext(ctx, org.ID, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, org.ID, tc.OrganizationID)
		assert.Equal(t, RoleOwner, tc.Role)
		assert.Len(t, tc.Permissions, 8)
	})

	t.Run("resolution is idempotent for unchanged state", func(t *testing.T) {
		first, err := env.services.Access.BuildTenantContext(ctx, org.ID, "owner-1")
		require.NoError(t, err)
		second, err := env.services.Access.BuildTenantContext(ctx, org.ID, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, first.Role, second.Role)
		assert.Equal(t, first.Permissions, second.Permissions)

		// A caller scribbling on its context must not leak into later
		// resolutions.
		first.Role = RoleViewer
		first.Permissions = nil
		third, err := env.services.Access.BuildTenantContext(ctx, org.ID, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, RoleOwner, third.Role)
		assert.Len(t, third.Permissions, 8)
	})
}

func TestRequirePermissionReResolves(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()

	tc := env.tenant(t, org.ID, "member-1")
	require.NoError(t, env.services.Access.RequirePermission(ctx, tc, repository.PermCreateTasks))

	// Revoke the flag behind the context's back; the stale context must not
	// keep granting.
	require.NoError(t, env.repos.MemberRepo.UpdatePermissions(ctx, org.ID, "member-1", repository.PermissionSet{}))
	assert.ErrorIs(t, env.services.Access.RequirePermission(ctx, tc, repository.PermCreateTasks), ErrForbidden)

	// Removal revokes everything immediately.
	require.NoError(t, env.repos.MemberRepo.Remove(ctx, org.ID, "member-1"))
	assert.ErrorIs(t, env.services.Access.RequirePermission(ctx, tc, repository.PermCreateTasks), ErrForbidden)
}

func TestHasCapabilityRoleShortCircuit(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		member *repository.Member
		perm   string
		want   bool
	}{
		{"owner passes without flags", &repository.Member{Role: RoleOwner}, repository.PermDeleteProjects, true},
		{"admin passes without flags", &repository.Member{Role: RoleAdmin}, repository.PermDeleteProjects, true},
		{"member needs the flag", &repository.Member{Role: RoleMember}, repository.PermDeleteProjects, false},
		{"member with flag", &repository.Member{Role: RoleMember, Permissions: repository.PermissionSet{CanDeleteProjects: true}}, repository.PermDeleteProjects, true},
		{"viewer never implied", &repository.Member{Role: RoleViewer}, repository.PermCreateTasks, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.services.Access.HasCapability(tt.member, tt.perm))
		})
	}
}

func TestRequireRoleAndOwner(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)

	ownerTC := env.tenant(t, org.ID, "owner-1")
	adminTC := env.tenant(t, org.ID, "admin-1")

	assert.NoError(t, env.services.Access.RequireRole(adminTC, RoleOwner, RoleAdmin))
	assert.ErrorIs(t, env.services.Access.RequireRole(adminTC, RoleOwner), ErrForbidden)
	assert.NoError(t, env.services.Access.RequireOwner(ownerTC))
	assert.ErrorIs(t, env.services.Access.RequireOwner(adminTC), ErrForbidden)
}

func TestRequireCoMember(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	tc := env.tenant(t, org.ID, "owner-1")

	assert.NoError(t, env.services.Access.RequireCoMember(ctx, tc, "member-1"))
	assert.NoError(t, env.services.Access.RequireCoMember(ctx, tc, ""))
	assert.ErrorIs(t, env.services.Access.RequireCoMember(ctx, tc, "stranger"), ErrTargetNotMember)
}

func TestResolveProjectAccessHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	orgA := env.newOrg(t, "alice", "Org A")
	env.newOrg(t, "bob", "Org B")
	tcA := env.tenant(t, orgA.ID, "alice")
	project := env.newProject(t, tcA, "Secret Project")

	t.Run("member resolves", func(t *testing.T) {
		access, err := env.services.Access.ResolveProjectAccess(ctx, project.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, orgA.ID, access.OrganizationID)
		assert.Equal(t, RoleOwner, access.Member.Role)
	})

	t.Run("outsider gets the same not found as a bad id", func(t *testing.T) {
		_, realID := env.services.Access.ResolveProjectAccess(ctx, project.ID, "bob")
		_, fakeID := env.services.Access.ResolveProjectAccess(ctx, "no-such-project", "bob")
		assert.ErrorIs(t, realID, ErrNotFound)
		assert.ErrorIs(t, fakeID, ErrNotFound)
		assert.Equal(t, realID, fakeID)
	})
}

func TestResolveTaskAccessHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	orgA := env.newOrg(t, "alice", "Org A")
	env.newOrg(t, "bob", "Org B")
	tcA := env.tenant(t, orgA.ID, "alice")
	project := env.newProject(t, tcA, "Board")
	task, err := env.services.Task.Create(ctx, "alice", project.ID, CreateTaskInput{Title: "First"})
	require.NoError(t, err)

	access, err := env.services.Access.ResolveTaskAccess(ctx, task.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, orgA.ID, access.OrganizationID)

	_, errOutsider := env.services.Access.ResolveTaskAccess(ctx, task.ID, "bob")
	_, errMissing := env.services.Access.ResolveTaskAccess(ctx, "no-such-task", "bob")
	assert.ErrorIs(t, errOutsider, ErrNotFound)
	assert.ErrorIs(t, errMissing, ErrNotFound)
}
