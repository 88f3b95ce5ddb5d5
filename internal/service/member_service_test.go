package service

import (
	"context"
	"testing"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/directory"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/email"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddMember(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "viewer-1", RoleViewer)
	ctx := context.Background()
	ownerTC := env.tenant(t, org.ID, "owner-1")

	t.Run("defaults permissions by role", func(t *testing.T) {
		m, err := env.services.Member.Add(ctx, ownerTC, "new-member", RoleMember, nil)
		require.NoError(t, err)
		assert.Equal(t, RoleMember, m.Role)
		assert.True(t, m.Permissions.CanCreateTasks)
		assert.False(t, m.Permissions.CanInviteMembers)
	})

	t.Run("explicit permissions override defaults", func(t *testing.T) {
		perms := repository.PermissionSet{CanInviteMembers: true}
		m, err := env.services.Member.Add(ctx, ownerTC, "custom-member", RoleMember, &perms)
		require.NoError(t, err)
		assert.True(t, m.Permissions.CanInviteMembers)
		assert.False(t, m.Permissions.CanCreateTasks)
	})

	t.Run("duplicate membership", func(t *testing.T) {
		_, err := env.services.Member.Add(ctx, ownerTC, "new-member", RoleMember, nil)
		assert.ErrorIs(t, err, ErrDuplicateMember)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := env.services.Member.Add(ctx, ownerTC, "another", "superuser", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("viewer cannot invite", func(t *testing.T) {
		viewerTC := env.tenant(t, org.ID, "viewer-1")
		_, err := env.services.Member.Add(ctx, viewerTC, "another", RoleMember, nil)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestAddMemberRoleEscalation(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)
	ctx := context.Background()
	adminTC := env.tenant(t, org.ID, "admin-1")

	// An admin may grant up to admin, never owner.
	_, err := env.services.Member.Add(ctx, adminTC, "new-owner", RoleOwner, nil)
	assert.ErrorIs(t, err, ErrRoleEscalation)

	_, err = env.services.Member.Add(ctx, adminTC, "peer-admin", RoleAdmin, nil)
	assert.NoError(t, err)
}

func TestInviteByEmail(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()
	ownerTC := env.tenant(t, org.ID, "owner-1")

	// The stub directory resolves addresses of the form user-<prefix>@example.com.
	m, err := env.services.Member.InviteByEmail(ctx, ownerTC, "user-cafebabe@example.com", RoleMember)
	require.NoError(t, err)
	assert.Equal(t, RoleMember, m.Role)
	assert.NotEmpty(t, m.UserID)

	_, err = env.services.Member.InviteByEmail(ctx, ownerTC, "nobody@nowhere.test", RoleMember)
	assert.ErrorIs(t, err, ErrNotFound)
}

// recordingMailer captures invitations instead of delivering them.
type recordingMailer struct {
	sent []email.Invitation
}

func (m *recordingMailer) SendInvitation(ctx context.Context, inv email.Invitation) error {
	m.sent = append(m.sent, inv)
	return nil
}

func TestInviteByEmailSendsPopulatedInvitation(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	ctx := context.Background()
	ownerTC := env.tenant(t, org.ID, "owner-1")

	mailer := &recordingMailer{}
	svc := NewMemberService(
		env.repos.MemberRepo,
		env.repos.OrgRepo,
		env.services.Access,
		directory.NewStubDirectory(),
		mailer,
		"https://app.example.com",
		zap.NewNop(),
	)

	_, err := svc.InviteByEmail(ctx, ownerTC, "user-cafebabe@example.com", RoleMember)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	inv := mailer.sent[0]
	assert.Equal(t, "user-cafebabe@example.com", inv.ToEmail)
	assert.Equal(t, RoleMember, inv.Role)
	assert.Equal(t, "Acme", inv.OrganizationName)
	assert.Equal(t, "User owner-1", inv.InviterName)
	assert.Equal(t, "https://app.example.com/orgs/"+org.ID, inv.Link)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("demoting the only owner is blocked even for an authorized admin", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "admin-1", RoleAdmin)
		adminTC := env.tenant(t, org.ID, "admin-1")

		err := env.services.Member.UpdateRole(ctx, adminTC, "owner-1", RoleMember)
		assert.ErrorIs(t, err, ErrLastOwner)

		// The membership must be untouched.
		owner, _ := env.repos.MemberRepo.FindByOrgAndUser(ctx, org.ID, "owner-1")
		assert.Equal(t, RoleOwner, owner.Role)
	})

	t.Run("demoting one of two owners succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "owner-2", RoleOwner)
		ownerTC := env.tenant(t, org.ID, "owner-1")

		require.NoError(t, env.services.Member.UpdateRole(ctx, ownerTC, "owner-2", RoleAdmin))
		demoted, _ := env.repos.MemberRepo.FindByOrgAndUser(ctx, org.ID, "owner-2")
		assert.Equal(t, RoleAdmin, demoted.Role)

		// Now owner-1 is the last owner again.
		tc2 := env.tenant(t, org.ID, "owner-2")
		assert.ErrorIs(t, env.services.Member.UpdateRole(ctx, tc2, "owner-1", RoleMember), ErrLastOwner)
	})

	t.Run("self role change is blocked before anything else", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		ownerTC := env.tenant(t, org.ID, "owner-1")

		err := env.services.Member.UpdateRole(ctx, ownerTC, "owner-1", RoleMember)
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("admin cannot promote to owner", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "admin-1", RoleAdmin)
		env.addMember(t, org.ID, "member-1", RoleMember)
		adminTC := env.tenant(t, org.ID, "admin-1")

		err := env.services.Member.UpdateRole(ctx, adminTC, "member-1", RoleOwner)
		assert.ErrorIs(t, err, ErrRoleEscalation)
	})

	t.Run("target outside the organization", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		ownerTC := env.tenant(t, org.ID, "owner-1")

		err := env.services.Member.UpdateRole(ctx, ownerTC, "stranger", RoleMember)
		assert.ErrorIs(t, err, ErrTargetNotMember)
	})

	t.Run("viewer lacks the permission", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "viewer-1", RoleViewer)
		env.addMember(t, org.ID, "member-1", RoleMember)
		viewerTC := env.tenant(t, org.ID, "viewer-1")

		err := env.services.Member.UpdateRole(ctx, viewerTC, "member-1", RoleViewer)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestUpdatePermissions(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	adminTC := env.tenant(t, org.ID, "admin-1")

	t.Run("grant and revoke flags", func(t *testing.T) {
		perms := repository.PermissionSet{CanDeleteTasks: true}
		require.NoError(t, env.services.Member.UpdatePermissions(ctx, adminTC, "member-1", perms))
		m, _ := env.repos.MemberRepo.FindByOrgAndUser(ctx, org.ID, "member-1")
		assert.True(t, m.Permissions.CanDeleteTasks)
		assert.False(t, m.Permissions.CanCreateTasks)
	})

	t.Run("own flags are off limits", func(t *testing.T) {
		err := env.services.Member.UpdatePermissions(ctx, adminTC, "admin-1", repository.AllPermissions())
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("cannot edit a higher ranked member", func(t *testing.T) {
		err := env.services.Member.UpdatePermissions(ctx, adminTC, "owner-1", repository.PermissionSet{})
		assert.ErrorIs(t, err, ErrRoleEscalation)
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("removing the only owner is blocked", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "admin-1", RoleAdmin)
		adminTC := env.tenant(t, org.ID, "admin-1")

		// Admin outranks nobody here: target is an owner.
		assert.ErrorIs(t, env.services.Member.Remove(ctx, adminTC, "owner-1"), ErrRoleEscalation)

		// Even another owner cannot drop the count to zero.
		env.addMember(t, org.ID, "owner-2", RoleOwner)
		tc2 := env.tenant(t, org.ID, "owner-2")
		require.NoError(t, env.services.Member.Remove(ctx, tc2, "owner-1"))
		assert.ErrorIs(t, env.services.Member.Remove(ctx, tc2, "owner-2"), ErrSelfModification)
	})

	t.Run("removing one of two owners succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "owner-2", RoleOwner)
		tc := env.tenant(t, org.ID, "owner-1")

		require.NoError(t, env.services.Member.Remove(ctx, tc, "owner-2"))
		gone, _ := env.repos.MemberRepo.FindByOrgAndUser(ctx, org.ID, "owner-2")
		assert.Nil(t, gone)
	})

	t.Run("self removal is blocked", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		tc := env.tenant(t, org.ID, "owner-1")
		assert.ErrorIs(t, env.services.Member.Remove(ctx, tc, "owner-1"), ErrSelfModification)
	})

	t.Run("ordinary member removal", func(t *testing.T) {
		env := newTestEnv(t)
		org := env.newOrg(t, "owner-1", "Acme")
		env.addMember(t, org.ID, "member-1", RoleMember)
		tc := env.tenant(t, org.ID, "owner-1")

		require.NoError(t, env.services.Member.Remove(ctx, tc, "member-1"))
		assert.ErrorIs(t, env.services.Member.Remove(ctx, tc, "member-1"), ErrTargetNotMember)
	})
}

func TestLastOwnerViaRoleUpdateKeepsOrgOperable(t *testing.T) {
	// One org, one owner, an admin, a member. The admin can reshape the rest
	// of the roster but the owner seat survives every attempt.
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()
	adminTC := env.tenant(t, org.ID, "admin-1")

	require.NoError(t, env.services.Member.UpdateRole(ctx, adminTC, "member-1", RoleViewer))
	assert.ErrorIs(t, env.services.Member.UpdateRole(ctx, adminTC, "owner-1", RoleAdmin), ErrLastOwner)

	count, err := env.repos.MemberRepo.CountOwners(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
