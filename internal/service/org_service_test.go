package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Labs", "acme-labs"},
		{"  Acme   Labs  ", "acme-labs"},
		{"ACME!!!Labs", "acme-labs"},
		{"acme", "acme"},
		{"Team #42", "team-42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestCreateOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("founder becomes owner with every permission", func(t *testing.T) {
		org, err := env.services.Org.Create(ctx, "alice", "Acme Labs", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "acme-labs", org.Slug)
		assert.Equal(t, "alice", org.OwnerID)

		m, err := env.repos.MemberRepo.FindByOrgAndUser(ctx, org.ID, "alice")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, RoleOwner, m.Role)
		assert.Len(t, m.Permissions.Flatten(), 8)
	})

	t.Run("slug conflict", func(t *testing.T) {
		_, err := env.services.Org.Create(ctx, "bob", "Acme? Labs!", "", nil)
		assert.ErrorIs(t, err, ErrSlugConflict)
	})

	t.Run("invalid explicit slug", func(t *testing.T) {
		_, err := env.services.Org.Create(ctx, "bob", "Whatever", "Not A Slug", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := env.services.Org.Create(ctx, "bob", "   ", "", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestUpdateOrganization(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)
	env.addMember(t, org.ID, "member-1", RoleMember)
	ctx := context.Background()

	t.Run("admin may rename", func(t *testing.T) {
		adminTC := env.tenant(t, org.ID, "admin-1")
		updated, err := env.services.Org.Update(ctx, adminTC, "Acme Corp", "")
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", updated.Name)
		assert.Equal(t, "acme", updated.Slug)
	})

	t.Run("slug change and conflict", func(t *testing.T) {
		other := env.newOrg(t, "owner-2", "Globex")
		adminTC := env.tenant(t, org.ID, "admin-1")

		updated, err := env.services.Org.Update(ctx, adminTC, "", "acme-hq")
		require.NoError(t, err)
		assert.Equal(t, "acme-hq", updated.Slug)

		_, err = env.services.Org.Update(ctx, adminTC, "", other.Slug)
		assert.ErrorIs(t, err, ErrSlugConflict)

		_, err = env.services.Org.Update(ctx, adminTC, "", "Not A Slug!")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("member may not", func(t *testing.T) {
		memberTC := env.tenant(t, org.ID, "member-1")
		_, err := env.services.Org.Update(ctx, memberTC, "Hostile Takeover", "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("settings replacement is admin gated too", func(t *testing.T) {
		memberTC := env.tenant(t, org.ID, "member-1")
		_, err := env.services.Org.UpdateSettings(ctx, memberTC, map[string]interface{}{"theme": "dark"})
		assert.ErrorIs(t, err, ErrForbidden)

		adminTC := env.tenant(t, org.ID, "admin-1")
		updated, err := env.services.Org.UpdateSettings(ctx, adminTC, map[string]interface{}{"theme": "dark"})
		require.NoError(t, err)
		assert.Equal(t, "dark", updated.Settings["theme"])
	})
}

func TestDeleteOrganization(t *testing.T) {
	env := newTestEnv(t)
	org := env.newOrg(t, "owner-1", "Acme")
	env.addMember(t, org.ID, "admin-1", RoleAdmin)
	ctx := context.Background()

	t.Run("admin is not enough", func(t *testing.T) {
		adminTC := env.tenant(t, org.ID, "admin-1")
		assert.ErrorIs(t, env.services.Org.Delete(ctx, adminTC), ErrForbidden)
	})

	t.Run("owner deletes, memberships go with it", func(t *testing.T) {
		ownerTC := env.tenant(t, org.ID, "owner-1")
		require.NoError(t, env.services.Org.Delete(ctx, ownerTC))

		_, err := env.services.Access.BuildTenantContext(ctx, org.ID, "admin-1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestListOrganizationsForUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.newOrg(t, "alice", "Alpha")
	env.newOrg(t, "bob", "Beta")
	env.addMember(t, a.ID, "carol", RoleViewer)
	ctx := context.Background()

	mine, err := env.services.Org.ListForUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Alpha", mine[0].Name)

	none, err := env.services.Org.ListForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
