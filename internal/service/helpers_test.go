package service

import (
	"context"
	"testing"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/config"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/directory"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/email"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	repos    *repository.Repositories
	services *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := repository.NewRepositories()
	services := NewServices(&ServiceDeps{
		Config: &config.Config{
			JWTSecret:      "test-secret",
			SearchPageSize: 50,
		},
		Repos:     repos,
		Directory: directory.NewStubDirectory(),
		Mailer:    email.NewLogMailer(zap.NewNop()),
		Logger:    zap.NewNop(),
	})
	return &testEnv{repos: repos, services: services}
}

// newOrg creates an organization whose founding owner is ownerID.
func (e *testEnv) newOrg(t *testing.T, ownerID, name string) *repository.Organization {
	t.Helper()
	org, err := e.services.Org.Create(context.Background(), ownerID, name, "", nil)
	require.NoError(t, err)
	return org
}

// addMember inserts a membership directly, bypassing service authorization.
func (e *testEnv) addMember(t *testing.T, orgID, userID, role string) *repository.Member {
	t.Helper()
	m := &repository.Member{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		Permissions:    DefaultPermissions(role),
	}
	require.NoError(t, e.repos.MemberRepo.Add(context.Background(), m))
	return m
}

// tenant builds a tenant context for an existing member.
func (e *testEnv) tenant(t *testing.T, orgID, userID string) *TenantContext {
	t.Helper()
	tc, err := e.services.Access.BuildTenantContext(context.Background(), orgID, userID)
	require.NoError(t, err)
	return tc
}

// newProject creates a project owned by the given tenant caller.
func (e *testEnv) newProject(t *testing.T, tc *TenantContext, name string) *repository.Project {
	t.Helper()
	p, err := e.services.Project.Create(context.Background(), tc, CreateProjectInput{Name: name})
	require.NoError(t, err)
	return p
}
