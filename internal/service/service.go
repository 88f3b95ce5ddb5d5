package service

import (
	"errors"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/config"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/directory"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/email"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"go.uber.org/zap"
)

// Failure kinds surfaced to the boundary layer. Handlers map these to status
// codes and stable error codes; services never touch the transport.
var (
	ErrMissingOrganization = errors.New("organization id not specified")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("resource not found")
	ErrTargetNotMember     = errors.New("target user is not a member of this organization")
	ErrRoleEscalation      = errors.New("cannot assign a role higher than your own")
	ErrLastOwner           = errors.New("cannot remove or demote the last owner")
	ErrSelfModification    = errors.New("cannot modify your own membership")
	ErrDuplicateMember     = errors.New("user is already a member")
	ErrSlugConflict        = errors.New("organization slug already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidToken        = errors.New("invalid token")
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth    AuthService
	Access  AccessService
	Org     OrganizationService
	Member  MemberService
	Project ProjectService
	Task    TaskService
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config    *config.Config
	Repos     *repository.Repositories
	Directory directory.Directory
	Mailer    email.Mailer
	Logger    *zap.Logger
}

func NewServices(deps *ServiceDeps) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	access := NewAccessService(deps.Repos.MemberRepo, deps.Repos.ProjectRepo, deps.Repos.TaskRepo)

	return &Services{
		Auth:   NewAuthService(deps.Config.JWTSecret),
		Access: access,
		Org:    NewOrganizationService(deps.Repos.OrgRepo, deps.Repos.MemberRepo, access, logger),
		Member: NewMemberService(deps.Repos.MemberRepo, deps.Repos.OrgRepo, access, deps.Directory, deps.Mailer, deps.Config.FrontendURL, logger),
		Project: NewProjectService(deps.Repos.ProjectRepo, access, logger,
			deps.Config.SearchPageSize),
		Task: NewTaskService(deps.Repos.TaskRepo, deps.Repos.ProjectRepo, access, logger,
			deps.Config.SearchPageSize),
	}
}
