package service

import (
	"context"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/directory"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/email"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"go.uber.org/zap"
)

// MemberWithProfile pairs a membership row with directory display metadata.
// Profile is nil when the directory lookup fails; enrichment never gates
// anything.
type MemberWithProfile struct {
	Member  *repository.Member
	Profile *directory.Profile
}

type MemberService interface {
	Add(ctx context.Context, tc *TenantContext, targetUserID, role string, perms *repository.PermissionSet) (*repository.Member, error)
	InviteByEmail(ctx context.Context, tc *TenantContext, targetEmail, role string) (*repository.Member, error)
	List(ctx context.Context, tc *TenantContext) ([]*MemberWithProfile, error)
	Get(ctx context.Context, tc *TenantContext, targetUserID string) (*MemberWithProfile, error)
	UpdateRole(ctx context.Context, tc *TenantContext, targetUserID, newRole string) error
	UpdatePermissions(ctx context.Context, tc *TenantContext, targetUserID string, perms repository.PermissionSet) error
	Remove(ctx context.Context, tc *TenantContext, targetUserID string) error
}

type memberService struct {
	memberRepo  repository.MemberRepository
	orgRepo     repository.OrganizationRepository
	access      AccessService
	directory   directory.Directory
	mailer      email.Mailer
	frontendURL string
	logger      *zap.Logger
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	orgRepo repository.OrganizationRepository,
	access AccessService,
	dir directory.Directory,
	mailer email.Mailer,
	frontendURL string,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		memberRepo:  memberRepo,
		orgRepo:     orgRepo,
		access:      access,
		directory:   dir,
		mailer:      mailer,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Add enforces the invite rule: the caller needs can_invite_members (owner
// and admin short-circuit), the target must not already be a member, and the
// assigned role may never rank above the caller's own.
func (s *memberService) Add(ctx context.Context, tc *TenantContext, targetUserID, role string, perms *repository.PermissionSet) (*repository.Member, error) {
	if err := s.access.RequirePermission(ctx, tc, repository.PermInviteMembers); err != nil {
		return nil, err
	}
	if targetUserID == "" || !ValidRole(role) {
		return nil, ErrInvalidInput
	}
	if CompareRoles(role, tc.Role) > 0 {
		return nil, ErrRoleEscalation
	}

	permissions := DefaultPermissions(role)
	if perms != nil {
		permissions = *perms
	}

	member := &repository.Member{
		OrganizationID: tc.OrganizationID,
		UserID:         targetUserID,
		Role:           role,
		Permissions:    permissions,
	}
	if err := s.memberRepo.Add(ctx, member); err != nil {
		if err == repository.ErrDuplicateMember {
			return nil, ErrDuplicateMember
		}
		s.logger.Error("failed to add member",
			zap.String("operation", "member.add"),
			zap.String("organization_id", tc.OrganizationID),
			zap.String("user_id", tc.UserID),
			zap.Error(err))
		return nil, err
	}
	return member, nil
}

func (s *memberService) InviteByEmail(ctx context.Context, tc *TenantContext, targetEmail, role string) (*repository.Member, error) {
	profile, err := s.directory.LookupByEmail(ctx, targetEmail)
	if err != nil {
		if err == directory.ErrUnknownUser {
			return nil, ErrNotFound
		}
		return nil, err
	}

	member, err := s.Add(ctx, tc, profile.UserID, role, nil)
	if err != nil {
		return nil, err
	}

	inv := email.Invitation{
		ToEmail: profile.Email,
		Role:    role,
		Link:    s.frontendURL + "/orgs/" + tc.OrganizationID,
	}
	if org, orgErr := s.orgRepo.FindByID(ctx, tc.OrganizationID); orgErr == nil {
		inv.OrganizationName = org.Name
	}
	if inviter, dirErr := s.directory.Lookup(ctx, tc.UserID); dirErr == nil {
		inv.InviterName = inviter.Name
	}

	// Delivery is stubbed; a send failure never unwinds the membership.
	if mailErr := s.mailer.SendInvitation(ctx, inv); mailErr != nil {
		s.logger.Warn("invitation email failed",
			zap.String("organization_id", tc.OrganizationID),
			zap.Error(mailErr))
	}
	return member, nil
}

func (s *memberService) List(ctx context.Context, tc *TenantContext) ([]*MemberWithProfile, error) {
	members, err := s.memberRepo.FindByOrganization(ctx, tc.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]*MemberWithProfile, len(members))
	for i, m := range members {
		out[i] = &MemberWithProfile{Member: m}
		if profile, err := s.directory.Lookup(ctx, m.UserID); err == nil {
			out[i].Profile = profile
		}
	}
	return out, nil
}

func (s *memberService) Get(ctx context.Context, tc *TenantContext, targetUserID string) (*MemberWithProfile, error) {
	member, err := s.memberRepo.FindByOrgAndUser(ctx, tc.OrganizationID, targetUserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrTargetNotMember
	}
	result := &MemberWithProfile{Member: member}
	if profile, err := s.directory.Lookup(ctx, targetUserID); err == nil {
		result.Profile = profile
	}
	return result, nil
}

// UpdateRole gates on can_remove_members: updates deliberately reuse the
// removal permission rather than a separate flag.
func (s *memberService) UpdateRole(ctx context.Context, tc *TenantContext, targetUserID, newRole string) error {
	if err := s.access.RequirePermission(ctx, tc, repository.PermRemoveMembers); err != nil {
		return err
	}
	if targetUserID == tc.UserID {
		return ErrSelfModification
	}
	if !ValidRole(newRole) {
		return ErrInvalidInput
	}
	if CompareRoles(newRole, tc.Role) > 0 {
		return ErrRoleEscalation
	}

	target, err := s.memberRepo.FindByOrgAndUser(ctx, tc.OrganizationID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrTargetNotMember
	}

	if target.Role == RoleOwner && newRole != RoleOwner {
		// Demotion of an owner runs under the locked owner-count check.
		err = s.memberRepo.DemoteOwner(ctx, tc.OrganizationID, targetUserID, newRole)
		if err == repository.ErrOwnerRequired {
			return ErrLastOwner
		}
		return err
	}
	return s.memberRepo.UpdateRole(ctx, tc.OrganizationID, targetUserID, newRole)
}

func (s *memberService) UpdatePermissions(ctx context.Context, tc *TenantContext, targetUserID string, perms repository.PermissionSet) error {
	if err := s.access.RequirePermission(ctx, tc, repository.PermRemoveMembers); err != nil {
		return err
	}
	if targetUserID == tc.UserID {
		return ErrSelfModification
	}
	target, err := s.memberRepo.FindByOrgAndUser(ctx, tc.OrganizationID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrTargetNotMember
	}
	if CompareRoles(target.Role, tc.Role) > 0 {
		return ErrRoleEscalation
	}
	return s.memberRepo.UpdatePermissions(ctx, tc.OrganizationID, targetUserID, perms)
}

func (s *memberService) Remove(ctx context.Context, tc *TenantContext, targetUserID string) error {
	if err := s.access.RequirePermission(ctx, tc, repository.PermRemoveMembers); err != nil {
		return err
	}
	if targetUserID == tc.UserID {
		return ErrSelfModification
	}

	target, err := s.memberRepo.FindByOrgAndUser(ctx, tc.OrganizationID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrTargetNotMember
	}
	if CompareRoles(target.Role, tc.Role) > 0 {
		return ErrRoleEscalation
	}

	if target.Role == RoleOwner {
		err = s.memberRepo.RemoveOwner(ctx, tc.OrganizationID, targetUserID)
		if err == repository.ErrOwnerRequired {
			return ErrLastOwner
		}
		return err
	}
	return s.memberRepo.Remove(ctx, tc.OrganizationID, targetUserID)
}
