package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type OrganizationService interface {
	// Create persists the organization together with its founding owner
	// membership (role=owner, every permission granted) in one transaction.
	Create(ctx context.Context, userID, name, slug string, settings map[string]interface{}) (*repository.Organization, error)
	Get(ctx context.Context, tc *TenantContext) (*repository.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error)
	Update(ctx context.Context, tc *TenantContext, name, slug string) (*repository.Organization, error)
	UpdateSettings(ctx context.Context, tc *TenantContext, settings map[string]interface{}) (*repository.Organization, error)
	Delete(ctx context.Context, tc *TenantContext) error
}

type organizationService struct {
	orgRepo    repository.OrganizationRepository
	memberRepo repository.MemberRepository
	access     AccessService
	logger     *zap.Logger
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	memberRepo repository.MemberRepository,
	access AccessService,
	logger *zap.Logger,
) OrganizationService {
	return &organizationService{
		orgRepo:    orgRepo,
		memberRepo: memberRepo,
		access:     access,
		logger:     logger,
	}
}

func (s *organizationService) Create(ctx context.Context, userID, name, slug string, settings map[string]interface{}) (*repository.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidInput
	}

	org := &repository.Organization{
		Name:     name,
		Slug:     slug,
		OwnerID:  userID,
		Settings: settings,
	}
	owner := &repository.Member{
		UserID:      userID,
		Role:        RoleOwner,
		Permissions: repository.AllPermissions(),
	}

	if err := s.orgRepo.Create(ctx, org, owner); err != nil {
		if err == repository.ErrSlugTaken {
			return nil, ErrSlugConflict
		}
		s.logger.Error("failed to create organization",
			zap.String("operation", "organization.create"),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, tc *TenantContext) (*repository.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, tc.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	return org, nil
}

func (s *organizationService) ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error) {
	return s.orgRepo.FindByUserID(ctx, userID)
}

func (s *organizationService) Update(ctx context.Context, tc *TenantContext, name, slug string) (*repository.Organization, error) {
	if err := s.access.RequireRole(tc, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	org, err := s.Get(ctx, tc)
	if err != nil {
		return nil, err
	}

	if name != "" {
		org.Name = strings.TrimSpace(name)
	}
	if slug != "" {
		if !slugPattern.MatchString(slug) {
			return nil, ErrInvalidInput
		}
		org.Slug = slug
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		if err == repository.ErrSlugTaken {
			return nil, ErrSlugConflict
		}
		s.logger.Error("failed to update organization",
			zap.String("operation", "organization.update"),
			zap.String("organization_id", tc.OrganizationID),
			zap.String("user_id", tc.UserID),
			zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) UpdateSettings(ctx context.Context, tc *TenantContext, settings map[string]interface{}) (*repository.Organization, error) {
	if err := s.access.RequireRole(tc, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.orgRepo.UpdateSettings(ctx, tc.OrganizationID, settings); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, tc)
}

func (s *organizationService) Delete(ctx context.Context, tc *TenantContext) error {
	if err := s.access.RequireOwner(tc); err != nil {
		return err
	}
	if err := s.orgRepo.Delete(ctx, tc.OrganizationID); err != nil {
		s.logger.Error("failed to delete organization",
			zap.String("operation", "organization.delete"),
			zap.String("organization_id", tc.OrganizationID),
			zap.String("user_id", tc.UserID),
			zap.Error(err))
		return err
	}
	return nil
}

// Slugify lowercases name and collapses runs of non-alphanumerics to single
// hyphens, yielding a valid organization slug.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
