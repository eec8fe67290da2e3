package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cache cache.AwardResolverCache
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	cache cache.AwardResolverCache
}

func NewService(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateTenantRequest) (*domain.TenantResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	ownerID := strings.TrimSpace(req.OwnerUserID)

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTenant(ctx, tenant); err != nil {
			return err
		}
		if ownerID == "" {
			return nil
		}
		member := domain.Member{
			ID:        s.genID.Generate(),
			TenantID:  tenant.ID,
			UserID:    ownerID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}
		return repo.UpsertMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
	)

	return toTenantResponse(tenant), nil
}

func (s *service) Get(ctx context.Context, tenantID snowflake.ID) (*domain.TenantResponse, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toTenantResponse(*tenant), nil
}

func (s *service) List(ctx context.Context) ([]domain.TenantResponse, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.TenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		resp = append(resp, *toTenantResponse(tenant))
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, tenantID snowflake.ID, req domain.UpdateTenantRequest) (*domain.TenantResponse, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateTenantName(ctx, tenantID, name, now); err != nil {
		return nil, err
	}

	tenant.Name = name
	tenant.UpdatedAt = now
	return toTenantResponse(*tenant), nil
}

func (s *service) Settings(ctx context.Context, tenantID snowflake.ID) (domain.Settings, error) {
	if tenantID == 0 {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	settings, err := s.repo.GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Never configured. All fields stay at their zero values.
			return domain.Settings{TenantID: tenantID}, nil
		}
		return domain.Settings{}, err
	}
	return *settings, nil
}

func (s *service) UpdateSettings(ctx context.Context, tenantID snowflake.ID, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	if tenantID == 0 {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	timezone := strings.TrimSpace(req.BonusTimezone)
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return domain.Settings{}, domain.ErrInvalidTimezone
		}
	}

	mode := strings.TrimSpace(req.InviteRewardMode)
	switch mode {
	case "", domain.InviteRewardAutomatic, domain.InviteRewardApproval:
	default:
		return domain.Settings{}, domain.ErrInvalidInviteRewardMode
	}

	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Settings{}, domain.ErrNotFound
		}
		return domain.Settings{}, err
	}

	now := time.Now().UTC()
	settings := domain.Settings{
		TenantID:                  tenantID,
		IntroductionChannelID:     strings.TrimSpace(req.IntroductionChannelID),
		DefaultInviteChannelID:    strings.TrimSpace(req.DefaultInviteChannelID),
		NotificationChannelID:     strings.TrimSpace(req.NotificationChannelID),
		NotificationsEnabled:      req.NotificationsEnabled,
		BonusTimezone:             timezone,
		DailyBonusEnabled:         req.DailyBonusEnabled,
		InviteRewardMode:          mode,
		LeaderboardExcludedBadges: normalizeBadgeRefs(req.LeaderboardExcludedBadges),
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return domain.Settings{}, err
	}

	s.cache.InvalidateSettings(tenantID)

	s.log.Info("tenant settings updated", zap.String("tenant_id", tenantID.String()))
	return settings, nil
}

func (s *service) AddMember(ctx context.Context, tenantID snowflake.ID, userID, role string) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}
	switch role {
	case domain.RoleMember, domain.RoleModerator, domain.RoleAdmin, domain.RoleOwner:
	default:
		return domain.ErrInvalidRole
	}

	member := domain.Member{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.UpsertMember(ctx, member)
}

func toTenantResponse(tenant domain.Tenant) *domain.TenantResponse {
	return &domain.TenantResponse{
		ID:        tenant.ID.String(),
		Name:      tenant.Name,
		Slug:      tenant.Slug,
		IsDefault: tenant.IsDefault,
		CreatedAt: tenant.CreatedAt,
	}
}

func normalizeBadgeRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		trimmed := strings.TrimSpace(ref)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
