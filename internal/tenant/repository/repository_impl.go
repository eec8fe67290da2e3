package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/tenant/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTenant(ctx context.Context, tenant domain.Tenant) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tenants (id, name, slug, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.IsDefault,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	).Error
}

func (r *repository) GetTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, is_default, created_at, updated_at
		 FROM tenants
		 ORDER BY created_at ASC`,
	).Scan(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repository) UpdateTenantName(ctx context.Context, id snowflake.ID, name string, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tenants SET name = ?, updated_at = ? WHERE id = ?`,
		name,
		updatedAt,
		id,
	).Error
}

func (r *repository) GetSettings(ctx context.Context, tenantID snowflake.ID) (*domain.Settings, error) {
	var settings domain.Settings
	if err := r.db.WithContext(ctx).First(&settings, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) UpsertSettings(ctx context.Context, settings domain.Settings) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tenant_settings (
			tenant_id, introduction_channel_id, default_invite_channel_id,
			notification_channel_id, notifications_enabled, bonus_timezone,
			daily_bonus_enabled, invite_reward_mode, leaderboard_excluded_badges,
			created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE SET
			introduction_channel_id = EXCLUDED.introduction_channel_id,
			default_invite_channel_id = EXCLUDED.default_invite_channel_id,
			notification_channel_id = EXCLUDED.notification_channel_id,
			notifications_enabled = EXCLUDED.notifications_enabled,
			bonus_timezone = EXCLUDED.bonus_timezone,
			daily_bonus_enabled = EXCLUDED.daily_bonus_enabled,
			invite_reward_mode = EXCLUDED.invite_reward_mode,
			leaderboard_excluded_badges = EXCLUDED.leaderboard_excluded_badges,
			updated_at = EXCLUDED.updated_at`,
		settings.TenantID,
		settings.IntroductionChannelID,
		settings.DefaultInviteChannelID,
		settings.NotificationChannelID,
		settings.NotificationsEnabled,
		settings.BonusTimezone,
		settings.DailyBonusEnabled,
		settings.InviteRewardMode,
		settings.LeaderboardExcludedBadges,
		settings.CreatedAt,
		settings.UpdatedAt,
	).Error
}

func (r *repository) UpsertMember(ctx context.Context, member domain.Member) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tenant_members (id, tenant_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		member.ID,
		member.TenantID,
		member.UserID,
		member.Role,
		member.CreatedAt,
	).Error
}
