package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error)
	Get(ctx context.Context, tenantID snowflake.ID) (*TenantResponse, error)
	List(ctx context.Context) ([]TenantResponse, error)
	Update(ctx context.Context, tenantID snowflake.ID, req UpdateTenantRequest) (*TenantResponse, error)

	// Settings returns the tenant's award configuration. A tenant that has
	// never been configured yields a zero-value Settings, not an error.
	Settings(ctx context.Context, tenantID snowflake.ID) (Settings, error)
	UpdateSettings(ctx context.Context, tenantID snowflake.ID, req UpdateSettingsRequest) (Settings, error)

	// AddMember records a platform user's role, replacing any previous role.
	AddMember(ctx context.Context, tenantID snowflake.ID, userID, role string) error
}

type CreateTenantRequest struct {
	Name        string `json:"name"`
	OwnerUserID string `json:"owner_user_id"`
}

type UpdateTenantRequest struct {
	Name string `json:"name"`
}

type UpdateSettingsRequest struct {
	IntroductionChannelID     string   `json:"introduction_channel_id"`
	DefaultInviteChannelID    string   `json:"default_invite_channel_id"`
	NotificationChannelID     string   `json:"notification_channel_id"`
	NotificationsEnabled      bool     `json:"notifications_enabled"`
	BonusTimezone             string   `json:"bonus_timezone"`
	DailyBonusEnabled         *bool    `json:"daily_bonus_enabled"`
	InviteRewardMode          string   `json:"invite_reward_mode"`
	LeaderboardExcludedBadges []string `json:"leaderboard_excluded_badges"`
}

type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidTenant           = errors.New("invalid_tenant")
	ErrInvalidName             = errors.New("invalid_name")
	ErrInvalidUser             = errors.New("invalid_user")
	ErrInvalidRole             = errors.New("invalid_role")
	ErrInvalidTimezone         = errors.New("invalid_timezone")
	ErrInvalidInviteRewardMode = errors.New("invalid_invite_reward_mode")
	ErrNotFound                = errors.New("tenant_not_found")
)
