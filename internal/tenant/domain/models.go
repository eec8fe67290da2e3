// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// Membership roles, lowest to highest privilege.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
	RoleOwner     = "owner"
)

// Invite reward handling modes.
const (
	InviteRewardAutomatic = "automatic"
	InviteRewardApproval  = "approval"
)

// Tenant represents one chat community served by the engine.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	IsDefault bool         `gorm:"column:is_default" json:"is_default"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Settings holds per-tenant award configuration. A missing row or a
// zero-value field means "not configured" and is never an error.
type Settings struct {
	TenantID                  snowflake.ID   `gorm:"primaryKey;column:tenant_id" json:"tenant_id"`
	IntroductionChannelID     string         `gorm:"column:introduction_channel_id;type:text;not null;default:''" json:"introduction_channel_id"`
	DefaultInviteChannelID    string         `gorm:"column:default_invite_channel_id;type:text;not null;default:''" json:"default_invite_channel_id"`
	NotificationChannelID     string         `gorm:"column:notification_channel_id;type:text;not null;default:''" json:"notification_channel_id"`
	NotificationsEnabled      bool           `gorm:"column:notifications_enabled;not null;default:false" json:"notifications_enabled"`
	BonusTimezone             string         `gorm:"column:bonus_timezone;type:text;not null;default:''" json:"bonus_timezone"`
	DailyBonusEnabled         *bool          `gorm:"column:daily_bonus_enabled" json:"daily_bonus_enabled"`
	InviteRewardMode          string         `gorm:"column:invite_reward_mode;type:text;not null;default:''" json:"invite_reward_mode"`
	LeaderboardExcludedBadges pq.StringArray `gorm:"column:leaderboard_excluded_badges;type:text[]" json:"leaderboard_excluded_badges"`
	CreatedAt                 time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                 time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Settings) TableName() string { return "tenant_settings" }

// Member records a platform user's role inside a tenant.
type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index;uniqueIndex:ux_tenant_members_user,priority:1" json:"tenant_id"`
	UserID    string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_tenant_members_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "tenant_members" }
