package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reason codes carried by rejected grants. They are machine-readable
// outcomes for the caller, not errors.
const (
	ReasonSelfAward           = "self-award"
	ReasonBotRecipient        = "bot-recipient"
	ReasonUnsupportedSource   = "unsupported-source"
	ReasonDailyLimit          = "daily-limit"
	ReasonRecipientLimit      = "recipient-limit"
	ReasonAlreadyReceived     = "already-received"
	ReasonAlreadyRewarded     = "already-rewarded"
	ReasonReplyLimit          = "reply-limit"
	ReasonNotFound            = "not-found"
	ReasonDisabled            = "disabled"
	ReasonOutsideIntroduction = "outside-introduction-channel"
	ReasonThreadOwner         = "thread-owner"
	ReasonPendingApproval     = "pending-approval"
)

// Invite reward lifecycle states.
const (
	InviteStatusRewarded = "rewarded"
	InviteStatusPending  = "pending"
)

// Grant is the outcome of one award attempt. Granted false plus a
// ReasonCode is an expected result; the usage counters are filled where
// the rejecting policy knows them.
type Grant struct {
	Granted    bool   `json:"granted"`
	Amount     int64  `json:"amount"`
	ReasonCode string `json:"reason_code,omitempty"`

	DailyUsed      int `json:"daily_used,omitempty"`
	DailyLimit     int `json:"daily_limit,omitempty"`
	RecipientUsed  int `json:"recipient_used,omitempty"`
	RecipientLimit int `json:"recipient_limit,omitempty"`
	RepliesUsed    int `json:"replies_used,omitempty"`
	RepliesLimit   int `json:"replies_limit,omitempty"`
}

// Revocation is the outcome of a reaction-removal request.
type Revocation struct {
	Removed    bool   `json:"removed"`
	ReasonCode string `json:"reason_code,omitempty"`
}

// DailyBonusClaim marks one daily bonus grant. BonusDate is the
// calendar date in the tenant's configured timezone, stored as
// YYYY-MM-DD text so the uniqueness key is timezone-stable.
type DailyBonusClaim struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_daily_bonus_claims_date,priority:1" json:"tenant_id"`
	UserID    string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_daily_bonus_claims_date,priority:2" json:"user_id"`
	BonusDate string       `gorm:"column:bonus_date;type:text;not null;uniqueIndex:ux_daily_bonus_claims_date,priority:3" json:"bonus_date"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (DailyBonusClaim) TableName() string { return "daily_bonus_claims" }

// IntroductionReply marks one rewarded reply per introduction post.
// RepliedAt feeds the rolling-window count.
type IntroductionReply struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_introduction_replies_post,priority:1" json:"tenant_id"`
	UserID    string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_introduction_replies_post,priority:2" json:"user_id"`
	PostID    string       `gorm:"column:post_id;type:text;not null;uniqueIndex:ux_introduction_replies_post,priority:3" json:"post_id"`
	RepliedAt time.Time    `gorm:"column:replied_at;not null;index:ix_introduction_replies_replied_at" json:"replied_at"`
}

// TableName sets the database table name.
func (IntroductionReply) TableName() string { return "introduction_replies" }

// InviteReward records that an invite creator was, or is pending being,
// rewarded for one joined user. The uniqueness key makes the reward
// lifetime-scoped across re-joins.
type InviteReward struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID        snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_invite_rewards_join,priority:1" json:"tenant_id"`
	CreatorID       string       `gorm:"column:creator_id;type:text;not null;uniqueIndex:ux_invite_rewards_join,priority:2" json:"creator_id"`
	JoinedUserID    string       `gorm:"column:joined_user_id;type:text;not null;uniqueIndex:ux_invite_rewards_join,priority:3" json:"joined_user_id"`
	Status          string       `gorm:"column:status;type:text;not null" json:"status"`
	FirstRewardedAt *time.Time   `gorm:"column:first_rewarded_at" json:"first_rewarded_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (InviteReward) TableName() string { return "invite_rewards" }
