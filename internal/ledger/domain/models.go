package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source tags written by the bonus awarders. Reaction-style awards use the
// tenant-configured reaction tags from the rewards config instead.
const (
	SourceDailyBonus          = "daily_bonus"
	SourceIntroductionPost    = "introduction_post"
	SourceIntroductionStarter = "introduction_starter"
	SourceIntroductionReply   = "introduction_reply"
	SourceInviteReward        = "invite_reward"
	SourceManual              = "manual"
)

// IntroductionSourceTags lists the tags counted toward the lifetime
// introduction bonus cap.
var IntroductionSourceTags = []string{SourceIntroductionPost, SourceIntroductionStarter}

// ReputationEvent is an immutable ledger row. Duplicate appends with the
// same (tenant_id, event_id, from_user_id, source_tag) are no-ops.
type ReputationEvent struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_reputation_events_dedupe,priority:1;index:ix_reputation_events_recipient,priority:1" json:"tenant_id"`
	EventID    string       `gorm:"column:event_id;type:text;not null;uniqueIndex:ux_reputation_events_dedupe,priority:2" json:"event_id"`
	FromUserID string       `gorm:"column:from_user_id;type:text;not null;uniqueIndex:ux_reputation_events_dedupe,priority:3" json:"from_user_id"`
	ToUserID   string       `gorm:"column:to_user_id;type:text;not null;index:ix_reputation_events_recipient,priority:2" json:"to_user_id"`
	SourceTag  string       `gorm:"column:source_tag;type:text;not null;uniqueIndex:ux_reputation_events_dedupe,priority:4" json:"source_tag"`
	Amount     int64        `gorm:"not null" json:"amount"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ReputationEvent) TableName() string { return "reputation_events" }

// EventKey identifies a ledger row by its uniqueness key.
type EventKey struct {
	TenantID   snowflake.ID
	EventID    string
	FromUserID string
	SourceTag  string
}

// UserTotal is a summed ledger balance for one recipient.
type UserTotal struct {
	UserID string `gorm:"column:to_user_id" json:"user_id"`
	Total  int64  `gorm:"column:total" json:"total"`
}

type HistoryDirection string

const (
	HistoryDirectionTo   HistoryDirection = "to"
	HistoryDirectionFrom HistoryDirection = "from"
	HistoryDirectionBoth HistoryDirection = "both"
)

type HistoryFilter struct {
	TenantID  snowflake.ID
	UserID    string
	Direction HistoryDirection
	Limit     int
}
