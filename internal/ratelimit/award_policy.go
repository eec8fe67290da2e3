// Package ratelimit holds the windowed award quota policy, keyed cooldown
// records, and the redis-backed ingest limiter and lock.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/config"
	"gorm.io/gorm"
)

// Decision reasons.
const (
	ReasonDailyLimit     = "daily"
	ReasonRecipientLimit = "recipient"
)

// AwardMark is one counted reaction award inside the rolling window. Marks
// carry no amount; they exist only to be counted and purged.
type AwardMark struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"column:tenant_id;not null;index:ix_award_marks_giver,priority:1" json:"tenant_id"`
	FromUserID string       `gorm:"column:from_user_id;type:text;not null;index:ix_award_marks_giver,priority:2" json:"from_user_id"`
	ToUserID   string       `gorm:"column:to_user_id;type:text;not null" json:"to_user_id"`
	AwardedAt  time.Time    `gorm:"column:awarded_at;not null;index" json:"awarded_at"`
}

// TableName sets the database table name.
func (AwardMark) TableName() string { return "award_marks" }

// Decision is the outcome of a quota check. A denied decision is a defined
// result, not an error.
type Decision struct {
	Allowed        bool
	Reason         string
	DailyUsed      int
	DailyLimit     int
	RecipientUsed  int
	RecipientLimit int
}

// AwardPolicy enforces the giver-side award quotas: a daily cap across all
// recipients, then a per-recipient cap, both counted over the trailing
// window. Counts always filter by timestamp, so purge cadence never affects
// correctness.
type AwardPolicy struct {
	db      *gorm.DB
	genID   *snowflake.Node
	rewards *config.RewardsConfigHolder
	clock   clock.Clock
}

func NewAwardPolicy(db *gorm.DB, genID *snowflake.Node, rewards *config.RewardsConfigHolder, clk clock.Clock) *AwardPolicy {
	return &AwardPolicy{
		db:      db,
		genID:   genID,
		rewards: rewards,
		clock:   clk,
	}
}

// Check evaluates the daily cap first, then the per-recipient cap.
func (p *AwardPolicy) Check(ctx context.Context, tenantID snowflake.ID, fromUserID, toUserID string) (Decision, error) {
	if tenantID == 0 {
		return Decision{}, errors.New("tenant id is required")
	}
	fromUserID = strings.TrimSpace(fromUserID)
	toUserID = strings.TrimSpace(toUserID)
	if fromUserID == "" || toUserID == "" {
		return Decision{}, errors.New("giver and recipient ids are required")
	}

	cfg := p.rewards.Get().RateLimit
	windowStart := p.clock.Now().UTC().Add(-time.Duration(cfg.WindowHours) * time.Hour)

	var dailyUsed int64
	err := p.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM award_marks
		 WHERE tenant_id = ? AND from_user_id = ? AND awarded_at > ?`,
		tenantID,
		fromUserID,
		windowStart,
	).Scan(&dailyUsed).Error
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		DailyUsed:      int(dailyUsed),
		DailyLimit:     cfg.DailyLimit,
		RecipientLimit: cfg.PerRecipientLimit,
	}

	if dailyUsed >= int64(cfg.DailyLimit) {
		decision.Reason = ReasonDailyLimit
		return decision, nil
	}

	var recipientUsed int64
	err = p.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM award_marks
		 WHERE tenant_id = ? AND from_user_id = ? AND to_user_id = ? AND awarded_at > ?`,
		tenantID,
		fromUserID,
		toUserID,
		windowStart,
	).Scan(&recipientUsed).Error
	if err != nil {
		return Decision{}, err
	}

	decision.RecipientUsed = int(recipientUsed)
	if recipientUsed >= int64(cfg.PerRecipientLimit) {
		decision.Reason = ReasonRecipientLimit
		return decision, nil
	}

	decision.Allowed = true
	return decision, nil
}

// Record inserts the usage mark on the given handle. Callers run it inside
// the same transaction as the ledger append so the two writes commit or roll
// back together.
func (p *AwardPolicy) Record(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, fromUserID, toUserID string) error {
	if tx == nil {
		return errors.New("transaction handle is required")
	}

	mark := AwardMark{
		ID:         p.genID.Generate(),
		TenantID:   tenantID,
		FromUserID: strings.TrimSpace(fromUserID),
		ToUserID:   strings.TrimSpace(toUserID),
		AwardedAt:  p.clock.Now().UTC(),
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO award_marks (id, tenant_id, from_user_id, to_user_id, awarded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		mark.ID,
		mark.TenantID,
		mark.FromUserID,
		mark.ToUserID,
		mark.AwardedAt,
	).Error
}

// PurgeExpired removes marks older than the cutoff and reports how many rows
// went away.
func (p *AwardPolicy) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	result := p.db.WithContext(ctx).Exec(
		`DELETE FROM award_marks WHERE awarded_at < ?`,
		olderThan,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Window returns the current rolling window length.
func (p *AwardPolicy) Window() time.Duration {
	return time.Duration(p.rewards.Get().RateLimit.WindowHours) * time.Hour
}
