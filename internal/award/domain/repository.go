package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository executes idempotency-mark statements against the handle it
// is given, so the service can compose them with ledger appends in one
// transaction. Inserts report false when the uniqueness key already
// exists.
type Repository interface {
	InsertDailyClaim(ctx context.Context, db *gorm.DB, claim *DailyBonusClaim) (bool, error)

	InsertIntroductionReply(ctx context.Context, db *gorm.DB, reply *IntroductionReply) (bool, error)
	CountRepliesSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string, since time.Time) (int, error)
	PurgeRepliesBefore(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error)

	InsertInviteReward(ctx context.Context, db *gorm.DB, reward *InviteReward) (bool, error)
	GetInviteReward(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, creatorID, joinedUserID string) (*InviteReward, error)
	MarkInviteRewarded(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, creatorID, joinedUserID string, at time.Time) (bool, error)
}
