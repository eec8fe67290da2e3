package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository executes ledger statements against the handle it is given,
// so callers can compose writes with other statements in one transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *ReputationEvent) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, key EventKey) (bool, error)
	SumAmount(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string) (int64, error)
	Leaderboard(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]UserTotal, error)
	NonzeroTotals(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]UserTotal, error)
	List(ctx context.Context, db *gorm.DB, filter HistoryFilter) ([]ReputationEvent, error)
	ExistsBySourceTags(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string, sourceTags []string) (bool, error)
}
