package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *ledgerdomain.ReputationEvent) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO reputation_events (
			id, tenant_id, event_id, from_user_id, to_user_id, source_tag, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, event_id, from_user_id, source_tag) DO NOTHING`,
		event.ID,
		event.TenantID,
		event.EventID,
		event.FromUserID,
		event.ToUserID,
		event.SourceTag,
		event.Amount,
		event.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, key ledgerdomain.EventKey) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM reputation_events
		 WHERE tenant_id = ? AND event_id = ? AND from_user_id = ? AND source_tag = ?`,
		key.TenantID,
		key.EventID,
		key.FromUserID,
		key.SourceTag,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SumAmount(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM reputation_events
		 WHERE tenant_id = ? AND to_user_id = ?`,
		tenantID,
		userID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) Leaderboard(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]ledgerdomain.UserTotal, error) {
	var totals []ledgerdomain.UserTotal
	err := db.WithContext(ctx).Raw(
		`SELECT to_user_id, SUM(amount) AS total
		 FROM reputation_events
		 WHERE tenant_id = ?
		 GROUP BY to_user_id
		 ORDER BY total DESC, to_user_id ASC
		 LIMIT ?`,
		tenantID,
		limit,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repo) NonzeroTotals(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]ledgerdomain.UserTotal, error) {
	var totals []ledgerdomain.UserTotal
	err := db.WithContext(ctx).Raw(
		`SELECT to_user_id, SUM(amount) AS total
		 FROM reputation_events
		 WHERE tenant_id = ?
		 GROUP BY to_user_id
		 HAVING SUM(amount) <> 0
		 ORDER BY total DESC, to_user_id ASC`,
		tenantID,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter ledgerdomain.HistoryFilter) ([]ledgerdomain.ReputationEvent, error) {
	stmt := db.WithContext(ctx).Model(&ledgerdomain.ReputationEvent{}).
		Where("tenant_id = ?", filter.TenantID)

	switch filter.Direction {
	case ledgerdomain.HistoryDirectionTo:
		stmt = stmt.Where("to_user_id = ?", filter.UserID)
	case ledgerdomain.HistoryDirectionFrom:
		stmt = stmt.Where("from_user_id = ?", filter.UserID)
	default:
		stmt = stmt.Where("to_user_id = ? OR from_user_id = ?", filter.UserID, filter.UserID)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var events []ledgerdomain.ReputationEvent
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ExistsBySourceTags(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string, sourceTags []string) (bool, error) {
	if len(sourceTags) == 0 {
		return false, nil
	}
	var one int64
	err := db.WithContext(ctx).Raw(
		`SELECT 1
		 FROM reputation_events
		 WHERE tenant_id = ? AND to_user_id = ? AND source_tag IN ?
		 LIMIT 1`,
		tenantID,
		userID,
		sourceTags,
	).Scan(&one).Error
	if err != nil {
		return false, err
	}
	return one == 1, nil
}
