package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() awarddomain.Repository {
	return &repo{}
}

func (r *repo) InsertDailyClaim(ctx context.Context, db *gorm.DB, claim *awarddomain.DailyBonusClaim) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO daily_bonus_claims (id, tenant_id, user_id, bonus_date, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, user_id, bonus_date) DO NOTHING`,
		claim.ID,
		claim.TenantID,
		claim.UserID,
		claim.BonusDate,
		claim.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertIntroductionReply(ctx context.Context, db *gorm.DB, reply *awarddomain.IntroductionReply) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO introduction_replies (id, tenant_id, user_id, post_id, replied_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, user_id, post_id) DO NOTHING`,
		reply.ID,
		reply.TenantID,
		reply.UserID,
		reply.PostID,
		reply.RepliedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CountRepliesSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, userID string, since time.Time) (int, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM introduction_replies
		 WHERE tenant_id = ? AND user_id = ? AND replied_at > ?`,
		tenantID,
		userID,
		since,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repo) PurgeRepliesBefore(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM introduction_replies WHERE replied_at <= ?`,
		olderThan,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) InsertInviteReward(ctx context.Context, db *gorm.DB, reward *awarddomain.InviteReward) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO invite_rewards (
			id, tenant_id, creator_id, joined_user_id, status, first_rewarded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, creator_id, joined_user_id) DO NOTHING`,
		reward.ID,
		reward.TenantID,
		reward.CreatorID,
		reward.JoinedUserID,
		reward.Status,
		reward.FirstRewardedAt,
		reward.CreatedAt,
		reward.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) GetInviteReward(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, creatorID, joinedUserID string) (*awarddomain.InviteReward, error) {
	var reward awarddomain.InviteReward
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND creator_id = ? AND joined_user_id = ?", tenantID, creatorID, joinedUserID).
		First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *repo) MarkInviteRewarded(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, creatorID, joinedUserID string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invite_rewards
		 SET status = ?, first_rewarded_at = ?, updated_at = ?
		 WHERE tenant_id = ? AND creator_id = ? AND joined_user_id = ? AND status = ?`,
		awarddomain.InviteStatusRewarded,
		at,
		at,
		tenantID,
		creatorID,
		joinedUserID,
		awarddomain.InviteStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
