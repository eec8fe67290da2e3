package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&AwardMark{}, &CooldownMark{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testRewards(daily, perRecipient, windowHours int) *config.RewardsConfigHolder {
	cfg := config.DefaultRewardsConfig()
	cfg.RateLimit = config.RateLimitConfig{
		DailyLimit:        daily,
		PerRecipientLimit: perRecipient,
		WindowHours:       windowHours,
	}
	return config.NewStaticRewardsHolder(cfg)
}

func newTestPolicy(t *testing.T, daily, perRecipient, windowHours int) (*AwardPolicy, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	policy := NewAwardPolicy(db, node, testRewards(daily, perRecipient, windowHours), fake)
	return policy, db, fake
}

func record(t *testing.T, policy *AwardPolicy, db *gorm.DB, tenantID snowflake.ID, from, to string) {
	t.Helper()
	require.NoError(t, policy.Record(context.Background(), db, tenantID, from, to))
}

func TestCheckAllowsUnderLimits(t *testing.T) {
	policy, _, _ := newTestPolicy(t, 10, 1, 24)

	decision, err := policy.Check(context.Background(), 101, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.DailyUsed)
	assert.Equal(t, 10, decision.DailyLimit)
	assert.Equal(t, 0, decision.RecipientUsed)
	assert.Equal(t, 1, decision.RecipientLimit)
}

func TestCheckDailyLimitComesFirst(t *testing.T) {
	policy, db, _ := newTestPolicy(t, 2, 2, 24)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	record(t, policy, db, tenantID, "alice", "bob")
	record(t, policy, db, tenantID, "alice", "carol")

	// Alice exhausted her daily quota, even toward a fresh recipient.
	decision, err := policy.Check(ctx, tenantID, "alice", "dave")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonDailyLimit, decision.Reason)
	assert.Equal(t, 2, decision.DailyUsed)

	// Another giver in the same tenant is unaffected.
	decision, err = policy.Check(ctx, tenantID, "erin", "bob")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckPerRecipientLimit(t *testing.T) {
	policy, db, _ := newTestPolicy(t, 10, 1, 24)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	record(t, policy, db, tenantID, "alice", "bob")

	decision, err := policy.Check(ctx, tenantID, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRecipientLimit, decision.Reason)
	assert.Equal(t, 1, decision.RecipientUsed)
	assert.Equal(t, 1, decision.RecipientLimit)

	// A different recipient is still within quota.
	decision, err = policy.Check(ctx, tenantID, "alice", "carol")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckWindowExpiryFreesQuota(t *testing.T) {
	policy, db, fake := newTestPolicy(t, 1, 1, 24)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	record(t, policy, db, tenantID, "alice", "bob")

	decision, err := policy.Check(ctx, tenantID, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	fake.Advance(25 * time.Hour)

	decision, err = policy.Check(ctx, tenantID, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.DailyUsed)
}

func TestCheckScopedByTenant(t *testing.T) {
	policy, db, _ := newTestPolicy(t, 1, 1, 24)
	ctx := context.Background()

	record(t, policy, db, snowflake.ID(101), "alice", "bob")

	decision, err := policy.Check(ctx, snowflake.ID(202), "alice", "bob")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestPurgeExpiredKeepsWindowMarks(t *testing.T) {
	policy, db, fake := newTestPolicy(t, 10, 1, 24)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	record(t, policy, db, tenantID, "alice", "bob")
	fake.Advance(30 * time.Hour)
	record(t, policy, db, tenantID, "alice", "carol")

	purged, err := policy.PurgeExpired(ctx, fake.Now().Add(-policy.Window()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var count int64
	require.NoError(t, db.Model(&AwardMark{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Purge is cadence-only: the decision still counts by timestamp.
	decision, err := policy.Check(ctx, tenantID, "alice", "carol")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRecipientLimit, decision.Reason)
}
