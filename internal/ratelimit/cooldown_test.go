package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCooldown(t *testing.T) (*Cooldown, *clock.FakeClock) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewCooldown(db, node, fake), fake
}

func TestCooldownSetAndExpire(t *testing.T) {
	cooldown, fake := newTestCooldown(t)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	active, err := cooldown.Active(ctx, tenantID, "bob", ScopeReconcile)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, cooldown.Set(ctx, tenantID, "bob", ScopeReconcile, 10*time.Minute))

	active, err = cooldown.Active(ctx, tenantID, "bob", ScopeReconcile)
	require.NoError(t, err)
	assert.True(t, active)

	// A different scope for the same user is independent.
	active, err = cooldown.Active(ctx, tenantID, "bob", "other")
	require.NoError(t, err)
	assert.False(t, active)

	fake.Advance(11 * time.Minute)

	active, err = cooldown.Active(ctx, tenantID, "bob", ScopeReconcile)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestCooldownSetExtends(t *testing.T) {
	cooldown, fake := newTestCooldown(t)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	require.NoError(t, cooldown.Set(ctx, tenantID, "bob", ScopeReconcile, 10*time.Minute))
	fake.Advance(8 * time.Minute)
	require.NoError(t, cooldown.Set(ctx, tenantID, "bob", ScopeReconcile, 10*time.Minute))
	fake.Advance(8 * time.Minute)

	active, err := cooldown.Active(ctx, tenantID, "bob", ScopeReconcile)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCooldownPurge(t *testing.T) {
	cooldown, fake := newTestCooldown(t)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	require.NoError(t, cooldown.Set(ctx, tenantID, "bob", ScopeReconcile, time.Minute))
	require.NoError(t, cooldown.Set(ctx, tenantID, "carol", ScopeReconcile, time.Hour))

	fake.Advance(2 * time.Minute)

	purged, err := cooldown.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	active, err := cooldown.Active(ctx, tenantID, "carol", ScopeReconcile)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCooldownValidation(t *testing.T) {
	cooldown, _ := newTestCooldown(t)
	ctx := context.Background()

	assert.Error(t, cooldown.Set(ctx, 0, "bob", ScopeReconcile, time.Minute))
	assert.Error(t, cooldown.Set(ctx, 101, " ", ScopeReconcile, time.Minute))
	assert.Error(t, cooldown.Set(ctx, 101, "bob", "", time.Minute))
	assert.Error(t, cooldown.Set(ctx, 101, "bob", ScopeReconcile, 0))
}
