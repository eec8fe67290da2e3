package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/rank/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

	if err := db.AutoMigrate(&domain.Definition{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cache: cache.NewAwardResolverCache(),
	})
}

func seedLadder(t *testing.T, svc domain.Service, tenantID snowflake.ID) []domain.Definition {
	t.Helper()

	ladder := []domain.CreateDefinitionRequest{
		{Name: "Veteran", RequiredPoints: 100, BadgeRef: "badge-veteran"},
		{Name: "Regular", RequiredPoints: 25, BadgeRef: "badge-regular"},
		{Name: "Trusted", RequiredPoints: 50, BadgeRef: "badge-trusted"},
	}
	out := make([]domain.Definition, 0, len(ladder))
	for _, req := range ladder {
		def, err := svc.Create(context.Background(), tenantID, req)
		require.NoError(t, err)
		out = append(out, *def)
	}
	return out
}

func TestListOrdersByThreshold(t *testing.T) {
	svc := newTestService(t)
	tenantID := snowflake.ID(101)
	seedLadder(t, svc, tenantID)

	defs, err := svc.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, int64(25), defs[0].RequiredPoints)
	assert.Equal(t, int64(50), defs[1].RequiredPoints)
	assert.Equal(t, int64(100), defs[2].RequiredPoints)
	assert.Equal(t, "regular", defs[0].Slug)
}

func TestCreateRejectsDuplicateThreshold(t *testing.T) {
	svc := newTestService(t)
	tenantID := snowflake.ID(101)
	seedLadder(t, svc, tenantID)

	_, err := svc.Create(context.Background(), tenantID, domain.CreateDefinitionRequest{
		Name:           "Also Regular",
		RequiredPoints: 25,
		BadgeRef:       "badge-other",
	})
	assert.ErrorIs(t, err, domain.ErrThresholdTaken)

	// The same threshold is free in another tenant.
	_, err = svc.Create(context.Background(), snowflake.ID(202), domain.CreateDefinitionRequest{
		Name:           "Regular",
		RequiredPoints: 25,
		BadgeRef:       "badge-regular",
	})
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 0, domain.CreateDefinitionRequest{Name: "x", RequiredPoints: 1, BadgeRef: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = svc.Create(ctx, 101, domain.CreateDefinitionRequest{Name: " ", RequiredPoints: 1, BadgeRef: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, 101, domain.CreateDefinitionRequest{Name: "x", RequiredPoints: -1, BadgeRef: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidThreshold)

	_, err = svc.Create(ctx, 101, domain.CreateDefinitionRequest{Name: "x", RequiredPoints: 1, BadgeRef: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidBadgeRef)
}

func TestEligibleRankPicksLastReachedRung(t *testing.T) {
	svc := newTestService(t)
	tenantID := snowflake.ID(101)
	seedLadder(t, svc, tenantID)
	ctx := context.Background()

	cases := []struct {
		total int64
		want  string // badge ref, "" = none
	}{
		{0, ""},
		{24, ""},
		{25, "badge-regular"},
		{49, "badge-regular"},
		{50, "badge-trusted"},
		{99, "badge-trusted"},
		{100, "badge-veteran"},
		{5000, "badge-veteran"},
		{-10, ""},
	}

	for _, tc := range cases {
		def, err := svc.EligibleRank(ctx, tenantID, tc.total)
		require.NoError(t, err)
		if tc.want == "" {
			assert.Nil(t, def, "total %d", tc.total)
			continue
		}
		require.NotNil(t, def, "total %d", tc.total)
		assert.Equal(t, tc.want, def.BadgeRef, "total %d", tc.total)
	}
}

func TestEligibleRankEmptyLadder(t *testing.T) {
	svc := newTestService(t)

	def, err := svc.EligibleRank(context.Background(), snowflake.ID(101), 1000)
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestUpdateDefinition(t *testing.T) {
	svc := newTestService(t)
	tenantID := snowflake.ID(101)
	defs := seedLadder(t, svc, tenantID)
	ctx := context.Background()

	updated, err := svc.Update(ctx, tenantID, defs[1].ID, domain.UpdateDefinitionRequest{
		Name:           "Old Guard",
		RequiredPoints: 30,
		BadgeRef:       "badge-old-guard",
	})
	require.NoError(t, err)
	assert.Equal(t, "old-guard", updated.Slug)
	assert.Equal(t, int64(30), updated.RequiredPoints)

	// The new threshold takes effect on the read path.
	def, err := svc.EligibleRank(ctx, tenantID, 30)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "badge-old-guard", def.BadgeRef)

	// Moving onto an occupied threshold is refused.
	_, err = svc.Update(ctx, tenantID, defs[1].ID, domain.UpdateDefinitionRequest{
		Name:           "Old Guard",
		RequiredPoints: 50,
		BadgeRef:       "badge-old-guard",
	})
	assert.ErrorIs(t, err, domain.ErrThresholdTaken)

	_, err = svc.Update(ctx, tenantID, snowflake.ID(999), domain.UpdateDefinitionRequest{
		Name:           "Ghost",
		RequiredPoints: 1,
		BadgeRef:       "badge-ghost",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDefinition(t *testing.T) {
	svc := newTestService(t)
	tenantID := snowflake.ID(101)
	defs := seedLadder(t, svc, tenantID)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, tenantID, defs[0].ID))

	err := svc.Delete(ctx, tenantID, defs[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := svc.List(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
