package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/tenant/domain"
	"github.com/guildpoint/merit/internal/tenant/repository"
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

	if err := db.AutoMigrate(&domain.Tenant{}, &domain.Settings{}, &domain.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
		Cache: cache.NewAwardResolverCache(),
	})
	return svc, db
}

func TestCreateTenantWithOwner(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateTenantRequest{
		Name:        "Gopher Guild",
		OwnerUserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Gopher Guild", resp.Name)
	assert.Equal(t, "gopher-guild", resp.Slug)

	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	var member domain.Member
	require.NoError(t, db.First(&member, "tenant_id = ?", tenantID).Error)
	assert.Equal(t, "user-1", member.UserID)
	assert.Equal(t, domain.RoleOwner, member.Role)
}

func TestCreateTenantValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestGetTenant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateTenantRequest{Name: "Gopher Guild"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)

	_, err = svc.Get(ctx, snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateTenantName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateTenantRequest{Name: "Gopher Guild"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, tenantID, domain.UpdateTenantRequest{Name: "Rustacean Refuge"})
	require.NoError(t, err)
	assert.Equal(t, "Rustacean Refuge", updated.Name)
	// The slug stays stable across renames.
	assert.Equal(t, "gopher-guild", updated.Slug)

	got, err := svc.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "Rustacean Refuge", got.Name)
}

func TestSettingsDefaultsWhenUnconfigured(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.Settings(context.Background(), snowflake.ID(101))
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(101), settings.TenantID)
	assert.Empty(t, settings.IntroductionChannelID)
	assert.Empty(t, settings.BonusTimezone)
	assert.Nil(t, settings.DailyBonusEnabled)
	assert.Empty(t, settings.InviteRewardMode)
}

func TestUpdateSettingsRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateTenantRequest{Name: "Gopher Guild"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	enabled := true
	saved, err := svc.UpdateSettings(ctx, tenantID, domain.UpdateSettingsRequest{
		IntroductionChannelID:     " chan-intro ",
		NotificationChannelID:     "chan-notify",
		NotificationsEnabled:      true,
		BonusTimezone:             "Europe/Berlin",
		DailyBonusEnabled:         &enabled,
		InviteRewardMode:          domain.InviteRewardApproval,
		LeaderboardExcludedBadges: []string{"badge-staff", " badge-staff", "badge-bot", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "chan-intro", saved.IntroductionChannelID)
	assert.Equal(t, []string{"badge-staff", "badge-bot"}, []string(saved.LeaderboardExcludedBadges))

	got, err := svc.Settings(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "chan-intro", got.IntroductionChannelID)
	assert.Equal(t, "Europe/Berlin", got.BonusTimezone)
	require.NotNil(t, got.DailyBonusEnabled)
	assert.True(t, *got.DailyBonusEnabled)
	assert.Equal(t, domain.InviteRewardApproval, got.InviteRewardMode)

	// A second update replaces the previous snapshot.
	_, err = svc.UpdateSettings(ctx, tenantID, domain.UpdateSettingsRequest{
		BonusTimezone: "UTC",
	})
	require.NoError(t, err)

	got, err = svc.Settings(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", got.BonusTimezone)
	assert.Empty(t, got.IntroductionChannelID)
	assert.Nil(t, got.DailyBonusEnabled)
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateTenantRequest{Name: "Gopher Guild"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	_, err = svc.UpdateSettings(ctx, tenantID, domain.UpdateSettingsRequest{
		BonusTimezone: "Mars/Olympus",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTimezone)

	_, err = svc.UpdateSettings(ctx, tenantID, domain.UpdateSettingsRequest{
		InviteRewardMode: "sometimes",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInviteRewardMode)

	_, err = svc.UpdateSettings(ctx, snowflake.ID(999), domain.UpdateSettingsRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddMemberUpsertsRole(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	tenantID := snowflake.ID(101)

	require.NoError(t, svc.AddMember(ctx, tenantID, "user-1", domain.RoleMember))
	require.NoError(t, svc.AddMember(ctx, tenantID, "user-1", domain.RoleAdmin))

	var members []domain.Member
	require.NoError(t, db.Find(&members, "tenant_id = ?", tenantID).Error)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleAdmin, members[0].Role)

	err := svc.AddMember(ctx, tenantID, "user-2", "viscount")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	err = svc.AddMember(ctx, tenantID, " ", domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}
