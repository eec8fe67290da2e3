package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/clock"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	ledgerrepository "github.com/guildpoint/merit/internal/ledger/repository"
	ledgerservice "github.com/guildpoint/merit/internal/ledger/service"
	"github.com/guildpoint/merit/internal/providers/badge"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	rankservice "github.com/guildpoint/merit/internal/rank/service"
	"github.com/guildpoint/merit/internal/ratelimit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	rec      *Reconciler
	provider *badge.MockProvider
	cooldown *ratelimit.Cooldown
	ledger   ledgerdomain.Service
	ranks    rankdomain.Service
	fake     *clock.FakeClock
	tenantID snowflake.ID
	seq      int
}

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

	err = db.AutoMigrate(
		&ledgerdomain.ReputationEvent{},
		&rankdomain.Definition{},
		&ratelimit.CooldownMark{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()

	db := setupTestDB(t)
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  ledgerrepository.Provide(),
	})
	rankSvc := rankservice.NewService(rankservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Cache: cache.NewAwardResolverCache(),
	})

	provider := badge.NewMockProvider(ctrl)
	cooldown := ratelimit.NewCooldown(db, node, fake)

	rec := NewReconciler(Params{
		Log:      log,
		Ledger:   ledgerSvc,
		Ranks:    rankSvc,
		Provider: provider,
		Cooldown: cooldown,
	})

	return &fixture{
		rec:      rec,
		provider: provider,
		cooldown: cooldown,
		ledger:   ledgerSvc,
		ranks:    rankSvc,
		fake:     fake,
		tenantID: snowflake.ID(101),
	}
}

func (f *fixture) addRank(t *testing.T, name string, points int64, badgeRef string) {
	t.Helper()
	_, err := f.ranks.Create(context.Background(), f.tenantID, rankdomain.CreateDefinitionRequest{
		Name:           name,
		RequiredPoints: points,
		BadgeRef:       badgeRef,
	})
	require.NoError(t, err)
}

func (f *fixture) addPoints(t *testing.T, userID string, amount int64) {
	t.Helper()
	f.seq++
	appended, err := f.ledger.Append(context.Background(), ledgerdomain.ReputationEvent{
		TenantID:   f.tenantID,
		EventID:    fmt.Sprintf("seed-%d", f.seq),
		FromUserID: "seeder",
		ToUserID:   userID,
		SourceTag:  ledgerdomain.SourceManual,
		Amount:     amount,
	})
	require.NoError(t, err)
	require.True(t, appended)
}

func TestReconcileUserGrantsFirstRank(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addRank(t, "Silver", 50, "badge-silver")
	f.addPoints(t, "bob", 30)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return(nil, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(true, nil)
	f.provider.EXPECT().GrantBadge(gomock.Any(), f.tenantID, "bob", "badge-bronze").Return(nil)

	result, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	require.NoError(t, err)
	require.False(t, result.InSync)
	require.Equal(t, int64(30), result.Total)
	require.Equal(t, "badge-bronze", result.Granted)
	require.Empty(t, result.Revoked)
	require.NotNil(t, result.Eligible)
	require.Equal(t, "badge-bronze", result.Eligible.BadgeRef)
}

func TestReconcileUserNoopWhenInSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addRank(t, "Silver", 50, "badge-silver")
	f.addPoints(t, "bob", 30)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return([]string{"badge-bronze"}, nil)

	result, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	require.NoError(t, err)
	require.True(t, result.InSync)
	require.Empty(t, result.Granted)
	require.Empty(t, result.Revoked)
	require.Equal(t, []string{"badge-bronze"}, result.Held)
}

func TestReconcileUserPromotionGrantsBeforeRevoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addRank(t, "Silver", 50, "badge-silver")
	f.addPoints(t, "bob", 50)

	gomock.InOrder(
		f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return([]string{"badge-bronze"}, nil),
		f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-silver").Return(true, nil),
		f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(true, nil),
		f.provider.EXPECT().GrantBadge(gomock.Any(), f.tenantID, "bob", "badge-silver").Return(nil),
		f.provider.EXPECT().RevokeBadge(gomock.Any(), f.tenantID, "bob", "badge-bronze").Return(nil),
	)

	result, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	require.NoError(t, err)
	require.Equal(t, "badge-silver", result.Granted)
	require.Equal(t, "badge-bronze", result.Revoked)
}

func TestReconcileUserDemotionRevokesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addPoints(t, "bob", 10)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return([]string{"badge-bronze"}, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(true, nil)
	f.provider.EXPECT().RevokeBadge(gomock.Any(), f.tenantID, "bob", "badge-bronze").Return(nil)

	result, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	require.NoError(t, err)
	require.Nil(t, result.Eligible)
	require.Empty(t, result.Granted)
	require.Equal(t, "badge-bronze", result.Revoked)
}

func TestReconcileUserCapabilityDenialAbortsTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addRank(t, "Silver", 50, "badge-silver")
	f.addPoints(t, "bob", 50)

	// The revoke target fails pre-flight, so neither mutation runs.
	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return([]string{"badge-bronze"}, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-silver").Return(true, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(false, badge.ErrHierarchyBlocked)

	_, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, KindHierarchyBlocked, capErr.Kind)
	require.Equal(t, "badge-bronze", capErr.BadgeRef)
	require.False(t, capErr.Retryable())
}

func TestReconcileUserCapabilityFalseIsPermissionDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addPoints(t, "bob", 30)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return(nil, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(false, nil)

	_, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, KindPermissionDenied, capErr.Kind)
}

func TestReconcileUserThrottleSetsCooldown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	ctx := context.Background()

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addPoints(t, "bob", 30)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return(nil, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(true, nil)
	f.provider.EXPECT().GrantBadge(gomock.Any(), f.tenantID, "bob", "badge-bronze").Return(badge.ErrThrottled)

	_, err := f.rec.ReconcileUser(ctx, f.tenantID, "bob")
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, KindThrottled, capErr.Kind)
	require.True(t, capErr.Retryable())

	active, err := f.cooldown.Active(ctx, f.tenantID, "bob", ratelimit.ScopeReconcile)
	require.NoError(t, err)
	require.True(t, active)
}

func TestReconcileUserNoDefinitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	result, err := f.rec.ReconcileUser(context.Background(), f.tenantID, "bob")
	require.NoError(t, err)
	require.True(t, result.InSync)
	require.Zero(t, result.Total)
}

func TestReconcileUserValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	_, err := f.rec.ReconcileUser(context.Background(), 0, "bob")
	require.ErrorIs(t, err, ErrInvalidTenant)

	_, err = f.rec.ReconcileUser(context.Background(), f.tenantID, "  ")
	require.ErrorIs(t, err, ErrInvalidUser)
}

func TestRankStatusReportsDiff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	ctx := context.Background()

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addRank(t, "Silver", 50, "badge-silver")
	f.addPoints(t, "bob", 50)
	f.addPoints(t, "carol", 30)

	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "bob").Return([]string{"badge-bronze"}, nil)
	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "carol").Return([]string{"badge-bronze"}, nil)

	status, err := f.rec.RankStatus(ctx, f.tenantID, "bob")
	require.NoError(t, err)
	require.False(t, status.InSync)
	require.Equal(t, int64(50), status.Total)
	require.Equal(t, "badge-silver", status.Eligible.BadgeRef)
	require.Equal(t, []string{"badge-bronze"}, status.Held)

	status, err = f.rec.RankStatus(ctx, f.tenantID, "carol")
	require.NoError(t, err)
	require.True(t, status.InSync)
}

func TestReconcileAllAggregates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	ctx := context.Background()

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addPoints(t, "u-grant", 30)
	f.addPoints(t, "u-cool", 40)
	f.addPoints(t, "u-fail", 50)

	require.NoError(t, f.cooldown.Set(ctx, f.tenantID, "u-cool", ratelimit.ScopeReconcile, time.Hour))

	f.provider.EXPECT().CanManageBadges(gomock.Any(), f.tenantID).Return(true, nil)
	f.provider.EXPECT().HasCapability(gomock.Any(), f.tenantID, "badge-bronze").Return(true, nil).Times(2)
	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "u-grant").Return(nil, nil)
	f.provider.EXPECT().GrantBadge(gomock.Any(), f.tenantID, "u-grant", "badge-bronze").Return(nil)
	f.provider.EXPECT().CurrentBadges(gomock.Any(), f.tenantID, "u-fail").Return(nil, nil)
	f.provider.EXPECT().GrantBadge(gomock.Any(), f.tenantID, "u-fail", "badge-bronze").Return(badge.ErrPermissionDenied)

	summary, err := f.rec.ReconcileAll(ctx, f.tenantID)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Examined)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, summary.Failures)
	require.Equal(t, map[string]int{KindPermissionDenied: 1}, summary.FailuresByKind)
}

func TestReconcileAllShortCircuitsWithoutCapability(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addRank(t, "Bronze", 25, "badge-bronze")
	f.addPoints(t, "bob", 30)

	f.provider.EXPECT().CanManageBadges(gomock.Any(), f.tenantID).Return(false, nil)

	_, err := f.rec.ReconcileAll(context.Background(), f.tenantID)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, KindPermissionDenied, capErr.Kind)
}

func TestReconcileAllEmptyLadder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.addPoints(t, "bob", 30)
	f.provider.EXPECT().CanManageBadges(gomock.Any(), f.tenantID).Return(true, nil)

	summary, err := f.rec.ReconcileAll(context.Background(), f.tenantID)
	require.NoError(t, err)
	require.Zero(t, summary.Examined)
}

func TestCapabilityErrorUnwrap(t *testing.T) {
	err := classifyCapability("badge-bronze", badge.ErrThrottled)
	require.True(t, errors.Is(err, badge.ErrThrottled))

	plain := errors.New("socket closed")
	require.Same(t, plain, classifyCapability("", plain))
	require.Equal(t, KindStorage, failureKind(plain))
}
