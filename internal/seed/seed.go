// Package seed provisions the rows a fresh deployment needs before the
// first request can be served.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"gorm.io/gorm"
)

const (
	defaultTenantName = "Main"
	defaultTenantSlug = "main"
)

// starterRanks is the ladder seeded for a brand new tenant. Operators
// replace it through the admin API once the community settles on names.
var starterRanks = []struct {
	Name           string
	RequiredPoints int64
	BadgeRef       string
}{
	{Name: "Newcomer", RequiredPoints: 25, BadgeRef: "rank-newcomer"},
	{Name: "Regular", RequiredPoints: 50, BadgeRef: "rank-regular"},
	{Name: "Veteran", RequiredPoints: 100, BadgeRef: "rank-veteran"},
}

// EnsureDefaultTenant seeds the default tenant, its settings row, and a
// starter rank ladder. Safe to call on every startup.
func EnsureDefaultTenant(db *gorm.DB) error {
	return ensureDefaultTenant(db, 0)
}

// EnsureDefaultTenantWithID pins the default tenant to a fixed ID so
// single-community deployments can reference it from configuration.
func EnsureDefaultTenantWithID(db *gorm.DB, id snowflake.ID) error {
	if id == 0 {
		return errors.New("seed tenant id is required")
	}
	return ensureDefaultTenant(db, id)
}

func ensureDefaultTenant(db *gorm.DB, fixedID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ten, err := ensureTenantTx(ctx, tx, node, fixedID)
		if err != nil {
			return err
		}
		if err := ensureSettingsTx(ctx, tx, ten.ID); err != nil {
			return err
		}
		return ensureStarterRanksTx(ctx, tx, node, ten.ID)
	})
}

func ensureTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, fixedID snowflake.ID) (tenantdomain.Tenant, error) {
	var ten tenantdomain.Tenant

	if fixedID != 0 {
		err := tx.WithContext(ctx).Where("id = ?", fixedID).First(&ten).Error
		if err == nil {
			return ten, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ten, err
		}
	}

	err := tx.WithContext(ctx).Where("slug = ?", defaultTenantSlug).First(&ten).Error
	if err == nil {
		if fixedID != 0 && ten.ID != fixedID {
			return ten, fmt.Errorf("tenant slug %q belongs to tenant %d, not configured default %d", defaultTenantSlug, ten.ID, fixedID)
		}
		return ten, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ten, err
	}

	id := fixedID
	if id == 0 {
		id = node.Generate()
	}
	now := time.Now().UTC()
	ten = tenantdomain.Tenant{
		ID:        id,
		Name:      defaultTenantName,
		Slug:      defaultTenantSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&ten).Error; err != nil {
		return ten, err
	}
	return ten, nil
}

func ensureSettingsTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) error {
	var settings tenantdomain.Settings
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&settings).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	settings = tenantdomain.Settings{
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&settings).Error
}

// ensureStarterRanksTx seeds the ladder only when the tenant has no
// definitions at all, so ranks deleted through the admin API stay deleted.
func ensureStarterRanksTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&rankdomain.Definition{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, r := range starterRanks {
		def := rankdomain.Definition{
			ID:             node.Generate(),
			TenantID:       tenantID,
			Name:           r.Name,
			Slug:           slug.Make(r.Name),
			RequiredPoints: r.RequiredPoints,
			BadgeRef:       r.BadgeRef,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&def).Error; err != nil {
			return err
		}
	}
	return nil
}
