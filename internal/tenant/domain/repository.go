package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTenant(ctx context.Context, tenant Tenant) error
	GetTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	UpdateTenantName(ctx context.Context, id snowflake.ID, name string, updatedAt time.Time) error
	GetSettings(ctx context.Context, tenantID snowflake.ID) (*Settings, error)
	UpsertSettings(ctx context.Context, settings Settings) error
	UpsertMember(ctx context.Context, member Member) error
}
