package rls

import (
	"fmt"

	"gorm.io/gorm"
)

// WithTenant binds the tenant ID to the current transaction for row-level
// security policies. Postgres only; callers must check the dialect.
func WithTenant(tx *gorm.DB, tenantID int64) error {
	return tx.Exec(
		"SET LOCAL app.current_tenant_id = ?",
		fmt.Sprintf("%d", tenantID),
	).Error
}

// Supported reports whether the connected database understands SET LOCAL.
func Supported(tx *gorm.DB) bool {
	if tx == nil || tx.Dialector == nil {
		return false
	}
	return tx.Dialector.Name() == "postgres"
}
