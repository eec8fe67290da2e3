package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	"gorm.io/gorm"
)

// Cooldown scopes.
const (
	ScopeReconcile = "reconcile"
)

// CooldownMark damps retries after a transient failure. One row per
// (tenant, user, scope); setting again extends the expiry.
type CooldownMark struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_cooldown_marks_scope,priority:1" json:"tenant_id"`
	UserID    string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_cooldown_marks_scope,priority:2" json:"user_id"`
	Scope     string       `gorm:"type:text;not null;uniqueIndex:ux_cooldown_marks_scope,priority:3" json:"scope"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

// TableName sets the database table name.
func (CooldownMark) TableName() string { return "cooldown_marks" }

// Cooldown stores keyed cooldown records behind the storage boundary, so
// every process observes the same damping state.
type Cooldown struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewCooldown(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Cooldown {
	return &Cooldown{
		db:    db,
		genID: genID,
		clock: clk,
	}
}

func (c *Cooldown) Set(ctx context.Context, tenantID snowflake.ID, userID, scope string, ttl time.Duration) error {
	if tenantID == 0 {
		return errors.New("tenant id is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return errors.New("cooldown scope is required")
	}
	if ttl <= 0 {
		return errors.New("cooldown ttl must be positive")
	}

	expiresAt := c.clock.Now().UTC().Add(ttl)
	return c.db.WithContext(ctx).Exec(
		`INSERT INTO cooldown_marks (id, tenant_id, user_id, scope, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, user_id, scope) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		c.genID.Generate(),
		tenantID,
		userID,
		scope,
		expiresAt,
	).Error
}

func (c *Cooldown) Active(ctx context.Context, tenantID snowflake.ID, userID, scope string) (bool, error) {
	if tenantID == 0 || strings.TrimSpace(userID) == "" || strings.TrimSpace(scope) == "" {
		return false, nil
	}

	var one int64
	err := c.db.WithContext(ctx).Raw(
		`SELECT 1 FROM cooldown_marks
		 WHERE tenant_id = ? AND user_id = ? AND scope = ? AND expires_at > ?
		 LIMIT 1`,
		tenantID,
		strings.TrimSpace(userID),
		strings.TrimSpace(scope),
		c.clock.Now().UTC(),
	).Scan(&one).Error
	if err != nil {
		return false, err
	}
	return one == 1, nil
}

// Purge removes expired cooldown rows.
func (c *Cooldown) Purge(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).Exec(
		`DELETE FROM cooldown_marks WHERE expires_at <= ?`,
		c.clock.Now().UTC(),
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
