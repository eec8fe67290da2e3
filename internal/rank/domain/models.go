// Package domain contains persistence models for the rank service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Definition maps a point threshold to a badge. Thresholds are unique per
// tenant, enforced by the storage layer at write time.
type Definition struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID `gorm:"column:tenant_id;not null;index;uniqueIndex:ux_rank_definitions_threshold,priority:1" json:"tenant_id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	Slug           string       `gorm:"type:text;not null" json:"slug"`
	RequiredPoints int64        `gorm:"column:required_points;not null;uniqueIndex:ux_rank_definitions_threshold,priority:2" json:"required_points"`
	BadgeRef       string       `gorm:"column:badge_ref;type:text;not null" json:"badge_ref"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Definition) TableName() string { return "rank_definitions" }
