package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreateDefinitionRequest) (*Definition, error)
	Update(ctx context.Context, tenantID, definitionID snowflake.ID, req UpdateDefinitionRequest) (*Definition, error)
	Delete(ctx context.Context, tenantID, definitionID snowflake.ID) error

	// List returns the tenant's ladder ordered by required points ascending.
	List(ctx context.Context, tenantID snowflake.ID) ([]Definition, error)

	// EligibleRank returns the highest definition whose threshold does not
	// exceed total, or nil when the total reaches no rung.
	EligibleRank(ctx context.Context, tenantID snowflake.ID, total int64) (*Definition, error)
}

type CreateDefinitionRequest struct {
	Name           string `json:"name"`
	RequiredPoints int64  `json:"required_points"`
	BadgeRef       string `json:"badge_ref"`
}

type UpdateDefinitionRequest struct {
	Name           string `json:"name"`
	RequiredPoints int64  `json:"required_points"`
	BadgeRef       string `json:"badge_ref"`
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidDefinition = errors.New("invalid_definition")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidThreshold  = errors.New("invalid_threshold")
	ErrInvalidBadgeRef   = errors.New("invalid_badge_ref")
	ErrThresholdTaken    = errors.New("threshold_taken")
	ErrNotFound          = errors.New("rank_not_found")
)
