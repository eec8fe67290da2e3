package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type HistoryRequest struct {
	TenantID  snowflake.ID
	UserID    string
	Direction HistoryDirection
	Limit     int
}

// Service is the ledger's public surface. Append and Revoke report the
// storage outcome as a boolean, never as an error.
type Service interface {
	Append(ctx context.Context, event ReputationEvent) (bool, error)
	Revoke(ctx context.Context, key EventKey) (bool, error)
	Total(ctx context.Context, tenantID snowflake.ID, userID string) (int64, error)
	Leaderboard(ctx context.Context, tenantID snowflake.ID, limit int) ([]UserTotal, error)
	NonzeroTotals(ctx context.Context, tenantID snowflake.ID) ([]UserTotal, error)
	History(ctx context.Context, req HistoryRequest) ([]ReputationEvent, error)
	HasReceivedAny(ctx context.Context, tenantID snowflake.ID, userID string, sourceTags []string) (bool, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidEventID   = errors.New("invalid_event_id")
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidSourceTag = errors.New("invalid_source_tag")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidDirection = errors.New("invalid_direction")
)
