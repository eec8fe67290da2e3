// Package badge abstracts the chat platform's badge system. The engine
// only ever talks to this interface; a concrete adapter translates the
// calls into platform API requests.
package badge

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -source=provider.go -destination=mock_provider.go -package=badge

var (
	// ErrPermissionDenied means the engine's platform account lacks the
	// badge management permission in the tenant's community.
	ErrPermissionDenied = errors.New("badge_permission_denied")

	// ErrHierarchyBlocked means the badge sits above the engine's own
	// position, so the platform refuses to assign or remove it.
	ErrHierarchyBlocked = errors.New("badge_hierarchy_blocked")

	// ErrBadgeNotFound means the referenced badge no longer exists on
	// the platform side.
	ErrBadgeNotFound = errors.New("badge_not_found")

	// ErrThrottled means the platform rate limited the call. Callers
	// may retry after a cooldown.
	ErrThrottled = errors.New("badge_throttled")
)

// Provider is the badge system as the engine sees it. Badge refs are
// platform-side identifiers and are treated as opaque strings.
type Provider interface {
	// CanManageBadges reports whether the engine may manage badges in
	// the tenant's community at all.
	CanManageBadges(ctx context.Context, tenantID snowflake.ID) (bool, error)

	// HasCapability reports whether the engine can assign and remove
	// one specific badge, hierarchy included.
	HasCapability(ctx context.Context, tenantID snowflake.ID, badgeRef string) (bool, error)

	GrantBadge(ctx context.Context, tenantID snowflake.ID, userID string, badgeRef string) error
	RevokeBadge(ctx context.Context, tenantID snowflake.ID, userID string, badgeRef string) error

	// CurrentBadges lists the badge refs the user currently holds.
	CurrentBadges(ctx context.Context, tenantID snowflake.ID, userID string) ([]string, error)
}

// NoOpProvider reports full capability and performs nothing. It keeps
// deployments without a platform adapter runnable end to end.
type NoOpProvider struct{}

func (p *NoOpProvider) CanManageBadges(ctx context.Context, tenantID snowflake.ID) (bool, error) {
	return true, nil
}

func (p *NoOpProvider) HasCapability(ctx context.Context, tenantID snowflake.ID, badgeRef string) (bool, error) {
	return true, nil
}

func (p *NoOpProvider) GrantBadge(ctx context.Context, tenantID snowflake.ID, userID string, badgeRef string) error {
	return nil
}

func (p *NoOpProvider) RevokeBadge(ctx context.Context, tenantID snowflake.ID, userID string, badgeRef string) error {
	return nil
}

func (p *NoOpProvider) CurrentBadges(ctx context.Context, tenantID snowflake.ID, userID string) ([]string, error) {
	return nil, nil
}
