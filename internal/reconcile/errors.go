package reconcile

import (
	"errors"
	"fmt"

	"github.com/guildpoint/merit/internal/providers/badge"
)

// Capability failure kinds, surfaced to callers and counted per kind in
// bulk summaries.
const (
	KindPermissionDenied = "permission-denied"
	KindHierarchyBlocked = "hierarchy-blocked"
	KindBadgeNotFound    = "badge-not-found"
	KindThrottled        = "throttled"
	KindStorage          = "storage"
)

// CapabilityError reports that the badge platform refused a read or a
// write. Throttled failures are retryable; the reconciler backs off
// through a cooldown instead of retrying in line.
type CapabilityError struct {
	Kind     string
	BadgeRef string
	Err      error
}

func (e *CapabilityError) Error() string {
	if e.BadgeRef == "" {
		return "badge capability: " + e.Kind
	}
	return fmt.Sprintf("badge capability: %s (badge %s)", e.Kind, e.BadgeRef)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt can succeed without a
// configuration change on the platform side.
func (e *CapabilityError) Retryable() bool { return e.Kind == KindThrottled }

// classifyCapability converts provider sentinel errors into typed
// capability failures. Unknown errors pass through untouched.
func classifyCapability(badgeRef string, err error) error {
	switch {
	case errors.Is(err, badge.ErrPermissionDenied):
		return &CapabilityError{Kind: KindPermissionDenied, BadgeRef: badgeRef, Err: err}
	case errors.Is(err, badge.ErrHierarchyBlocked):
		return &CapabilityError{Kind: KindHierarchyBlocked, BadgeRef: badgeRef, Err: err}
	case errors.Is(err, badge.ErrBadgeNotFound):
		return &CapabilityError{Kind: KindBadgeNotFound, BadgeRef: badgeRef, Err: err}
	case errors.Is(err, badge.ErrThrottled):
		return &CapabilityError{Kind: KindThrottled, BadgeRef: badgeRef, Err: err}
	default:
		return err
	}
}

// failureKind buckets an error for the bulk summary.
func failureKind(err error) string {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Kind
	}
	return KindStorage
}
