package reconcile

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/ratelimit"
	"go.uber.org/zap"
)

// Summary aggregates one bulk reconciliation pass. A single user's
// failure never aborts the batch.
type Summary struct {
	Examined       int            `json:"examined"`
	Success        int            `json:"success"`
	Skipped        int            `json:"skipped"`
	Failures       int            `json:"failures"`
	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`
}

// ReconcileAll runs per-user reconciliation for every user with a
// nonzero ledger total. A tenant-level capability failure short-circuits
// the batch before any per-user work; users in cooldown are skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context, tenantID snowflake.ID) (Summary, error) {
	if tenantID == 0 {
		return Summary{}, ErrInvalidTenant
	}

	ok, err := r.provider.CanManageBadges(ctx, tenantID)
	if err != nil {
		return Summary{}, classifyCapability("", err)
	}
	if !ok {
		return Summary{}, &CapabilityError{Kind: KindPermissionDenied}
	}

	defs, err := r.ranks.List(ctx, tenantID)
	if err != nil {
		return Summary{}, err
	}
	if len(defs) == 0 {
		return Summary{}, nil
	}

	totals, err := r.ledger.NonzeroTotals(ctx, tenantID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{FailuresByKind: map[string]int{}}
	for _, row := range totals {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Examined++

		active, err := r.cooldown.Active(ctx, tenantID, row.UserID, ratelimit.ScopeReconcile)
		if err != nil {
			return summary, err
		}
		if active {
			summary.Skipped++
			continue
		}

		_, err = r.ReconcileUser(ctx, tenantID, row.UserID)
		switch {
		case errors.Is(err, ErrLocked):
			summary.Skipped++
		case err != nil:
			summary.Failures++
			summary.FailuresByKind[failureKind(err)]++
			r.log.Warn("user reconciliation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("user_id", row.UserID),
				zap.Error(err),
			)
		default:
			summary.Success++
		}
	}

	r.log.Info("bulk reconciliation finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("examined", summary.Examined),
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failures", summary.Failures),
	)
	return summary, nil
}
