// Package reconcile diffs a user's computed rank eligibility against
// the badge they hold on the chat platform and issues the grant and
// revoke calls that close the gap.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	"github.com/guildpoint/merit/internal/notify"
	"github.com/guildpoint/merit/internal/observability/metrics"
	"github.com/guildpoint/merit/internal/providers/badge"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	"github.com/guildpoint/merit/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// throttleCooldown keeps a throttled user out of bulk sweeps long
	// enough for the platform limiter to recover.
	throttleCooldown = 15 * time.Minute

	// lockTTL bounds how long a crashed process can hold a user's
	// reconciliation lease.
	lockTTL = 30 * time.Second
)

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidUser   = errors.New("invalid_user")

	// ErrLocked means another process is reconciling the same user
	// right now. Bulk runs count it as skipped.
	ErrLocked = errors.New("reconcile_in_progress")
)

// Result describes one finished per-user reconciliation.
type Result struct {
	UserID   string                 `json:"user_id"`
	Total    int64                  `json:"total"`
	Eligible *rankdomain.Definition `json:"eligible,omitempty"`
	Held     []string               `json:"held,omitempty"`
	Granted  string                 `json:"granted,omitempty"`
	Revoked  string                 `json:"revoked,omitempty"`
	InSync   bool                   `json:"in_sync"`
}

// Status is the read-only counterpart of Result.
type Status struct {
	UserID   string                 `json:"user_id"`
	Total    int64                  `json:"total"`
	Eligible *rankdomain.Definition `json:"eligible,omitempty"`
	Held     []string               `json:"held,omitempty"`
	InSync   bool                   `json:"in_sync"`
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Ledger   ledgerdomain.Service
	Ranks    rankdomain.Service
	Provider badge.Provider
	Cooldown *ratelimit.Cooldown
	Locker   *ratelimit.Locker       `optional:"true"`
	Notify   *notify.AsyncDispatcher `optional:"true"`
	Metrics  *metrics.Metrics        `optional:"true"`
}

type Reconciler struct {
	log      *zap.Logger
	ledger   ledgerdomain.Service
	ranks    rankdomain.Service
	provider badge.Provider
	cooldown *ratelimit.Cooldown
	locker   *ratelimit.Locker
	notify   *notify.AsyncDispatcher
	metrics  *metrics.Metrics
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		log:      p.Log.Named("reconcile"),
		ledger:   p.Ledger,
		ranks:    p.Ranks,
		provider: p.Provider,
		cooldown: p.Cooldown,
		locker:   p.Locker,
		notify:   p.Notify,
		metrics:  p.Metrics,
	}
}

// ReconcileUser closes the gap between the badge a user holds and the
// rank their ledger total earns. Transitions grant the new badge before
// revoking the old one, so a failure in between leaves the user with
// one badge too many rather than none; the next pass finishes the job.
func (r *Reconciler) ReconcileUser(ctx context.Context, tenantID snowflake.ID, userID string) (Result, error) {
	if tenantID == 0 {
		return Result{}, ErrInvalidTenant
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, ErrInvalidUser
	}

	if r.locker != nil {
		key := ratelimit.ReconcileLockKey(tenantID, userID)
		token, ok, err := r.locker.TryLock(ctx, key, lockTTL)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, ErrLocked
		}
		defer func() {
			_ = r.locker.Release(ctx, key, token)
		}()
	}

	defs, err := r.ranks.List(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	total, err := r.ledger.Total(ctx, tenantID, userID)
	if err != nil {
		return Result{}, err
	}

	result := Result{UserID: userID, Total: total}
	if len(defs) == 0 {
		result.InSync = true
		return result, nil
	}

	eligible, err := r.ranks.EligibleRank(ctx, tenantID, total)
	if err != nil {
		return Result{}, err
	}
	result.Eligible = eligible

	current, err := r.provider.CurrentBadges(ctx, tenantID, userID)
	if err != nil {
		return Result{}, r.classify(ctx, tenantID, userID, "", err)
	}
	held := intersect(current, defs)
	result.Held = held

	toGrant, toRevoke := transition(held, eligible)
	if toGrant == "" && toRevoke == "" {
		result.InSync = true
		return result, nil
	}

	// Both targets are pre-flighted before either mutation.
	for _, ref := range []string{toGrant, toRevoke} {
		if ref == "" {
			continue
		}
		ok, err := r.provider.HasCapability(ctx, tenantID, ref)
		if err != nil {
			return Result{}, r.classify(ctx, tenantID, userID, ref, err)
		}
		if !ok {
			return Result{}, &CapabilityError{Kind: KindPermissionDenied, BadgeRef: ref}
		}
	}

	if toGrant != "" {
		if err := r.provider.GrantBadge(ctx, tenantID, userID, toGrant); err != nil {
			return Result{}, r.classify(ctx, tenantID, userID, toGrant, err)
		}
		result.Granted = toGrant
		r.metrics.RecordReconcileAction(ctx, "grant")
		cloudmetrics.RecordReconcileAction("grant")
		r.log.Info("badge granted",
			zap.String("tenant_id", tenantID.String()),
			zap.String("user_id", userID),
			zap.String("badge_ref", toGrant),
			zap.Int64("total", total),
		)
		r.publishRankChange(ctx, tenantID, userID, total, eligible)
	}
	if toRevoke != "" {
		if err := r.provider.RevokeBadge(ctx, tenantID, userID, toRevoke); err != nil {
			// The grant above already landed; the user holds both
			// badges until the next pass retries the revoke.
			return Result{}, r.classify(ctx, tenantID, userID, toRevoke, err)
		}
		result.Revoked = toRevoke
		r.metrics.RecordReconcileAction(ctx, "revoke")
		cloudmetrics.RecordReconcileAction("revoke")
		r.log.Info("badge revoked",
			zap.String("tenant_id", tenantID.String()),
			zap.String("user_id", userID),
			zap.String("badge_ref", toRevoke),
			zap.Int64("total", total),
		)
	}
	return result, nil
}

// RankStatus reports the same diff ReconcileUser acts on, without any
// mutation or locking.
func (r *Reconciler) RankStatus(ctx context.Context, tenantID snowflake.ID, userID string) (Status, error) {
	if tenantID == 0 {
		return Status{}, ErrInvalidTenant
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, ErrInvalidUser
	}

	defs, err := r.ranks.List(ctx, tenantID)
	if err != nil {
		return Status{}, err
	}
	total, err := r.ledger.Total(ctx, tenantID, userID)
	if err != nil {
		return Status{}, err
	}

	status := Status{UserID: userID, Total: total}
	if len(defs) == 0 {
		status.InSync = true
		return status, nil
	}

	eligible, err := r.ranks.EligibleRank(ctx, tenantID, total)
	if err != nil {
		return Status{}, err
	}
	status.Eligible = eligible

	current, err := r.provider.CurrentBadges(ctx, tenantID, userID)
	if err != nil {
		return Status{}, r.classify(ctx, tenantID, userID, "", err)
	}
	status.Held = intersect(current, defs)

	toGrant, toRevoke := transition(status.Held, eligible)
	status.InSync = toGrant == "" && toRevoke == ""
	return status, nil
}

// classify maps a provider failure and parks throttled users in a
// reconciliation cooldown so bulk sweeps stop hammering the limiter.
func (r *Reconciler) classify(ctx context.Context, tenantID snowflake.ID, userID, badgeRef string, err error) error {
	classified := classifyCapability(badgeRef, err)

	var capErr *CapabilityError
	if !errors.As(classified, &capErr) {
		return classified
	}
	if capErr.Kind == KindThrottled {
		if cdErr := r.cooldown.Set(ctx, tenantID, userID, ratelimit.ScopeReconcile, throttleCooldown); cdErr != nil {
			r.log.Warn("failed to set reconcile cooldown",
				zap.String("tenant_id", tenantID.String()),
				zap.String("user_id", userID),
				zap.Error(cdErr),
			)
		}
	}
	r.log.Warn("badge capability failure",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID),
		zap.String("badge_ref", badgeRef),
		zap.String("kind", capErr.Kind),
	)
	return classified
}

func (r *Reconciler) publishRankChange(ctx context.Context, tenantID snowflake.ID, userID string, total int64, def *rankdomain.Definition) {
	if r.notify == nil || def == nil {
		return
	}
	_ = r.notify.Publish(ctx, notify.Event{
		Type:     notify.TypeRankChanged,
		TenantID: tenantID,
		UserID:   userID,
		Points:   total,
		Context: map[string]string{
			"rank":      def.Name,
			"badge_ref": def.BadgeRef,
		},
	})
}

// transition picks at most one grant and one revoke per pass. Extra
// held badges beyond the first stale one are cleaned up by later
// passes.
func transition(held []string, eligible *rankdomain.Definition) (toGrant, toRevoke string) {
	eligibleRef := ""
	if eligible != nil {
		eligibleRef = eligible.BadgeRef
	}

	holdsEligible := false
	for _, ref := range held {
		if ref == eligibleRef {
			holdsEligible = true
			continue
		}
		if toRevoke == "" {
			toRevoke = ref
		}
	}
	if eligibleRef != "" && !holdsEligible {
		toGrant = eligibleRef
	}
	return toGrant, toRevoke
}

// intersect keeps the held badges that belong to the tenant's ladder,
// preserving the provider's order.
func intersect(current []string, defs []rankdomain.Definition) []string {
	configured := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		configured[def.BadgeRef] = struct{}{}
	}

	var held []string
	for _, ref := range current {
		if _, ok := configured[ref]; ok {
			held = append(held, ref)
		}
	}
	return held
}
