// Package housekeeping runs the recurring maintenance jobs: purging
// expired quota marks, cooldowns, and reply marks, and sweeping every
// configured tenant through rank reconciliation.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	auditcontext "github.com/guildpoint/merit/internal/auditcontext"
	"github.com/guildpoint/merit/internal/authorization"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	"github.com/guildpoint/merit/internal/config"
	obsmetrics "github.com/guildpoint/merit/internal/observability/metrics"
	"github.com/guildpoint/merit/internal/ratelimit"
	"github.com/guildpoint/merit/internal/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("housekeeping: missing required dependency")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Rewards    *config.RewardsConfigHolder
	Policy     *ratelimit.AwardPolicy
	Cooldown   *ratelimit.Cooldown
	AwardRepo  awarddomain.Repository
	Reconciler *reconcile.Reconciler
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	Config     Config              `optional:"true"`
}

type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	rewards    *config.RewardsConfigHolder
	policy     *ratelimit.AwardPolicy
	cooldown   *ratelimit.Cooldown
	awardRepo  awarddomain.Repository
	reconciler *reconcile.Reconciler
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Rewards == nil || p.Policy == nil || p.Cooldown == nil || p.AwardRepo == nil || p.Reconciler == nil || p.AuthzSvc == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("housekeeping").With(zap.String("component", "housekeeping")),
		cfg:        cfg,
		genID:      p.GenID,
		clock:      p.Clock,
		rewards:    p.Rewards,
		policy:     p.Policy,
		cooldown:   p.Cooldown,
		awardRepo:  p.AwardRepo,
		reconciler: p.Reconciler,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
	}, nil
}

func (w *Worker) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := w.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "housekeeping")
	ctx, run, owner := w.ensureJobRun(ctx, name)
	if owner {
		w.logJobStart(ctx, run)
	}
	log := w.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	jobMetrics := obsmetrics.Jobs()
	jobMetrics.IncJobRun(name)

	err := fn(ctx)
	jobMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		w.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft failure: the next tick picks the work back up.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		jobMetrics.IncJobTimeout(name)
	}
	jobMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (w *Worker) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"purge_award_marks", w.isJobEnabled("purge_award_marks"), func(ctx context.Context) error {
			return w.runJob(ctx, "purge_award_marks", w.cfg.PurgeTimeout, w.PurgeAwardMarksJob)
		}},
		{"purge_cooldowns", w.isJobEnabled("purge_cooldowns"), func(ctx context.Context) error {
			return w.runJob(ctx, "purge_cooldowns", w.cfg.PurgeTimeout, w.PurgeCooldownsJob)
		}},
		{"purge_introduction_replies", w.isJobEnabled("purge_introduction_replies"), func(ctx context.Context) error {
			return w.runJob(ctx, "purge_introduction_replies", w.cfg.PurgeTimeout, w.PurgeIntroductionRepliesJob)
		}},
		{"reconcile_sweep", w.isJobEnabled("reconcile_sweep"), func(ctx context.Context) error {
			return w.runJob(ctx, "reconcile_sweep", w.cfg.SweepTimeout, w.ReconcileSweepJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := w.clock.Now().Add(w.cfg.RunInterval)
	jobMetrics := obsmetrics.Jobs()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			jobMetrics.ObserveRunLoopLag(runLag)
		}
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("housekeeping run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(w.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) isJobEnabled(jobName string) bool {
	// An empty list enables every job (monolith mode).
	if len(w.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range w.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PurgeAwardMarksJob drops quota marks that aged out of the rolling
// window. Quota counts filter by timestamp, so the cadence here only
// affects table size, never correctness.
func (w *Worker) PurgeAwardMarksJob(ctx context.Context) error {
	ctx, run, owner := w.ensureJobRun(ctx, "purge_award_marks")
	if owner {
		w.logJobStart(ctx, run)
		defer w.logJobFinish(ctx, run)
	}

	cutoff := w.clock.Now().UTC().Add(-w.policy.Window())
	deleted, err := w.policy.PurgeExpired(ctx, cutoff)
	if err != nil {
		w.logJobError(ctx, run, "housekeeping.purge.failed", "purge_award_marks", 0, err)
		return err
	}

	run.AddProcessed(int(deleted))
	obsmetrics.Jobs().AddBatchProcessed("purge_award_marks", "award_marks", int(deleted))
	return nil
}

func (w *Worker) PurgeCooldownsJob(ctx context.Context) error {
	ctx, run, owner := w.ensureJobRun(ctx, "purge_cooldowns")
	if owner {
		w.logJobStart(ctx, run)
		defer w.logJobFinish(ctx, run)
	}

	deleted, err := w.cooldown.Purge(ctx)
	if err != nil {
		w.logJobError(ctx, run, "housekeeping.purge.failed", "purge_cooldowns", 0, err)
		return err
	}

	run.AddProcessed(int(deleted))
	obsmetrics.Jobs().AddBatchProcessed("purge_cooldowns", "cooldown_marks", int(deleted))
	return nil
}

// PurgeIntroductionRepliesJob drops reply marks older than the reply
// window. The once-per-post guard survives the purge: the ledger keeps
// the introreply event row, and appends are idempotent on it.
func (w *Worker) PurgeIntroductionRepliesJob(ctx context.Context) error {
	ctx, run, owner := w.ensureJobRun(ctx, "purge_introduction_replies")
	if owner {
		w.logJobStart(ctx, run)
		defer w.logJobFinish(ctx, run)
	}

	window := time.Duration(w.rewards.Get().Introduction.ReplyWindowHours) * time.Hour
	cutoff := w.clock.Now().UTC().Add(-window)
	deleted, err := w.awardRepo.PurgeRepliesBefore(ctx, w.db, cutoff)
	if err != nil {
		w.logJobError(ctx, run, "housekeeping.purge.failed", "purge_introduction_replies", 0, err)
		return err
	}

	run.AddProcessed(int(deleted))
	obsmetrics.Jobs().AddBatchProcessed("purge_introduction_replies", "introduction_replies", int(deleted))
	return nil
}

// ReconcileSweepJob runs a bulk reconciliation for every tenant with a
// configured rank ladder. One tenant's failure never stops the sweep.
func (w *Worker) ReconcileSweepJob(ctx context.Context) error {
	ctx, run, owner := w.ensureJobRun(ctx, "reconcile_sweep")
	if owner {
		w.logJobStart(ctx, run)
		defer w.logJobFinish(ctx, run)
	}

	tenants, err := w.tenantsWithRanks(ctx)
	if err != nil {
		w.logJobError(ctx, run, "housekeeping.sweep.failed", "reconcile_sweep", 0, err)
		return err
	}
	cloudmetrics.UpdateActiveTenants(len(tenants))

	var jobErr error
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			jobErr = errors.Join(jobErr, ctx.Err())
			break
		}

		if err := w.authorizeSystem(ctx, tenantID, authorization.ObjectReconcile, authorization.ActionReconcileRunBulk); err != nil {
			jobErr = errors.Join(jobErr, err)
			w.logJobError(ctx, run, "housekeeping.authorize.failed", "reconcile_sweep", tenantID, err)
			continue
		}

		summary, err := w.reconciler.ReconcileAll(ctx, tenantID)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			w.logJobError(ctx, run, "housekeeping.sweep.failed", "reconcile_sweep", tenantID, err)
			continue
		}

		run.AddProcessed(summary.Success)
		if summary.Failures > 0 {
			w.logger(w.withLogContext(ctx, tenantID)).Warn("sweep finished with failures",
				zap.Int("examined", summary.Examined),
				zap.Int("success", summary.Success),
				zap.Int("failures", summary.Failures),
			)
		}
		if summary.Success > 0 || summary.Failures > 0 {
			w.emitAuditEvent(ctx, tenantID, "reconcile.sweep_completed", "tenant", tenantID.String(), map[string]any{
				"examined": summary.Examined,
				"success":  summary.Success,
				"skipped":  summary.Skipped,
				"failures": summary.Failures,
			})
		}
	}

	obsmetrics.Jobs().AddBatchProcessed("reconcile_sweep", "tenants", len(tenants))
	return jobErr
}

func (w *Worker) tenantsWithRanks(ctx context.Context) ([]snowflake.ID, error) {
	var raw []int64
	err := w.db.WithContext(ctx).Raw(
		`SELECT DISTINCT tenant_id FROM rank_definitions ORDER BY tenant_id`,
	).Scan(&raw).Error
	if err != nil {
		return nil, err
	}
	tenantIDs := make([]snowflake.ID, len(raw))
	for i, id := range raw {
		tenantIDs[i] = snowflake.ID(id)
	}
	return tenantIDs, nil
}

func (w *Worker) authorizeSystem(ctx context.Context, tenantID snowflake.ID, object string, action string) error {
	if w.authzSvc == nil {
		return authorization.ErrForbidden
	}
	return w.authzSvc.Authorize(ctx, "system", tenantID.String(), object, action)
}

func (w *Worker) emitAuditEvent(ctx context.Context, tenantID snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	if w.auditSvc == nil {
		return
	}
	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "housekeeping")
	_ = w.auditSvc.AuditLog(ctx, &tenantID, "", nil, action, targetType, &targetID, metadata)
}
