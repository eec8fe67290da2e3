package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/guildpoint/merit/internal/apikey"
	apikeydomain "github.com/guildpoint/merit/internal/apikey/domain"
	"github.com/guildpoint/merit/internal/audit"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	"github.com/guildpoint/merit/internal/authorization"
	"github.com/guildpoint/merit/internal/award"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	"github.com/guildpoint/merit/internal/config"
	"github.com/guildpoint/merit/internal/ledger"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	"github.com/guildpoint/merit/internal/notify"
	"github.com/guildpoint/merit/internal/observability"
	obsmiddleware "github.com/guildpoint/merit/internal/observability/logger"
	obsmetrics "github.com/guildpoint/merit/internal/observability/metrics"
	obstracing "github.com/guildpoint/merit/internal/observability/tracing"
	"github.com/guildpoint/merit/internal/providers"
	"github.com/guildpoint/merit/internal/rank"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	"github.com/guildpoint/merit/internal/ratelimit"
	"github.com/guildpoint/merit/internal/reconcile"
	"github.com/guildpoint/merit/internal/tenant"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	cloudmetrics.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	apikey.Module,
	cache.Module,
	tenant.Module,
	ledger.Module,
	rank.Module,
	award.Module,
	ratelimit.Module,
	providers.Module,
	notify.Module,
	reconcile.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	apiKeySvc     apikeydomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	tenantSvc     tenantdomain.Service
	ledgerSvc     ledgerdomain.Service
	rankSvc       rankdomain.Service
	awardSvc      awarddomain.Service
	reconciler    *reconcile.Reconciler
	ingestLimiter *ratelimit.AwardIngestLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	APIKeySvc  apikeydomain.Service
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	TenantSvc  tenantdomain.Service
	LedgerSvc  ledgerdomain.Service
	RankSvc    rankdomain.Service
	AwardSvc   awarddomain.Service
	Reconciler *reconcile.Reconciler

	IngestLimiter *ratelimit.AwardIngestLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics           `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		apiKeySvc:     p.APIKeySvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		tenantSvc:     p.TenantSvc,
		ledgerSvc:     p.LedgerSvc,
		rankSvc:       p.RankSvc,
		awardSvc:      p.AwardSvc,
		reconciler:    p.Reconciler,
		ingestLimiter: p.IngestLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerAPIRoutes wires the adapter surface. Every route is
// authenticated by API key; admin-grade operations additionally pass
// through the scope gate and, when the adapter relays a chat user, the
// tenant role policy.
func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Award ingest --------
	api.POST("/awards", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardIngest), s.AwardIngestRateLimit(), s.RecordAward)
	api.POST("/awards/revoke", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardRevoke), s.RevokeAward)
	api.POST("/awards/manual", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardGrantManual), s.ManualAward)

	// -------- Bonuses --------
	api.POST("/bonuses/daily", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardIngest), s.AwardDailyBonus)
	api.POST("/bonuses/introduction", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardIngest), s.AwardIntroductionBonus)
	api.POST("/bonuses/introduction/reply", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardIngest), s.AwardIntroductionReplyBonus)

	// -------- Invite rewards --------
	api.POST("/invites/rewards", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardIngest), s.AwardInviteReward)
	api.POST("/invites/rewards/approve", s.authorizeTenantAction(authorization.ObjectInviteReward, authorization.ActionInviteRewardApprove), s.ApproveInviteReward)

	// -------- Reputation queries --------
	api.GET("/users/:user_id/total", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetUserTotal)
	api.GET("/users/:user_id/history", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetUserHistory)
	api.GET("/leaderboard", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetLeaderboard)

	// -------- Ranks --------
	api.GET("/ranks", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankView), s.ListRanks)
	api.POST("/ranks", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankCreate), s.CreateRank)
	api.PATCH("/ranks/:rank_id", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankUpdate), s.UpdateRank)
	api.DELETE("/ranks/:rank_id", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankDelete), s.DeleteRank)

	// -------- Badge reconciliation --------
	api.GET("/users/:user_id/rank", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankView), s.GetRankStatus)
	api.POST("/users/:user_id/reconcile", s.authorizeTenantAction(authorization.ObjectReconcile, authorization.ActionReconcileRun), s.ReconcileUser)
	api.POST("/reconcile", s.authorizeTenantAction(authorization.ObjectReconcile, authorization.ActionReconcileRunBulk), s.ReconcileAll)

	// -------- Tenant settings --------
	api.GET("/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.GetTenantSettings)
	api.PUT("/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantSettingsUpdate), s.UpdateTenantSettings)

	if s.cfg.Environment != "production" {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

// registerAdminRoutes wires the operator surface. Shared handlers,
// different gates: the operator token authenticates, the target tenant
// comes from the request, and the policy engine checks the system role.
func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.OperatorRequired())
	admin.Use(s.TenantContext())

	// -------- Tenants --------
	admin.GET("/tenants", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.ListTenants)
	admin.POST("/tenants", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantCreate), s.CreateTenant)
	admin.GET("/tenants/:tenant_id", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.GetTenant)
	admin.PATCH("/tenants/:tenant_id", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantUpdate), s.UpdateTenant)
	admin.GET("/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.GetTenantSettings)
	admin.PUT("/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantSettingsUpdate), s.UpdateTenantSettings)

	// -------- Awards --------
	admin.POST("/awards/manual", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardGrantManual), s.ManualAward)
	admin.POST("/awards/revoke", s.authorizeTenantAction(authorization.ObjectAward, authorization.ActionAwardRevoke), s.RevokeAward)
	admin.POST("/invites/rewards/approve", s.authorizeTenantAction(authorization.ObjectInviteReward, authorization.ActionInviteRewardApprove), s.ApproveInviteReward)

	// -------- Reputation queries --------
	admin.GET("/users/:user_id/total", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetUserTotal)
	admin.GET("/users/:user_id/history", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetUserHistory)
	admin.GET("/leaderboard", s.authorizeTenantAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetLeaderboard)

	// -------- Ranks --------
	admin.GET("/ranks", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankView), s.ListRanks)
	admin.POST("/ranks", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankCreate), s.CreateRank)
	admin.PATCH("/ranks/:rank_id", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankUpdate), s.UpdateRank)
	admin.DELETE("/ranks/:rank_id", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankDelete), s.DeleteRank)

	// -------- Badge reconciliation --------
	admin.GET("/users/:user_id/rank", s.authorizeTenantAction(authorization.ObjectRank, authorization.ActionRankView), s.GetRankStatus)
	admin.POST("/users/:user_id/reconcile", s.authorizeTenantAction(authorization.ObjectReconcile, authorization.ActionReconcileRun), s.ReconcileUser)
	admin.POST("/reconcile", s.authorizeTenantAction(authorization.ObjectReconcile, authorization.ActionReconcileRunBulk), s.ReconcileAll)

	// -------- API keys --------
	admin.GET("/api-keys", s.authorizeTenantAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
	admin.GET("/api-keys/scopes", s.authorizeTenantAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeyScopes)
	admin.POST("/api-keys", s.authorizeTenantAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	admin.POST("/api-keys/:key_id/rotate", s.authorizeTenantAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRotate), s.RotateAPIKey)
	admin.DELETE("/api-keys/:key_id", s.authorizeTenantAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)

	// -------- Audit --------
	admin.GET("/audit-logs", s.authorizeTenantAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
