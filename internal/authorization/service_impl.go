package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectAward        = "award"
	ObjectLedger       = "ledger"
	ObjectRank         = "rank"
	ObjectReconcile    = "reconcile"
	ObjectInviteReward = "invite_reward"
	ObjectTenant       = "tenant"
	ObjectAPIKey       = "api_key"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionAwardIngest      = "award.ingest"
	ActionAwardGrantManual = "award.grant_manual"
	ActionAwardRevoke      = "award.revoke"
	ActionAwardView        = "award.view"

	ActionLedgerView = "ledger.view"

	ActionRankView   = "rank.view"
	ActionRankCreate = "rank.create"
	ActionRankUpdate = "rank.update"
	ActionRankDelete = "rank.delete"

	ActionReconcileRun     = "reconcile.run"
	ActionReconcileRunBulk = "reconcile.run_bulk"

	ActionInviteRewardView    = "invite_reward.view"
	ActionInviteRewardApprove = "invite_reward.approve"

	ActionTenantView           = "tenant.view"
	ActionTenantCreate         = "tenant.create"
	ActionTenantUpdate         = "tenant.update"
	ActionTenantSettingsUpdate = "tenant.settings_update"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRotate = "api_key.rotate"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, tenantID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, tenantID, object, action)
		return err
	}

	domain := fmt.Sprintf("tenant:%s", tenantID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, tenantID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actorType, actorID, tenantID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, tenantID string) (string, string, string, *string, error) {
	if actor == "system" {
		roleName := "role:system"
		return actor, roleName, "system", nil, nil
	}
	if strings.HasPrefix(actor, "api_key:") {
		// API keys carry their own scope checks; here they act with the system role.
		apiKeyIDRaw := strings.TrimPrefix(actor, "api_key:")
		apiKeyID, err := snowflake.ParseString(apiKeyIDRaw)
		if err != nil || apiKeyID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		apiKeyIDStr := apiKeyID.String()
		roleName := "role:system"
		return actor, roleName, "api_key", &apiKeyIDStr, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		parsedTenantID, err := snowflake.ParseString(tenantID)
		userIDStr := userID.String()
		if err != nil || parsedTenantID == 0 {
			return actor, "", "user", &userIDStr, ErrInvalidTenant
		}
		role, err := s.roleForUser(ctx, parsedTenantID, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
		return actor, roleName, "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, tenantID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM tenant_members
		 WHERE tenant_id = ? AND user_id = ?
		 LIMIT 1`,
		tenantID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, tenantID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedTenantID, err := snowflake.ParseString(tenantID)
	if err != nil || parsedTenantID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedTenantID, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object":    object,
		"action":    action,
		"actor":     actorType,
		"tenant_id": tenantID,
		"subject":   actorSubject(actorType, actorID),
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actorType string, actorID *string, tenantID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedTenantID, err := snowflake.ParseString(tenantID)
	if err != nil || parsedTenantID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedTenantID, actorType, actorID, "authorization.granted", "authorization", &targetID, map[string]any{
		"object":    object,
		"action":    action,
		"actor":     actorType,
		"tenant_id": tenantID,
		"subject":   actorSubject(actorType, actorID),
	})
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case "system":
		return "system"
	case "user":
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionAwardGrantManual, ActionAwardRevoke, ActionAPIKeyRotate, ActionAPIKeyRevoke, ActionReconcileRunBulk:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions (read-only)
		{"role:member", ObjectLedger, ActionLedgerView},
		{"role:member", ObjectRank, ActionRankView},

		// Moderator permissions
		{"role:moderator", ObjectLedger, ActionLedgerView},
		{"role:moderator", ObjectRank, ActionRankView},
		{"role:moderator", ObjectAward, ActionAwardView},
		{"role:moderator", ObjectInviteReward, ActionInviteRewardView},

		// Admin permissions
		{"role:admin", ObjectLedger, ActionLedgerView},
		{"role:admin", ObjectRank, ActionRankView},
		{"role:admin", ObjectRank, ActionRankCreate},
		{"role:admin", ObjectRank, ActionRankUpdate},
		{"role:admin", ObjectRank, ActionRankDelete},
		{"role:admin", ObjectAward, ActionAwardView},
		{"role:admin", ObjectAward, ActionAwardGrantManual},
		{"role:admin", ObjectAward, ActionAwardRevoke},
		{"role:admin", ObjectInviteReward, ActionInviteRewardView},
		{"role:admin", ObjectInviteReward, ActionInviteRewardApprove},
		{"role:admin", ObjectReconcile, ActionReconcileRun},
		{"role:admin", ObjectTenant, ActionTenantView},
		{"role:admin", ObjectTenant, ActionTenantUpdate},
		{"role:admin", ObjectAPIKey, ActionAPIKeyView},
		{"role:admin", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:admin", ObjectAPIKey, ActionAPIKeyRotate},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		// Owner permissions
		{"role:owner", ObjectLedger, ActionLedgerView},
		{"role:owner", ObjectRank, ActionRankView},
		{"role:owner", ObjectRank, ActionRankCreate},
		{"role:owner", ObjectRank, ActionRankUpdate},
		{"role:owner", ObjectRank, ActionRankDelete},
		{"role:owner", ObjectAward, ActionAwardView},
		{"role:owner", ObjectAward, ActionAwardGrantManual},
		{"role:owner", ObjectAward, ActionAwardRevoke},
		{"role:owner", ObjectInviteReward, ActionInviteRewardView},
		{"role:owner", ObjectInviteReward, ActionInviteRewardApprove},
		{"role:owner", ObjectReconcile, ActionReconcileRun},
		{"role:owner", ObjectReconcile, ActionReconcileRunBulk},
		{"role:owner", ObjectTenant, ActionTenantView},
		{"role:owner", ObjectTenant, ActionTenantUpdate},
		{"role:owner", ObjectTenant, ActionTenantSettingsUpdate},
		{"role:owner", ObjectAPIKey, ActionAPIKeyView},
		{"role:owner", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:owner", ObjectAPIKey, ActionAPIKeyRotate},
		{"role:owner", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},

		// System permissions (housekeeping jobs and API keys)
		{"role:system", ObjectAward, ActionAwardIngest},
		{"role:system", ObjectAward, ActionAwardView},
		{"role:system", ObjectAward, ActionAwardGrantManual},
		{"role:system", ObjectAward, ActionAwardRevoke},
		{"role:system", ObjectLedger, ActionLedgerView},
		{"role:system", ObjectRank, ActionRankView},
		{"role:system", ObjectRank, ActionRankCreate},
		{"role:system", ObjectRank, ActionRankUpdate},
		{"role:system", ObjectRank, ActionRankDelete},
		{"role:system", ObjectReconcile, ActionReconcileRun},
		{"role:system", ObjectReconcile, ActionReconcileRunBulk},
		{"role:system", ObjectInviteReward, ActionInviteRewardView},
		{"role:system", ObjectInviteReward, ActionInviteRewardApprove},
		{"role:system", ObjectTenant, ActionTenantView},
		{"role:system", ObjectTenant, ActionTenantCreate},
		{"role:system", ObjectTenant, ActionTenantUpdate},
		{"role:system", ObjectTenant, ActionTenantSettingsUpdate},
		{"role:system", ObjectAPIKey, ActionAPIKeyView},
		{"role:system", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:system", ObjectAPIKey, ActionAPIKeyRotate},
		{"role:system", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:system", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
