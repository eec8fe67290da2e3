package scope

import (
	"errors"
	"strings"

	"github.com/guildpoint/merit/internal/authorization"
)

type Scope string

var ErrInvalidScope = errors.New("invalid_scope")

const (
	ScopeAwardIngest      Scope = "award:ingest"
	ScopeAwardView        Scope = "award:view"
	ScopeAwardGrantManual Scope = "award:grant_manual"
	ScopeAwardRevoke      Scope = "award:revoke"

	ScopeLedgerView Scope = "ledger:view"

	ScopeRankView   Scope = "rank:view"
	ScopeRankCreate Scope = "rank:create"
	ScopeRankUpdate Scope = "rank:update"
	ScopeRankDelete Scope = "rank:delete"

	ScopeReconcileRun     Scope = "reconcile:run"
	ScopeReconcileRunBulk Scope = "reconcile:run_bulk"

	ScopeInviteRewardView    Scope = "invite_reward:view"
	ScopeInviteRewardApprove Scope = "invite_reward:approve"

	ScopeTenantView           Scope = "tenant:view"
	ScopeTenantUpdate         Scope = "tenant:update"
	ScopeTenantSettingsUpdate Scope = "tenant:settings_update"

	ScopeAPIKeyView   Scope = "api_key:view"
	ScopeAPIKeyCreate Scope = "api_key:create"
	ScopeAPIKeyRotate Scope = "api_key:rotate"
	ScopeAPIKeyRevoke Scope = "api_key:revoke"

	ScopeAuditLogView Scope = "audit_log:view"
)

type authzKey struct {
	object string
	action string
}

var authzScopeMap = map[authzKey]Scope{
	{normalize(authorization.ObjectAward), normalize(authorization.ActionAwardIngest)}:      ScopeAwardIngest,
	{normalize(authorization.ObjectAward), normalize(authorization.ActionAwardView)}:        ScopeAwardView,
	{normalize(authorization.ObjectAward), normalize(authorization.ActionAwardGrantManual)}: ScopeAwardGrantManual,
	{normalize(authorization.ObjectAward), normalize(authorization.ActionAwardRevoke)}:      ScopeAwardRevoke,

	{normalize(authorization.ObjectLedger), normalize(authorization.ActionLedgerView)}: ScopeLedgerView,

	{normalize(authorization.ObjectRank), normalize(authorization.ActionRankView)}:   ScopeRankView,
	{normalize(authorization.ObjectRank), normalize(authorization.ActionRankCreate)}: ScopeRankCreate,
	{normalize(authorization.ObjectRank), normalize(authorization.ActionRankUpdate)}: ScopeRankUpdate,
	{normalize(authorization.ObjectRank), normalize(authorization.ActionRankDelete)}: ScopeRankDelete,

	{normalize(authorization.ObjectReconcile), normalize(authorization.ActionReconcileRun)}:     ScopeReconcileRun,
	{normalize(authorization.ObjectReconcile), normalize(authorization.ActionReconcileRunBulk)}: ScopeReconcileRunBulk,

	{normalize(authorization.ObjectInviteReward), normalize(authorization.ActionInviteRewardView)}:    ScopeInviteRewardView,
	{normalize(authorization.ObjectInviteReward), normalize(authorization.ActionInviteRewardApprove)}: ScopeInviteRewardApprove,

	{normalize(authorization.ObjectTenant), normalize(authorization.ActionTenantView)}:           ScopeTenantView,
	{normalize(authorization.ObjectTenant), normalize(authorization.ActionTenantUpdate)}:         ScopeTenantUpdate,
	{normalize(authorization.ObjectTenant), normalize(authorization.ActionTenantSettingsUpdate)}: ScopeTenantSettingsUpdate,

	{normalize(authorization.ObjectAPIKey), normalize(authorization.ActionAPIKeyView)}:   ScopeAPIKeyView,
	{normalize(authorization.ObjectAPIKey), normalize(authorization.ActionAPIKeyCreate)}: ScopeAPIKeyCreate,
	{normalize(authorization.ObjectAPIKey), normalize(authorization.ActionAPIKeyRotate)}: ScopeAPIKeyRotate,
	{normalize(authorization.ObjectAPIKey), normalize(authorization.ActionAPIKeyRevoke)}: ScopeAPIKeyRevoke,

	{normalize(authorization.ObjectAuditLog), normalize(authorization.ActionAuditLogView)}: ScopeAuditLogView,
}

var allScopes = []Scope{
	ScopeAwardIngest,
	ScopeAwardView,
	ScopeAwardGrantManual,
	ScopeAwardRevoke,
	ScopeLedgerView,
	ScopeRankView,
	ScopeRankCreate,
	ScopeRankUpdate,
	ScopeRankDelete,
	ScopeReconcileRun,
	ScopeReconcileRunBulk,
	ScopeInviteRewardView,
	ScopeInviteRewardApprove,
	ScopeTenantView,
	ScopeTenantUpdate,
	ScopeTenantSettingsUpdate,
	ScopeAPIKeyView,
	ScopeAPIKeyCreate,
	ScopeAPIKeyRotate,
	ScopeAPIKeyRevoke,
	ScopeAuditLogView,
}

var validScopes = func() map[string]struct{} {
	lookup := make(map[string]struct{}, len(allScopes))
	for _, scope := range allScopes {
		lookup[normalize(string(scope))] = struct{}{}
	}
	return lookup
}()

func All() []string {
	values := make([]string, len(allScopes))
	for i, scope := range allScopes {
		values[i] = string(scope)
	}
	return values
}

func FromAuthz(object string, action string) Scope {
	key := authzKey{object: normalize(object), action: normalize(action)}
	if scope, ok := authzScopeMap[key]; ok {
		return scope
	}
	return ""
}

func Has(scopes []string, required Scope) bool {
	requiredScope := normalize(string(required))
	if requiredScope == "" {
		return false
	}

	requiredObject := strings.SplitN(requiredScope, ":", 2)[0]

	for _, scope := range scopes {
		normalized := normalize(scope)
		if normalized == "" {
			continue
		}
		if normalized == "*" {
			return true
		}
		if normalized == requiredScope {
			return true
		}
		if requiredObject != "" && (normalized == requiredObject+":*" || normalized == requiredObject+".*") {
			return true
		}
	}
	return false
}

// Validate accepts known scopes plus object-level wildcards like "award:*".
func Validate(scopes []string) error {
	for _, scope := range Normalize(scopes) {
		if IsValid(scope) {
			continue
		}
		if strings.HasSuffix(scope, ":*") || strings.HasSuffix(scope, ".*") {
			continue
		}
		return ErrInvalidScope
	}
	return nil
}

func Normalize(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(scopes))
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		value := normalize(scope)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

func IsValid(scope string) bool {
	_, ok := validScopes[normalize(scope)]
	return ok
}

func normalize(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(normalized, ".", ":")
}
