package server

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	auditcontext "github.com/guildpoint/merit/internal/auditcontext"
	"github.com/guildpoint/merit/internal/auth/token"
	"github.com/guildpoint/merit/pkg/tenantctx"
)

const (
	HeaderTenant     = "X-Tenant-ID"
	HeaderActingUser = "X-Acting-User"
)

// OperatorRequired authenticates the deployment operator against the
// token hash configured at boot. A deployment without an operator token
// has no admin surface at all.
func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := strings.TrimSpace(s.cfg.OperatorTokenHash)
		if hash == "" {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if !token.Verify(parts[1], hash) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAuthTypeKey, string(ActorOperator))
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "operator")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TenantContext resolves the target tenant for operator requests from
// the X-Tenant-ID header or tenant_id query, falling back to the
// deployment's default tenant.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("tenant_id"))
		}

		var tenantID snowflake.ID
		if raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed == 0 {
				AbortWithError(c, newValidationError("tenant_id", "invalid_tenant", "invalid tenant id"))
				return
			}
			tenantID = parsed
		} else if s.cfg.DefaultTenantID != 0 {
			tenantID = snowflake.ID(s.cfg.DefaultTenantID)
		}

		if tenantID == 0 {
			AbortWithError(c, ErrTenantRequired)
			return
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextTenantIDKey, int64(tenantID))
		ctx = tenantctx.WithTenantID(ctx, int64(tenantID))

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
