package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guildpoint/merit/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonTenantRate = "tenant-rate"
	rateLimitReasonGiverRate  = "giver-rate"
)

type awardIngestRateLimitKey struct {
	FromUserID string `json:"from_user_id"`
}

// AwardIngestRateLimit damps reaction floods at the transport edge
// before the domain window policy runs. The limiter is redis-backed and
// optional; without redis every request passes through.
func (s *Server) AwardIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ingestLimiter.Enabled() {
			c.Next()
			return
		}

		tenantID := tenantIDFromContext(c.Request.Context())
		if tenantID == 0 {
			AbortWithError(c, ErrTenantRequired)
			return
		}

		ctx := c.Request.Context()

		result, err := s.ingestLimiter.AllowTenant(ctx, tenantID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("award ingest tenant rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			s.denyAwardIngest(c, tenantID.String(), rateLimitReasonTenantRate, result.RetryAfter)
			return
		}

		giverID, err := readAwardIngestKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("award ingest rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		if giverID != "" {
			result, err = s.ingestLimiter.AllowGiver(ctx, tenantID.String(), giverID)
			if err != nil {
				logger.FromContext(ctx).Warn("award ingest giver rate limit check failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !result.Allowed {
				s.denyAwardIngest(c, tenantID.String(), rateLimitReasonGiverRate, result.RetryAfter)
				return
			}
		}

		c.Next()
	}
}

func (s *Server) denyAwardIngest(c *gin.Context, tenantID, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("award ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("tenant_id", tenantID),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, tenantID, reason)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func readAwardIngestKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload awardIngestRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.FromUserID), nil
}
