package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/guildpoint/merit/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyAwardIngestTenant = "award:ingest:tenant:%s"
	keyAwardIngestGiver  = "award:ingest:giver:%s:%s"
)

// AwardIngestLimiter damps transport-level abuse at the HTTP ingest edge:
// one bucket per tenant and one per giver. It is distinct from the domain
// window policy, which stays authoritative regardless of this limiter.
type AwardIngestLimiter struct {
	bucket  *TokenBucket
	rewards *config.RewardsConfigHolder
}

// NewAwardIngestLimiter returns nil when redis is not configured; callers
// treat a nil limiter as pass-through.
func NewAwardIngestLimiter(client *redis.Client, rewards *config.RewardsConfigHolder) *AwardIngestLimiter {
	if client == nil {
		return nil
	}
	return &AwardIngestLimiter{
		bucket:  NewTokenBucket(client),
		rewards: rewards,
	}
}

func (l *AwardIngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowTenant checks the tenant-wide ingest bucket.
func (l *AwardIngestLimiter) AllowTenant(ctx context.Context, tenantID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	cfg := l.rewards.Get().Ingest
	if cfg.RatePerSecond <= 0 || cfg.Burst <= 0 {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyAwardIngestTenant, strings.TrimSpace(tenantID))
	return l.bucket.Allow(ctx, key, cfg.RatePerSecond, cfg.Burst)
}

// AllowGiver checks the per-giver ingest bucket.
func (l *AwardIngestLimiter) AllowGiver(ctx context.Context, tenantID, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	cfg := l.rewards.Get().Ingest
	if cfg.GiverRatePerSecond <= 0 || cfg.GiverBurst <= 0 {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyAwardIngestGiver, strings.TrimSpace(tenantID), strings.TrimSpace(userID))
	return l.bucket.Allow(ctx, key, cfg.GiverRatePerSecond, cfg.GiverBurst)
}
