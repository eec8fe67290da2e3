package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
)

const (
	defaultSettingsTTL    = 45 * time.Second
	defaultDefinitionsTTL = 5 * time.Minute
)

// AwardResolverCache stores hot-path resolver lookups for award ingest and
// rank resolution. Writers invalidate their tenant's entries.
type AwardResolverCache interface {
	GetSettings(tenantID snowflake.ID) (tenantdomain.Settings, bool)
	SetSettings(tenantID snowflake.ID, settings tenantdomain.Settings)
	InvalidateSettings(tenantID snowflake.ID)
	GetRankDefinitions(tenantID snowflake.ID) ([]rankdomain.Definition, bool)
	SetRankDefinitions(tenantID snowflake.ID, defs []rankdomain.Definition)
	InvalidateRankDefinitions(tenantID snowflake.ID)
}

type awardResolverCache struct {
	settings    Cache[snowflake.ID, tenantdomain.Settings]
	definitions Cache[snowflake.ID, []rankdomain.Definition]
	settingsTTL time.Duration
	defsTTL     time.Duration
}

// NewAwardResolverCache returns an in-memory cache tuned for award ingest.
func NewAwardResolverCache() AwardResolverCache {
	return &awardResolverCache{
		settings:    NewTTLCache[snowflake.ID, tenantdomain.Settings](),
		definitions: NewTTLCache[snowflake.ID, []rankdomain.Definition](),
		settingsTTL: defaultSettingsTTL,
		defsTTL:     defaultDefinitionsTTL,
	}
}

func (c *awardResolverCache) GetSettings(tenantID snowflake.ID) (tenantdomain.Settings, bool) {
	return c.settings.Get(tenantID)
}

func (c *awardResolverCache) SetSettings(tenantID snowflake.ID, settings tenantdomain.Settings) {
	if settings.TenantID == 0 {
		return
	}
	c.settings.Set(tenantID, settings, c.settingsTTL)
}

func (c *awardResolverCache) InvalidateSettings(tenantID snowflake.ID) {
	c.settings.Delete(tenantID)
}

func (c *awardResolverCache) GetRankDefinitions(tenantID snowflake.ID) ([]rankdomain.Definition, bool) {
	return c.definitions.Get(tenantID)
}

func (c *awardResolverCache) SetRankDefinitions(tenantID snowflake.ID, defs []rankdomain.Definition) {
	if tenantID == 0 {
		return
	}
	c.definitions.Set(tenantID, defs, c.defsTTL)
}

func (c *awardResolverCache) InvalidateRankDefinitions(tenantID snowflake.ID) {
	c.definitions.Delete(tenantID)
}
