package cache

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
)

func TestAwardResolverCacheSettings(t *testing.T) {
	c := NewAwardResolverCache()
	tenantID := snowflake.ID(101)

	_, ok := c.GetSettings(tenantID)
	assert.False(t, ok)

	c.SetSettings(tenantID, tenantdomain.Settings{
		TenantID:              tenantID,
		IntroductionChannelID: "chan-1",
	})

	got, ok := c.GetSettings(tenantID)
	assert.True(t, ok)
	assert.Equal(t, "chan-1", got.IntroductionChannelID)

	c.InvalidateSettings(tenantID)
	_, ok = c.GetSettings(tenantID)
	assert.False(t, ok)
}

func TestAwardResolverCacheIgnoresZeroTenant(t *testing.T) {
	c := NewAwardResolverCache()

	c.SetSettings(snowflake.ID(0), tenantdomain.Settings{})
	_, ok := c.GetSettings(snowflake.ID(0))
	assert.False(t, ok)
}

func TestAwardResolverCacheRankDefinitions(t *testing.T) {
	c := NewAwardResolverCache()
	tenantID := snowflake.ID(101)

	// An empty ladder is a cacheable result.
	c.SetRankDefinitions(tenantID, []rankdomain.Definition{})
	defs, ok := c.GetRankDefinitions(tenantID)
	assert.True(t, ok)
	assert.Empty(t, defs)

	c.SetRankDefinitions(tenantID, []rankdomain.Definition{
		{TenantID: tenantID, Name: "Regular", RequiredPoints: 25},
	})
	defs, ok = c.GetRankDefinitions(tenantID)
	assert.True(t, ok)
	assert.Len(t, defs, 1)

	c.InvalidateRankDefinitions(tenantID)
	_, ok = c.GetRankDefinitions(tenantID)
	assert.False(t, ok)
}
