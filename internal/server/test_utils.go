package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TestCleanup wipes the calling tenant's award state so integration
// suites can rerun against a live deployment. Never registered in
// production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.Environment == "production" {
		AbortWithError(c, ErrNotFound)
		return
	}

	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	tables := []string{
		"reputation_events",
		"award_marks",
		"daily_bonus_claims",
		"introduction_replies",
		"invite_rewards",
		"cooldown_marks",
		"rank_definitions",
	}

	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec(
			"DELETE FROM "+table+" WHERE tenant_id = ?", tenantID,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
