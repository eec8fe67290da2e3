package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
)

func (s *Server) GetUserTotal(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user", "invalid user id"))
		return
	}

	total, err := s.ledgerSvc.Total(c.Request.Context(), tenantID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "total": total})
}

func (s *Server) GetUserHistory(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user", "invalid user id"))
		return
	}

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	events, err := s.ledgerSvc.History(c.Request.Context(), ledgerdomain.HistoryRequest{
		TenantID:  tenantID,
		UserID:    userID,
		Direction: ledgerdomain.HistoryDirection(strings.TrimSpace(c.Query("direction"))),
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

// GetLeaderboard returns ranked totals plus the badge refs the tenant
// excludes from display. The engine has no badge roster of its own, so
// filtering holders of excluded badges is the adapter's call to make.
func (s *Server) GetLeaderboard(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	rows, err := s.ledgerSvc.Leaderboard(c.Request.Context(), tenantID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settings, err := s.tenantSvc.Settings(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":                rows,
		"excluded_badge_refs": []string(settings.LeaderboardExcludedBadges),
	})
}
