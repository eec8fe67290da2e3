package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetRankStatus(c *gin.Context) {
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

	status, err := s.reconciler.RankStatus(c.Request.Context(), tenantID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) ReconcileUser(c *gin.Context) {
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

	result, err := s.reconciler.ReconcileUser(c.Request.Context(), tenantID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ReconcileAll(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.reconciler.ReconcileAll(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
