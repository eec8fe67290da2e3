package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
)

func (s *Server) ListRanks(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	defs, err := s.rankSvc.List(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": defs})
}

func (s *Server) CreateRank(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req rankdomain.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	def, err := s.rankSvc.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rank": def})
}

func (s *Server) UpdateRank(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rankID, err := parsePathSnowflakeID(c, "rank_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req rankdomain.UpdateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	def, err := s.rankSvc.Update(c.Request.Context(), tenantID, rankID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rank": def})
}

func (s *Server) DeleteRank(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rankID, err := parsePathSnowflakeID(c, "rank_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.rankSvc.Delete(c.Request.Context(), tenantID, rankID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
