package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
)

func (s *Server) ListTenants(c *gin.Context) {
	tenants, err := s.tenantSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenants})
}

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tenant": tenant})
}

func (s *Server) GetTenant(c *gin.Context) {
	tenantID, err := parsePathSnowflakeID(c, "tenant_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tenant, err := s.tenantSvc.Get(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}

func (s *Server) UpdateTenant(c *gin.Context) {
	tenantID, err := parsePathSnowflakeID(c, "tenant_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req tenantdomain.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant, err := s.tenantSvc.Update(c.Request.Context(), tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}

func (s *Server) GetTenantSettings(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settings, err := s.tenantSvc.Settings(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *Server) UpdateTenantSettings(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req tenantdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.tenantSvc.UpdateSettings(c.Request.Context(), tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
