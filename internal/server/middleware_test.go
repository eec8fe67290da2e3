package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guildpoint/merit/internal/auth/token"
	"github.com/guildpoint/merit/internal/config"
	"github.com/guildpoint/merit/pkg/tenantctx"
)

func newOperatorTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/admin/ping", srv.OperatorRequired(), srv.TenantContext(), func(c *gin.Context) {
		tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusOK, gin.H{"tenant_id": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID.String()})
	})
	return router
}

func TestOperatorRequiredWithoutConfiguredHash(t *testing.T) {
	srv := &Server{cfg: config.Config{}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer anything")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestOperatorRequiredRejectsWrongToken(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash}}
	router := newOperatorTestRouter(srv)

	for _, header := range []string{"", "Bearer", "Token open-sesame", "Bearer wrong-token"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected status 401, got %d (%s)", header, resp.Code, resp.Body.String())
		}
	}
}

func TestOperatorRequiredAcceptsToken(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash, DefaultTenantID: 42}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestTenantContextResolvesFromHeader(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash, DefaultTenantID: 42}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	req.Header.Set(HeaderTenant, "77")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"tenant_id":"77"}` {
		t.Fatalf("expected header tenant to win, got %s", body)
	}
}

func TestTenantContextResolvesFromQuery(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping?tenant_id=88", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"tenant_id":"88"}` {
		t.Fatalf("expected query tenant, got %s", body)
	}
}

func TestTenantContextFallsBackToDefaultTenant(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash, DefaultTenantID: 42}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"tenant_id":"42"}` {
		t.Fatalf("expected default tenant, got %s", body)
	}
}

func TestTenantContextRejectsGarbageTenant(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	req.Header.Set(HeaderTenant, "not-a-number")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestTenantContextRequiresSomeTenant(t *testing.T) {
	hash, err := token.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv := &Server{cfg: config.Config{OperatorTokenHash: hash}}
	router := newOperatorTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer open-sesame")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", resp.Code, resp.Body.String())
	}
}
