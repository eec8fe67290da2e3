package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guildpoint/merit/internal/authorization"
	"github.com/guildpoint/merit/pkg/tenantctx"
)

type fakeAuthzService struct {
	calls      int
	lastActor  string
	lastTenant string
	lastObject string
	lastAction string
	err        error
}

func (f *fakeAuthzService) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	f.calls++
	f.lastActor = actor
	f.lastTenant = tenantID
	f.lastObject = object
	f.lastAction = action
	return f.err
}

func withOperatorAuth(tenantID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAuthTypeKey, string(ActorOperator))
		ctx = context.WithValue(ctx, contextTenantIDKey, tenantID)
		ctx = tenantctx.WithTenantID(ctx, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newAuthzTestRouter(srv *Server, seed gin.HandlerFunc, object string, action string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	if seed != nil {
		router.Use(seed)
	}
	router.GET("/guarded", srv.authorizeTenantAction(object, action), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestAuthorizeTenantActionRejectsUnauthenticated(t *testing.T) {
	srv := &Server{}
	router := newAuthzTestRouter(srv, nil, authorization.ObjectLedger, authorization.ActionLedgerView)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestAuthorizeTenantActionDeniesMissingScope(t *testing.T) {
	authzSvc := &fakeAuthzService{}
	srv := &Server{authzSvc: authzSvc}
	seed := withAPIKeyAuth(42, 900, []string{"award:ingest"})
	router := newAuthzTestRouter(srv, seed, authorization.ObjectAward, authorization.ActionAwardGrantManual)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d (%s)", resp.Code, resp.Body.String())
	}
	if authzSvc.calls != 0 {
		t.Fatal("scope denial must not reach the policy engine")
	}
}

func TestAuthorizeTenantActionAllowsMatchingScope(t *testing.T) {
	authzSvc := &fakeAuthzService{}
	srv := &Server{authzSvc: authzSvc}
	seed := withAPIKeyAuth(42, 900, []string{"award:ingest"})
	router := newAuthzTestRouter(srv, seed, authorization.ObjectAward, authorization.ActionAwardIngest)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if authzSvc.calls != 0 {
		t.Fatal("plain key requests are scope-gated only")
	}
}

func TestAuthorizeTenantActionAllowsWildcardScope(t *testing.T) {
	srv := &Server{}
	seed := withAPIKeyAuth(42, 900, []string{"award:*"})
	router := newAuthzTestRouter(srv, seed, authorization.ObjectAward, authorization.ActionAwardRevoke)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestAuthorizeTenantActionChecksActingUserRole(t *testing.T) {
	authzSvc := &fakeAuthzService{}
	srv := &Server{authzSvc: authzSvc}
	seed := withAPIKeyAuth(42, 900, []string{"award:grant_manual"})
	router := newAuthzTestRouter(srv, seed, authorization.ObjectAward, authorization.ActionAwardGrantManual)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(HeaderActingUser, "mod-7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if authzSvc.calls != 1 {
		t.Fatalf("expected one policy check, got %d", authzSvc.calls)
	}
	if authzSvc.lastActor != "user:mod-7" {
		t.Fatalf("expected subject user:mod-7, got %q", authzSvc.lastActor)
	}
	if authzSvc.lastTenant != "42" {
		t.Fatalf("expected tenant 42, got %q", authzSvc.lastTenant)
	}
	if authzSvc.lastObject != authorization.ObjectAward || authzSvc.lastAction != authorization.ActionAwardGrantManual {
		t.Fatalf("unexpected policy check: %s/%s", authzSvc.lastObject, authzSvc.lastAction)
	}
}

func TestAuthorizeTenantActionDeniesActingUserWithoutRole(t *testing.T) {
	authzSvc := &fakeAuthzService{err: authorization.ErrForbidden}
	srv := &Server{authzSvc: authzSvc}
	seed := withAPIKeyAuth(42, 900, []string{"award:grant_manual"})
	router := newAuthzTestRouter(srv, seed, authorization.ObjectAward, authorization.ActionAwardGrantManual)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(HeaderActingUser, "stranger")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestAuthorizeTenantActionOperatorUsesSystemSubject(t *testing.T) {
	authzSvc := &fakeAuthzService{}
	srv := &Server{authzSvc: authzSvc}
	router := newAuthzTestRouter(srv, withOperatorAuth(42), authorization.ObjectTenant, authorization.ActionTenantSettingsUpdate)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if authzSvc.lastActor != "system" {
		t.Fatalf("expected system subject, got %q", authzSvc.lastActor)
	}
}
