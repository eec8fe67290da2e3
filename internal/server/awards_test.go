package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/pkg/tenantctx"
)

type fakeAwardService struct {
	lastRecord  awarddomain.RecordAwardRequest
	lastRevoke  awarddomain.RevokeAwardRequest
	lastManual  awarddomain.ManualAwardRequest
	lastApprove awarddomain.ApproveInviteRequest
	grant       awarddomain.Grant
	revocation  awarddomain.Revocation
	err         error
}

func (f *fakeAwardService) RecordAward(ctx context.Context, req awarddomain.RecordAwardRequest) (awarddomain.Grant, error) {
	f.lastRecord = req
	return f.grant, f.err
}

func (f *fakeAwardService) RevokeAward(ctx context.Context, req awarddomain.RevokeAwardRequest) (awarddomain.Revocation, error) {
	f.lastRevoke = req
	return f.revocation, f.err
}

func (f *fakeAwardService) AwardDailyBonus(ctx context.Context, req awarddomain.DailyBonusRequest) (awarddomain.Grant, error) {
	return f.grant, f.err
}

func (f *fakeAwardService) AwardIntroductionBonus(ctx context.Context, req awarddomain.IntroductionBonusRequest) (awarddomain.Grant, error) {
	return f.grant, f.err
}

func (f *fakeAwardService) AwardIntroductionReplyBonus(ctx context.Context, req awarddomain.IntroductionReplyRequest) (awarddomain.Grant, error) {
	return f.grant, f.err
}

func (f *fakeAwardService) AwardInviteReward(ctx context.Context, req awarddomain.InviteRewardRequest) (awarddomain.Grant, error) {
	return f.grant, f.err
}

func (f *fakeAwardService) ApproveInviteReward(ctx context.Context, req awarddomain.ApproveInviteRequest) (awarddomain.Grant, error) {
	f.lastApprove = req
	return f.grant, f.err
}

func (f *fakeAwardService) ManualAward(ctx context.Context, req awarddomain.ManualAwardRequest) (awarddomain.Grant, error) {
	f.lastManual = req
	return f.grant, f.err
}

// withAPIKeyAuth injects the context an authenticated API key request
// carries, without touching the database.
func withAPIKeyAuth(tenantID, keyID int64, scopes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAuthTypeKey, string(ActorAPIKey))
		ctx = context.WithValue(ctx, contextTenantIDKey, tenantID)
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, keyID)
		ctx = context.WithValue(ctx, contextAPIKeyScopesKey, scopes)
		ctx = tenantctx.WithTenantID(ctx, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newAwardTestRouter(srv *Server, tenantID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(withAPIKeyAuth(tenantID, 900, []string{"award:ingest", "award:revoke", "award:grant_manual"}))
	router.POST("/api/awards", srv.AwardIngestRateLimit(), srv.RecordAward)
	router.POST("/api/awards/revoke", srv.RevokeAward)
	router.POST("/api/awards/manual", srv.ManualAward)
	router.POST("/api/invites/rewards/approve", srv.ApproveInviteReward)
	return router
}

func TestRecordAwardHandlerReturnsGrant(t *testing.T) {
	awardSvc := &fakeAwardService{
		grant: awarddomain.Grant{Granted: true, Amount: 1, DailyUsed: 3, DailyLimit: 10},
	}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	body := `{"event_id":"evt-1","from_user_id":"alice","to_user_id":"bob","source_tag":"helpful"}`
	req := httptest.NewRequest(http.MethodPost, "/api/awards", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var grant awarddomain.Grant
	if err := json.Unmarshal(resp.Body.Bytes(), &grant); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !grant.Granted || grant.Amount != 1 {
		t.Fatalf("unexpected grant payload: %+v", grant)
	}

	if awardSvc.lastRecord.TenantID != 42 {
		t.Fatalf("expected tenant 42, got %d", awardSvc.lastRecord.TenantID)
	}
	if awardSvc.lastRecord.EventID != "evt-1" || awardSvc.lastRecord.FromUserID != "alice" || awardSvc.lastRecord.ToUserID != "bob" {
		t.Fatalf("request not passed through: %+v", awardSvc.lastRecord)
	}
}

func TestRecordAwardHandlerRejectsMalformedBody(t *testing.T) {
	awardSvc := &fakeAwardService{}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	req := httptest.NewRequest(http.MethodPost, "/api/awards", bytes.NewBufferString(`{"event_id":`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastRecord.EventID != "" {
		t.Fatal("expected award service not to be called")
	}
}

func TestRecordAwardHandlerRequiresTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &Server{awardSvc: &fakeAwardService{}}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/awards", srv.RecordAward)

	req := httptest.NewRequest(http.MethodPost, "/api/awards", bytes.NewBufferString(`{"event_id":"evt-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestRevokeAwardHandlerPassesLedgerKey(t *testing.T) {
	awardSvc := &fakeAwardService{revocation: awarddomain.Revocation{Removed: true}}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	body := `{"event_id":"evt-1","from_user_id":"alice","source_tag":"helpful"}`
	req := httptest.NewRequest(http.MethodPost, "/api/awards/revoke", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastRevoke.EventID != "evt-1" || awardSvc.lastRevoke.FromUserID != "alice" {
		t.Fatalf("revoke key not passed through: %+v", awardSvc.lastRevoke)
	}

	var revocation awarddomain.Revocation
	if err := json.Unmarshal(resp.Body.Bytes(), &revocation); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !revocation.Removed {
		t.Fatalf("unexpected revocation payload: %+v", revocation)
	}
}

func TestManualAwardHandlerAttributesActingUser(t *testing.T) {
	awardSvc := &fakeAwardService{grant: awarddomain.Grant{Granted: true, Amount: 70}}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	body := `{"to_user_id":"bob","amount":70,"reason":"event prize"}`
	req := httptest.NewRequest(http.MethodPost, "/api/awards/manual", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActingUser, "mod-7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastManual.ActorID != "mod-7" {
		t.Fatalf("expected acting user mod-7, got %q", awardSvc.lastManual.ActorID)
	}
	if awardSvc.lastManual.Amount != 70 || awardSvc.lastManual.Reason != "event prize" {
		t.Fatalf("manual award not passed through: %+v", awardSvc.lastManual)
	}
}

func TestManualAwardHandlerFallsBackToKeyActor(t *testing.T) {
	awardSvc := &fakeAwardService{grant: awarddomain.Grant{Granted: true, Amount: 5}}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	body := `{"to_user_id":"bob","amount":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/awards/manual", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastManual.ActorID != "api_key:900" {
		t.Fatalf("expected api key actor, got %q", awardSvc.lastManual.ActorID)
	}
}

func TestApproveInviteRewardHandlerSetsApprover(t *testing.T) {
	awardSvc := &fakeAwardService{grant: awarddomain.Grant{Granted: true, Amount: 10}}
	srv := &Server{awardSvc: awardSvc}
	router := newAwardTestRouter(srv, 42)

	body := `{"creator_id":"alice","joined_user_id":"carol"}`
	req := httptest.NewRequest(http.MethodPost, "/api/invites/rewards/approve", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActingUser, "admin-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastApprove.ApprovedBy != "admin-1" {
		t.Fatalf("expected approver admin-1, got %q", awardSvc.lastApprove.ApprovedBy)
	}
	if awardSvc.lastApprove.CreatorID != "alice" || awardSvc.lastApprove.JoinedUserID != "carol" {
		t.Fatalf("approve request not passed through: %+v", awardSvc.lastApprove)
	}
}

func TestAwardIngestRateLimitPassThroughWithoutRedis(t *testing.T) {
	// No limiter configured: the middleware must not get in the way.
	awardSvc := &fakeAwardService{grant: awarddomain.Grant{Granted: true, Amount: 1}}
	srv := &Server{awardSvc: awardSvc, ingestLimiter: nil}
	router := newAwardTestRouter(srv, 42)

	body := `{"event_id":"evt-9","from_user_id":"alice","to_user_id":"bob","source_tag":"helpful"}`
	req := httptest.NewRequest(http.MethodPost, "/api/awards", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if awardSvc.lastRecord.EventID != "evt-9" {
		t.Fatal("expected handler to run behind the pass-through limiter")
	}
}
