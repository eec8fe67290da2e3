package server

import (
	"errors"
	"net/http"
	"testing"

	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/internal/authorization"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	"github.com/guildpoint/merit/internal/reconcile"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"gorm.io/gorm"
)

func TestMapErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal_error"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"policy denied", authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"invalid event", awarddomain.ErrInvalidEvent, http.StatusBadRequest, "validation_error"},
		{"tenant required", ErrTenantRequired, http.StatusBadRequest, "validation_error"},
		{"threshold taken", rankdomain.ErrThresholdTaken, http.StatusConflict, "conflict"},
		{"tenant missing", tenantdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"record missing", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"reconcile locked", reconcile.ErrLocked, http.StatusConflict, "reconcile_in_progress"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			if status != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", status, tt.wantStatus)
			}
			if payload.Type != tt.wantType {
				t.Fatalf("type: got %q, want %q", payload.Type, tt.wantType)
			}
		})
	}
}

func TestMapErrorBadgeCapability(t *testing.T) {
	throttled := &reconcile.CapabilityError{Kind: reconcile.KindThrottled, BadgeRef: "bronze"}
	status, payload := mapError(throttled)
	if status != http.StatusServiceUnavailable || payload.Type != "badge_throttled" {
		t.Fatalf("throttled: got %d/%s", status, payload.Type)
	}

	denied := &reconcile.CapabilityError{Kind: reconcile.KindPermissionDenied, BadgeRef: "gold"}
	status, payload = mapError(denied)
	if status != http.StatusBadGateway || payload.Type != "badge_capability" {
		t.Fatalf("denied: got %d/%s", status, payload.Type)
	}
}

func TestMapErrorValidationPayload(t *testing.T) {
	status, payload := mapError(awarddomain.ErrInvalidEvent)
	if status != http.StatusBadRequest {
		t.Fatalf("status: got %d", status)
	}
	if len(payload.Errors) != 1 {
		t.Fatalf("expected one field error, got %d", len(payload.Errors))
	}
	if payload.Errors[0].Code != "invalid_event" {
		t.Fatalf("code: got %q", payload.Errors[0].Code)
	}
}

func TestMapErrorKeepsWrappedSentinels(t *testing.T) {
	wrapped := errors.Join(errors.New("lookup rank"), rankdomain.ErrNotFound)
	status, payload := mapError(wrapped)
	if status != http.StatusNotFound || payload.Type != "not_found" {
		t.Fatalf("wrapped sentinel lost: got %d/%s", status, payload.Type)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(awarddomain.ErrInvalidEvent)
	if errType != "validation_error" || code != "invalid_event" {
		t.Fatalf("got %s/%s", errType, code)
	}

	errType, code = classifyErrorForLog(reconcile.ErrLocked)
	if errType != "reconcile_in_progress" || code != "reconcile_in_progress" {
		t.Fatalf("got %s/%s", errType, code)
	}
}
