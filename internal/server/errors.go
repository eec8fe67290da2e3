package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/guildpoint/merit/internal/apikey/domain"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	authscope "github.com/guildpoint/merit/internal/auth/scope"
	"github.com/guildpoint/merit/internal/authorization"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	rankdomain "github.com/guildpoint/merit/internal/rank/domain"
	"github.com/guildpoint/merit/internal/reconcile"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTenantRequired     = errors.New("tenant_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			cloudmetrics.RecordEngineError(payload.Type)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var capErr *reconcile.CapabilityError
	if errors.As(err, &capErr) {
		if capErr.Retryable() {
			return http.StatusServiceUnavailable, errorPayload{
				Type:    "badge_throttled",
				Message: "badge platform throttled the bot",
			}
		}
		return http.StatusBadGateway, errorPayload{
			Type:    "badge_capability",
			Message: capErr.Error(),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, rankdomain.ErrThresholdTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, reconcile.ErrLocked):
		return http.StatusConflict, errorPayload{
			Type:    "reconcile_in_progress",
			Message: "reconciliation already running for this user",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "rate limit exceeded",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same taxonomy the
// response mapper uses, so log lines and payloads never disagree.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if vErr := asValidationErrors(err); vErr != nil && len(vErr.Errors) > 0 {
		code = vErr.Errors[0].Code
	} else if isValidationError(err) {
		code = validationErrorCode(err)
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrTenantRequired):
		return true
	case isAwardValidationError(err),
		isLedgerValidationError(err),
		isRankValidationError(err),
		isTenantValidationError(err),
		isAPIKeyValidationError(err),
		isAuditValidationError(err),
		isReconcileValidationError(err):
		return true
	case errors.Is(err, authscope.ErrInvalidScope),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidTenant),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isAwardValidationError(err error) bool {
	return errors.Is(err, awarddomain.ErrInvalidTenant) ||
		errors.Is(err, awarddomain.ErrInvalidEvent) ||
		errors.Is(err, awarddomain.ErrInvalidUser) ||
		errors.Is(err, awarddomain.ErrInvalidChannel) ||
		errors.Is(err, awarddomain.ErrInvalidPost) ||
		errors.Is(err, awarddomain.ErrInvalidAmount)
}

func isLedgerValidationError(err error) bool {
	return errors.Is(err, ledgerdomain.ErrInvalidTenant) ||
		errors.Is(err, ledgerdomain.ErrInvalidEventID) ||
		errors.Is(err, ledgerdomain.ErrInvalidUser) ||
		errors.Is(err, ledgerdomain.ErrInvalidSourceTag) ||
		errors.Is(err, ledgerdomain.ErrInvalidAmount) ||
		errors.Is(err, ledgerdomain.ErrInvalidDirection)
}

func isRankValidationError(err error) bool {
	return errors.Is(err, rankdomain.ErrInvalidTenant) ||
		errors.Is(err, rankdomain.ErrInvalidDefinition) ||
		errors.Is(err, rankdomain.ErrInvalidName) ||
		errors.Is(err, rankdomain.ErrInvalidThreshold) ||
		errors.Is(err, rankdomain.ErrInvalidBadgeRef)
}

func isTenantValidationError(err error) bool {
	return errors.Is(err, tenantdomain.ErrInvalidTenant) ||
		errors.Is(err, tenantdomain.ErrInvalidName) ||
		errors.Is(err, tenantdomain.ErrInvalidUser) ||
		errors.Is(err, tenantdomain.ErrInvalidRole) ||
		errors.Is(err, tenantdomain.ErrInvalidTimezone) ||
		errors.Is(err, tenantdomain.ErrInvalidInviteRewardMode)
}

func isAPIKeyValidationError(err error) bool {
	return errors.Is(err, apikeydomain.ErrInvalidTenant) ||
		errors.Is(err, apikeydomain.ErrInvalidName) ||
		errors.Is(err, apikeydomain.ErrInvalidKeyID)
}

func isAuditValidationError(err error) bool {
	return errors.Is(err, auditdomain.ErrInvalidTenant) ||
		errors.Is(err, auditdomain.ErrInvalidPageToken) ||
		errors.Is(err, auditdomain.ErrInvalidTimeRange) ||
		errors.Is(err, auditdomain.ErrInvalidAction)
}

func isReconcileValidationError(err error) bool {
	return errors.Is(err, reconcile.ErrInvalidTenant) ||
		errors.Is(err, reconcile.ErrInvalidUser)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, rankdomain.ErrNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrTenantRequired):
		return "tenant_required"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "tenant_required" {
		return "tenant_id"
	}
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "tenant_required":
		return "tenant id is required"
	default:
		return "invalid value"
	}
}
