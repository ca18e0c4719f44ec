package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
//
// Limit codes are uppercase tokens because clients (and the upgrade dialogs
// in the dashboard) match on them verbatim.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON  ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidEmail ErrorCode = "validation_invalid_email"
	ErrCodeValidationInvalidPlan  ErrorCode = "validation_invalid_plan"
	ErrCodeValidationInvalidAddon ErrorCode = "validation_invalid_addon"
	ErrCodeValidationFormat       ErrorCode = "validation_invalid_export_format"

	// Auth (401)
	ErrCodeAuthTokenMissing     ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid     ErrorCode = "auth_token_invalid"
	ErrCodeAuthSessionExpired   ErrorCode = "auth_session_expired"
	ErrCodeAuthInvalidCreds     ErrorCode = "auth_invalid_credentials"
	ErrCodeAuthUserNotFound     ErrorCode = "auth_user_not_found"
	ErrCodeAuthAccountNotActive ErrorCode = "auth_account_not_active"

	// Permission (403)
	ErrCodePermissionRole  ErrorCode = "permission_role_insufficient"
	ErrCodePermissionOwner ErrorCode = "permission_not_resource_owner"

	// Limit gates (403). Stable machine tokens; the dashboard matches these.
	ErrCodeProjectLimit       ErrorCode = "PROJECT_LIMIT_REACHED"
	ErrCodePersonaLimit       ErrorCode = "PERSONA_LIMIT_REACHED"
	ErrCodeAIChatLimit        ErrorCode = "AI_CHAT_LIMIT_REACHED"
	ErrCodeDoubleDiamondLimit ErrorCode = "DOUBLE_DIAMOND_LIMIT_REACHED"
	ErrCodeTeamLimit          ErrorCode = "TEAM_MEMBER_LIMIT_REACHED"
	ErrCodeUpgradeRequired    ErrorCode = "upgrade_required"

	// Not Found (404)
	ErrCodeNotFoundUser    ErrorCode = "not_found_user"
	ErrCodeNotFoundPlan    ErrorCode = "not_found_plan"
	ErrCodeNotFoundProject ErrorCode = "not_found_project"
	ErrCodeNotFoundPersona ErrorCode = "not_found_persona"
	ErrCodeNotFoundInvite  ErrorCode = "not_found_invite"

	// Conflict (409)
	ErrCodeConflictEmail  ErrorCode = "conflict_email_exists"
	ErrCodeConflictPlan   ErrorCode = "conflict_plan_exists"
	ErrCodeConflictInvite ErrorCode = "conflict_invite_pending"

	// Configuration fault (500): no plan resolvable at all, neither the
	// active subscription's plan nor the free plan. Gates fail closed on it.
	ErrCodeConfigNoPlan ErrorCode = "internal_no_plan_configured"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamStripe     ErrorCode = "upstream_stripe_unavailable"
	ErrCodeUpstreamAI         ErrorCode = "upstream_ai_unavailable"
	ErrCodeUpstreamKV         ErrorCode = "upstream_counter_store_unavailable"
	ErrCodeUpstreamUnavail    ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimit  ErrorCode = "upstream_rate_limited"

	// Payment-specific
	ErrCodePaymentDeclined ErrorCode = "payment_declined"
)

// limitCodes maps the uppercase limit-gate tokens to 403. They do not follow
// the lowercase prefix convention, so HTTPStatus special-cases them.
var limitCodes = map[ErrorCode]bool{
	ErrCodeProjectLimit:       true,
	ErrCodePersonaLimit:       true,
	ErrCodeAIChatLimit:        true,
	ErrCodeDoubleDiamondLimit: true,
	ErrCodeTeamLimit:          true,
	ErrCodeUpgradeRequired:    true,
}

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	if limitCodes[c] {
		return http.StatusForbidden // 403
	}

	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeAuthAccountNotActive):
		return http.StatusForbidden // 403
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden // 403
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case s == string(ErrCodePaymentDeclined):
		return http.StatusPaymentRequired // 402
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the platform.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
