package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeValidationFormat, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodeAuthInvalidCreds, http.StatusUnauthorized},
		{ErrCodeAuthAccountNotActive, http.StatusForbidden},
		{ErrCodePermissionRole, http.StatusForbidden},
		{ErrCodeProjectLimit, http.StatusForbidden},
		{ErrCodePersonaLimit, http.StatusForbidden},
		{ErrCodeAIChatLimit, http.StatusForbidden},
		{ErrCodeDoubleDiamondLimit, http.StatusForbidden},
		{ErrCodeTeamLimit, http.StatusForbidden},
		{ErrCodeUpgradeRequired, http.StatusForbidden},
		{ErrCodeNotFoundProject, http.StatusNotFound},
		{ErrCodeConflictEmail, http.StatusConflict},
		{ErrCodePaymentDeclined, http.StatusPaymentRequired},
		{ErrCodeUpstreamStripe, http.StatusBadGateway},
		{ErrCodeUpstreamAI, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeConfigNoPlan, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	appErr := NewAppError(ErrCodeInternalDB, "failed to query plans", inner)

	if appErr.Error() != "internal_database_error: failed to query plans" {
		t.Errorf("unexpected Error(): %q", appErr.Error())
	}
	if !errors.Is(appErr, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}

	var target *AppError
	wrapped := fmt.Errorf("handler: %w", appErr)
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find AppError in chain")
	}
	if target.Code != ErrCodeInternalDB {
		t.Errorf("code = %s, want %s", target.Code, ErrCodeInternalDB)
	}
}

func TestAppError_WithDetails(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeDoubleDiamondLimit, "limit reached", nil,
		map[string]any{"currentUsage": 3})

	merged := base.WithDetails(map[string]any{"limit": 3})

	// Original must not be mutated.
	if _, ok := base.Details["limit"]; ok {
		t.Error("WithDetails mutated the original error")
	}
	if merged.Details["currentUsage"] != 3 || merged.Details["limit"] != 3 {
		t.Errorf("merged details = %v", merged.Details)
	}
}

func TestSecretString_Redaction(t *testing.T) {
	s := SecretString("sk_live_supersecret")

	if fmt.Sprintf("%v", s) != "***REDACTED***" {
		t.Errorf("String() leaked the secret: %v", fmt.Sprintf("%v", s))
	}

	b, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"***REDACTED***"` {
		t.Errorf("MarshalJSON leaked the secret: %s", b)
	}

	if s.Unmask() != "sk_live_supersecret" {
		t.Errorf("Unmask() = %q", s.Unmask())
	}
}
