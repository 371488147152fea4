package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindClientInput, http.StatusBadRequest},
		{KindEmptyInput, http.StatusBadRequest},
		{KindSchemaMismatch, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUpstream, http.StatusBadGateway},
		{KindUpstreamUnavailable, http.StatusGatewayTimeout},
		{KindUpstreamContractViolation, http.StatusBadGateway},
		{KindPersistence, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusOverride(t *testing.T) {
	err := &Error{Kind: KindUpstream, Message: "model file missing", Status: http.StatusNotFound}
	if err.HTTPStatus() != http.StatusNotFound {
		t.Errorf("Expected override status 404, got %d", err.HTTPStatus())
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("model not found")
	wrapped := fmt.Errorf("load model: %w", base)

	if KindOf(wrapped) != KindNotFound {
		t.Errorf("Expected not_found, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("Is should match the wrapped kind")
	}
	if Is(wrapped, KindConflict) {
		t.Error("Is should not match a different kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("Plain errors should classify as internal")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("failed to save predictions", cause)

	if !errors.Is(err, cause) {
		t.Error("Cause should be reachable through errors.Is")
	}
	if err.Error() != "failed to save predictions: connection reset" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
