package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"environment unsupported", NewEnvironmentUnsupportedError("no camera here", nil), ErrorTypeEnvironmentUnsupported, http.StatusServiceUnavailable},
		{"device unavailable", NewDeviceUnavailableError("denied", nil), ErrorTypeDeviceUnavailable, http.StatusServiceUnavailable},
		{"analysis failed", NewAnalysisFailedError("status 500", nil), ErrorTypeAnalysisFailed, http.StatusBadGateway},
		{"validation", NewValidationError("bad input", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"conflict", NewConflictError("busy", nil), ErrorTypeConflict, http.StatusConflict},
		{"internal", NewInternalError("boom", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, tt.err.Type)
			}
			if GetStatusCode(tt.err) != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, GetStatusCode(tt.err))
			}
		})
	}
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAnalysisFailedError("analysis request failed", cause)

	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Expected error text to contain cause, got: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
}

func TestIsType_Wrapped(t *testing.T) {
	err := fmt.Errorf("start camera: %w", NewDeviceUnavailableError("no device", nil))

	if !IsType(err, ErrorTypeDeviceUnavailable) {
		t.Error("Expected wrapped error to match device_unavailable")
	}
	if IsType(err, ErrorTypeAnalysisFailed) {
		t.Error("Expected wrapped error not to match analysis_failed")
	}
	if IsType(errors.New("plain"), ErrorTypeInternal) {
		t.Error("Expected plain error not to match any type")
	}
}

func TestGetStatusCode_PlainError(t *testing.T) {
	if code := GetStatusCode(errors.New("plain")); code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for plain error, got %d", code)
	}
}
