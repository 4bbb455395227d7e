package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestFrameworkError_Error(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrBackendFailure, "request failed")
	wrapped := Wrap(cause, ErrBackendFailure, "request failed")

	if err.Error() != "[BACKEND_FAILURE] request failed" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if wrapped.Error() != "[BACKEND_FAILURE] request failed: root cause" {
		t.Errorf("Unexpected message: %s", wrapped.Error())
	}
}

func TestFrameworkError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrBackendFailure, "request failed")

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Expected unwrap to return cause")
	}
}

func TestFrameworkError_Is(t *testing.T) {
	err := NewError(ErrNotFound, "document missing")

	if !errors.Is(err, &FrameworkError{Code: ErrNotFound}) {
		t.Error("Expected errors with the same code to match")
	}
	if errors.Is(err, &FrameworkError{Code: ErrInvalidUsage}) {
		t.Error("Expected errors with different codes to not match")
	}
}

func TestFrameworkError_WithContext(t *testing.T) {
	err := NewError(ErrInvalidUsage, "id cannot be empty")
	wrapped := err.WithContext("delete")

	if wrapped.Code != ErrInvalidUsage {
		t.Errorf("Expected code to be preserved, got %s", wrapped.Code)
	}
	if wrapped.Message != "delete: id cannot be empty" {
		t.Errorf("Unexpected message: %s", wrapped.Message)
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(nil, ErrBackendFailure, "noop") != nil {
		t.Error("Expected nil for nil cause")
	}
	if WrapWithCode(nil, ErrBackendFailure) != nil {
		t.Error("Expected nil for nil cause")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrInvalidConfig, "bad config")

	if !IsCode(err, ErrInvalidConfig) {
		t.Error("Expected IsCode to match the error's own code")
	}
	if IsCode(err, ErrNotFound) {
		t.Error("Expected IsCode to reject a different code")
	}
	if IsCode(nil, ErrNotFound) {
		t.Error("Expected IsCode to reject nil")
	}

	// Код находится через цепочку оберток
	chained := fmt.Errorf("outer: %w", Wrap(errors.New("inner"), ErrBackendFailure, "request failed"))
	if !IsCode(chained, ErrBackendFailure) {
		t.Error("Expected IsCode to walk the unwrap chain")
	}
	if IsCode(errors.New("plain"), ErrBackendFailure) {
		t.Error("Expected IsCode to reject plain errors")
	}
}

func TestNewError_CapturesStackTrace(t *testing.T) {
	err := NewError(ErrNotFound, "missing")
	if err.StackTrace == "" {
		t.Error("Expected stack trace to be captured")
	}
}
