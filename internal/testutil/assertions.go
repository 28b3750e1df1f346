package testutil

import (
	"errors"
	"testing"

	apperrors "homeserve/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code
// and returns it for further checks.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertFieldError checks that err is an INVALID_INPUT error whose details
// name field.
func AssertFieldError(t *testing.T, err error, field string) {
	t.Helper()

	appErr := AssertAppError(t, err, apperrors.ErrInvalidInput.Code)
	for _, d := range appErr.Details {
		if d.Field == field {
			return
		}
	}
	t.Errorf("expected a field error on %q, got %+v", field, appErr.Details)
}

// AssertRetryAfter checks that err is a RATE_LIMITED error asking the caller
// to wait the given number of seconds.
func AssertRetryAfter(t *testing.T, err error, seconds int) {
	t.Helper()

	appErr := AssertAppError(t, err, apperrors.ErrRateLimited.Code)
	if appErr.RetryAfter != seconds {
		t.Errorf("expected retry after %ds, got %ds", seconds, appErr.RetryAfter)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
