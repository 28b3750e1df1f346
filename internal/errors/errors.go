// Package errors provides custom error types for the homeserve API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
	StatusCode int          `json:"-"`
	// RetryAfter is the number of seconds a rate-limited caller should wait.
	RetryAfter int   `json:"-"`
	Internal   error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so sentinels
// survive Wrap and WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) clone() *AppError {
	c := *e
	return &c
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	c := sentinel.clone()
	c.Internal = internal
	return c
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	c := sentinel.clone()
	c.Message = message
	return c
}

// WithDetails attaches field-level validation failures.
func WithDetails(sentinel *AppError, details []FieldError) *AppError {
	c := sentinel.clone()
	c.Details = details
	return c
}

// WithRetryAfter attaches a wait hint in seconds.
func WithRetryAfter(sentinel *AppError, message string, seconds int) *AppError {
	c := sentinel.clone()
	c.Message = message
	c.RetryAfter = seconds
	return c
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired       = &AppError{Code: "TOKEN_EXPIRED", Message: "Token is invalid or expired", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountDisabled    = &AppError{Code: "ACCOUNT_DISABLED", Message: "Account is disabled", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrRateLimited    = &AppError{Code: "RATE_LIMITED", Message: "Too many requests", StatusCode: http.StatusTooManyRequests}
	ErrUnavailable    = &AppError{Code: "UNAVAILABLE", Message: "Service temporarily unavailable", StatusCode: http.StatusServiceUnavailable}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound      = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUsername = &AppError{Code: "DUPLICATE_USERNAME", Message: "Username is already taken", StatusCode: http.StatusConflict}
	ErrIdentityMismatch  = &AppError{Code: "IDENTITY_MISMATCH", Message: "Username and email do not match", StatusCode: http.StatusNotFound}
	ErrRoleNotFound      = &AppError{Code: "ROLE_NOT_FOUND", Message: "Role not found", StatusCode: http.StatusNotFound}
)

// Verification code errors.
var (
	ErrInvalidCode = &AppError{Code: "INVALID_CODE", Message: "Verification code is invalid or expired", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound           = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryNotDeleted         = &AppError{Code: "CATEGORY_NOT_DELETED", Message: "Category does not exist or is not deleted", StatusCode: http.StatusNotFound}
	ErrCategoryNameTaken          = &AppError{Code: "CATEGORY_NAME_TAKEN", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
	ErrCategoryHasChildren        = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has child categories", StatusCode: http.StatusConflict}
	ErrCategoryHasEnabledChildren = &AppError{Code: "CATEGORY_HAS_ENABLED_CHILDREN", Message: "Category has enabled child categories", StatusCode: http.StatusConflict}
	ErrCategoryCycle              = &AppError{Code: "CATEGORY_CYCLE", Message: "A category cannot be moved under itself or its descendants", StatusCode: http.StatusConflict}
	ErrCategoryDepthExceeded      = &AppError{Code: "CATEGORY_DEPTH_EXCEEDED", Message: "Category tree cannot exceed 3 levels", StatusCode: http.StatusConflict}
	ErrCategoryParentDisabled     = &AppError{Code: "CATEGORY_PARENT_DISABLED", Message: "Parent category is disabled", StatusCode: http.StatusConflict}
	ErrCategoryRestoreConflict    = &AppError{Code: "CATEGORY_RESTORE_CONFLICT", Message: "Category no longer fits under its parent", StatusCode: http.StatusConflict}
)
