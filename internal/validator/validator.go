// Package validator provides custom validation functions for Gin's binding
// engine and a standalone validator for service inputs.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "homeserve/internal/errors"
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	cnMobileRegex = regexp.MustCompile(`^1[3-9]\d{9}$`)
	digitsRegex   = regexp.MustCompile(`^\d+$`)
)

// Code purposes accepted by the verification endpoints.
const (
	PurposeLogin         = "login"
	PurposeResetPassword = "reset_password"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

// New returns a validator with the custom tags registered, for validating
// inputs outside of request binding.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	configure(v)
	return v
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("cn_mobile", validateCNMobile)
	_ = v.RegisterValidation("code_purpose", validateCodePurpose)
	_ = v.RegisterValidation("digits", validateDigits)
}

// fieldName reports a field by its json name, or its form name for query
// structs.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateCNMobile(fl validator.FieldLevel) bool {
	return cnMobileRegex.MatchString(fl.Field().String())
}

func validateCodePurpose(fl validator.FieldLevel) bool {
	return IsCodePurpose(fl.Field().String())
}

func validateDigits(fl validator.FieldLevel) bool {
	return digitsRegex.MatchString(fl.Field().String())
}

// IsCodePurpose reports whether p is a known verification code purpose.
func IsCodePurpose(p string) bool {
	switch p {
	case PurposeLogin, PurposeResetPassword:
		return true
	}
	return false
}

// FieldErrors converts validation errors into field/message pairs. It
// returns nil when err carries no field errors.
func FieldErrors(err error) []apperrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

// InvalidInput wraps validation errors into an INVALID_INPUT AppError with
// details. Errors that are not validation errors (malformed JSON, wrong
// types) get a generic message.
func InvalidInput(err error) *apperrors.AppError {
	details := FieldErrors(err)
	if len(details) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Malformed request body")
	}
	return apperrors.WithDetails(apperrors.WithMessage(apperrors.ErrInvalidInput, details[0].Message), details)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_with":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "eqfield":
		return fmt.Sprintf("%s does not match %s", field, fe.Param())
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits and underscores (3-20 characters)", field)
	case "cn_mobile":
		return fmt.Sprintf("%s must be a valid mobile number", field)
	case "code_purpose":
		return fmt.Sprintf("%s must be one of: login, reset_password", field)
	case "digits":
		return fmt.Sprintf("%s must contain digits only", field)
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid value", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
