package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// ErrorType is the coarse category surfaced to API clients.
type ErrorType string

const (
	TypeValidation     ErrorType = "validation"
	TypeAuthentication ErrorType = "authentication"
	TypeForbidden      ErrorType = "forbidden"
	TypeAuthorization  ErrorType = "authorization"
	TypeNotFound       ErrorType = "not_found"
	TypeConflict       ErrorType = "conflict"
	TypeRateLimit      ErrorType = "rate_limit"
	TypeInternal       ErrorType = "internal"
)

// Common error codes.
const (
	CodeInvalidParameter     = "invalid_parameter"
	CodeMissingRequiredField = "missing_required_field"
	CodeUnauthorized         = "unauthorized"
	CodeInvalidToken         = "invalid_token"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeForbidden            = "forbidden"
	CodeResourceNotFound     = "resource_not_found"
	CodeDuplicateResource    = "duplicate_resource"
	CodeTooManyRequests      = "too_many_requests"
	CodeInternalError        = "internal_error"
)

// DomainError standardizes application errors.
type DomainError struct {
	Type       ErrorType
	Code       string
	Message    string
	Param      string
	Details    map[string]any
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by type and code so callers can compare
// against sentinel values with errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Type == other.Type && e.Code == other.Code
}

// Issue is a single field-level validation failure.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewValidationError(code, message, param string) error {
	if code == "" {
		code = CodeInvalidParameter
	}
	return &DomainError{Type: TypeValidation, Code: code, Message: message, Param: param, HTTPStatus: http.StatusBadRequest}
}

// IssueRequired marks an absent field; other issue codes are free-form.
const IssueRequired = "required"

// NewValidationIssues reports several field failures at once; the first
// issue names the error.
func NewValidationIssues(issues []Issue) error {
	if len(issues) == 0 {
		return NewValidationError("", "invalid request data", "")
	}
	first := issues[0]
	code := CodeInvalidParameter
	if first.Code == IssueRequired {
		code = CodeMissingRequiredField
	}
	return &DomainError{
		Type:       TypeValidation,
		Code:       code,
		Message:    first.Message,
		Param:      first.Path,
		Details:    map[string]any{"issues": issues},
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewAuthentication(code, message string) error {
	if code == "" {
		code = CodeUnauthorized
	}
	return &DomainError{Type: TypeAuthentication, Code: code, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewForbidden(message string) error {
	return &DomainError{Type: TypeForbidden, Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NewAuthorization is returned by role checks.
func NewAuthorization(message string) error {
	return &DomainError{Type: TypeAuthorization, Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func NewNotFound(code, message string) error {
	if code == "" {
		code = CodeResourceNotFound
	}
	return &DomainError{Type: TypeNotFound, Code: code, Message: message, HTTPStatus: http.StatusNotFound}
}

func NewConflict(code, message, param string) error {
	if code == "" {
		code = CodeDuplicateResource
	}
	return &DomainError{Type: TypeConflict, Code: code, Message: message, Param: param, HTTPStatus: http.StatusConflict}
}

func NewRateLimited(message string) error {
	return &DomainError{Type: TypeRateLimit, Code: CodeTooManyRequests, Message: message, HTTPStatus: http.StatusTooManyRequests}
}

func NewInternalError(err error) error {
	return &DomainError{
		Type:       TypeInternal,
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternalCode is an internal failure with a specific code, e.g. a failed
// AI suggestion the client may retry.
func NewInternalCode(code, message string, err error) error {
	return &DomainError{Type: TypeInternal, Code: code, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("", "resource not found").(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// IsType reports whether err is a DomainError of the given type.
func IsType(err error, t ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == t
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
