package shared

import "errors"

// DomainError is a coded business error. Two DomainErrors are considered the
// same error by errors.Is when their codes match, so a sentinel can be compared
// against an error built with a more specific message.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by every bounded context.
const (
	CodeMissingTenantContext   = "MISSING_TENANT_CONTEXT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInvalidOrderState      = "INVALID_ORDER_STATE"
	CodeAlreadyVoided          = "ALREADY_VOIDED"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeInsufficientAmount     = "INSUFFICIENT_AMOUNT"
)

var (
	// ErrMissingTenantContext is returned by every tenant-owned data access
	// that runs without a bound scope. Not retryable.
	ErrMissingTenantContext = NewDomainError(CodeMissingTenantContext, "No tenant bound to the current unit of work")
	// ErrConcurrentModification means the stored version moved on. The caller
	// decides whether to reload and retry.
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrInvalidOrderState      = NewDomainError(CodeInvalidOrderState, "Order does not accept this operation in its current state")
	ErrAlreadyVoided          = NewDomainError(CodeAlreadyVoided, "Resource is already voided")
	ErrOrderNotFound          = NewDomainError(CodeOrderNotFound, "Order not found")
	ErrInsufficientAmount     = NewDomainError(CodeInsufficientAmount, "Amount must be greater than zero")

	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrForbidden     = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// ErrorCode extracts the domain code from err, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
