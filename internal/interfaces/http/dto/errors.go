package dto

import (
	"net/http"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
)

// Transport error codes. Domain errors keep their own codes in the response
// body.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeInsufficientAmount: http.StatusBadRequest,
	shared.ErrInvalidInput.Code:   http.StatusBadRequest,

	shared.CodeMissingTenantContext: http.StatusUnauthorized,

	shared.ErrForbidden.Code: http.StatusForbidden,

	shared.CodeOrderNotFound: http.StatusNotFound,
	shared.ErrNotFound.Code:  http.StatusNotFound,

	shared.CodeConcurrentModification:       http.StatusConflict,
	shared.CodeInvalidOrderState:            http.StatusConflict,
	shared.CodeAlreadyVoided:                http.StatusConflict,
	shared.ErrAlreadyExists.Code:            http.StatusConflict,
	payment.ErrDuplicateIdempotencyKey.Code: http.StatusConflict,

	shared.ErrInvalidState.Code: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for a transport or domain code.
// Unknown domain codes are business rule violations.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
