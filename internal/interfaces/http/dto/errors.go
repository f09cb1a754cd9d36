package dto

import "net/http"

// Error codes emitted by the application layer, grouped by concern
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"

	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeTenantNotFound = "TENANT_NOT_FOUND"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"

	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeCodeTaken           = "CODE_TAKEN"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"

	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidTenant = "INVALID_TENANT"
	ErrCodeInvalidState  = "INVALID_STATE"

	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenMaxRefresh    = "TOKEN_MAX_REFRESH"
	ErrCodeTokenError         = "TOKEN_ERROR"

	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNoCredits       = "NO_CREDITS"
	ErrCodeTenantSuspended = "TENANT_SUSPENDED"
	ErrCodeAccountInactive = "ACCOUNT_INACTIVE"
	ErrCodeAccountLocked   = "ACCOUNT_LOCKED"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeTenantNotFound: http.StatusNotFound,
	ErrCodeUserNotFound:   http.StatusNotFound,

	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeCodeTaken:           http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidTenant: http.StatusBadRequest,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenMaxRefresh:    http.StatusUnauthorized,
	ErrCodeTokenError:         http.StatusUnauthorized,

	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNoCredits:       http.StatusForbidden,
	ErrCodeTenantSuspended: http.StatusForbidden,
	ErrCodeAccountInactive: http.StatusForbidden,
	ErrCodeAccountLocked:   http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 for
// unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
