package httputil

// Machine-readable error codes returned alongside error messages so clients
// can branch on them without parsing English text.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeValidationFailed   = "validation_failed"
	CodeEmailRequired      = "email_required"
	CodeEmailTaken         = "email_taken"
	CodePasswordMismatch   = "password_mismatch"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeTooManyRequests    = "too_many_requests"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeInternalError      = "internal_error"
)
