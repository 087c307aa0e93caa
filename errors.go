package auth

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeEmailTaken          = "EMAIL_TAKEN"
	TextCodeMissingCredentials  = "MISSING_CREDENTIALS"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeTokenMissing        = "TOKEN_MISSING"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeUserInactive        = "USER_INACTIVE"
	TextCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	TextCodeForbidden           = "FORBIDDEN"
	TextCodeNotAuthorized       = "NOT_AUTHORIZED"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeSelfDeletion        = "SELF_DELETION"
	TextCodeInvalidUserID       = "INVALID_USER_ID"
	TextCodeInvalidPayload      = "INVALID_PAYLOAD"
	TextCodeValidation          = "VALIDATION_FAILED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeRouteNotFound       = "ROUTE_NOT_FOUND"
)

// ErrDuplicateEmail is returned when registering an email that already exists
var ErrDuplicateEmail = errors.New("User already exists with this email", errors.CategoryValidation).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrEmailTaken is returned when a profile update collides with another user
var ErrEmailTaken = errors.New("Email is already taken", errors.CategoryValidation).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeBadRequest)

// ErrMissingCredentials login without email or password
var ErrMissingCredentials = errors.New("Please provide email and password", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCredentials).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers unknown users, inactive accounts and
// password mismatches alike.
var ErrInvalidCredentials = errors.New("Invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned by ComparePasswordAndHash
var ErrMismatchedHashAndPassword = ErrInvalidCredentials

// ErrTokenMissing no bearer token in the request
var ErrTokenMissing = errors.New("Not authorized, no token provided", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed token could not be parsed or verified
var ErrTokenMalformed = errors.New("Not authorized, invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired token signature is fine but exp is in the past
var ErrTokenExpired = errors.New("Not authorized, invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession token parsed but claims are unusable
var ErrUnableToDecodeSession = ErrTokenMalformed

// ErrUserInactive token subject no longer exists or was deactivated
var ErrUserInactive = errors.New("Not authorized, user not found or inactive", errors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefreshToken refresh token unknown, revoked or expired
var ErrInvalidRefreshToken = errors.New("Invalid or expired refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthorized a guard ran without a resolved user
var ErrNotAuthorized = errors.New("Not authorized", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden authenticated but role not allowed
var ErrForbidden = errors.New("Not authorized for this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned when no user matches
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = ErrUserNotFound

// ErrSelfDeletion admins cannot delete their own account
var ErrSelfDeletion = errors.New("You cannot delete your own account", errors.CategoryBadInput).
	WithTextCode(TextCodeSelfDeletion).
	WithCode(errors.CodeBadRequest)

// ErrInvalidUserID the id is not a valid identifier
var ErrInvalidUserID = errors.New("Invalid user id", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidUserID).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPayload request body could not be parsed
var ErrInvalidPayload = errors.New("Invalid request body", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidPayload).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// NewValidationError wraps an ozzo validation error into the taxonomy
func NewValidationError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryValidation, err.Error()).
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}

// NewRouteNotFound is returned for unmatched routes
func NewRouteNotFound(path string) *errors.Error {
	return errors.New("Not found - "+path, errors.CategoryNotFound).
		WithTextCode(TextCodeRouteNotFound).
		WithCode(errors.CodeNotFound)
}

// HasTextCode reports whether err carries the given text code
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// StatusCode maps any error to an HTTP status
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var uv interface{ IntegrityViolation() bool }
	if stderrors.As(err, &uv) && uv.IntegrityViolation() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
