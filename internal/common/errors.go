package common

import (
	"errors"
	"net/http"
)

// Request outcome errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// RejectedRequest: 보안 토큰 누락/위조. 재시도하지 않음
	ErrRejectedRequest = errors.New("request rejected")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("expired token")

	// RateLimited: 제출량 초과, 쿨다운 후 재시도
	ErrRateLimited = errors.New("rate limited")

	// ValidationFailed: 파일 누락, 용량 초과, 허용되지 않은 형식, 필수값 누락
	ErrValidationFailed  = errors.New("validation failed")
	ErrUploadKeyMismatch = errors.New("upload key mismatch")
	ErrUploadDisabled    = errors.New("uploads disabled for this gallery")

	// TransientNetworkFailure: 요청 실패 또는 잘못된 응답 본문
	ErrTransientNetwork = errors.New("transient network failure")

	// StaleResponse: 더 최신 요청에 의해 무효화된 응답. 에러로 보고하지 않음
	ErrStaleResponse = errors.New("stale response")
)

// ValidationError user-facing validation failure; wraps ErrValidationFailed.
// Message is a message key, translated with Args by the handler.
type ValidationError struct {
	Cause   error
	Field   string
	Message string
	Args    []interface{}
	Status  int
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidationFailed) hold for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a 400 validation error
func NewValidationError(field, message string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Args: args, Status: http.StatusBadRequest}
}

// WithStatus overrides the HTTP status (413, 415)
func (e *ValidationError) WithStatus(status int) *ValidationError {
	e.Status = status
	return e
}

// StatusFor maps an error to the HTTP status the ajax endpoint answers with
func StatusFor(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		if ve.Status != 0 {
			return ve.Status
		}
		return http.StatusBadRequest
	case errors.Is(err, ErrRejectedRequest), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUploadDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrUploadKeyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
