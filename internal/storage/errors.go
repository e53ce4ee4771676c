// Package storage provides an authenticated HTTP client for the Selectel
// Cloud Storage API (Swift v1 protocol) with session management, endpoint
// caching, and error classification.
package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for status classification.
// Use errors.Is(err, storage.ErrNotFound) to check.
var (
	// ErrAuthFailed covers bad credentials, a handshake response without an
	// X-Auth-Token header, and transport-level rejection of the handshake.
	ErrAuthFailed = errors.New("storage: authentication failed")

	// ErrBadAuthResponse means the service accepted the credentials but the
	// handshake response is missing the X-Storage-Url header.
	ErrBadAuthResponse = errors.New("storage: malformed authentication response")

	ErrBadRequest  = errors.New("storage: bad request")
	ErrForbidden   = errors.New("storage: forbidden")
	ErrNotFound    = errors.New("storage: not found")
	ErrConflict    = errors.New("storage: conflict")
	ErrThrottled   = errors.New("storage: throttled")
	ErrServerError = errors.New("storage: server error")
)

// APIError wraps a sentinel error with the HTTP status code, the Swift
// transaction ID, and the response body excerpt for debugging.
type APIError struct {
	StatusCode int
	TransID    string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.TransID != "" {
		return fmt.Sprintf("storage: HTTP %d (tx: %s): %s", e.StatusCode, e.TransID, e.Message)
	}

	return fmt.Sprintf("storage: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
