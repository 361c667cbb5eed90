package fusionsolar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors.
var (
	// ErrMissingCredentials is returned when a login is needed but no
	// username or password is configured.
	ErrMissingCredentials = errors.New("fusionsolar: username and password are required")

	// ErrLoginFailed is returned when the login endpoint rejects the credentials.
	ErrLoginFailed = errors.New("fusionsolar: login failed")

	// ErrNoToken is returned when a successful login carries no session token.
	ErrNoToken = errors.New("fusionsolar: login returned no session token")
)

// failCodeRelogin is the northbound failCode for an expired session.
const failCodeRelogin = 305

// APIError is a failure reported by the API, either as an HTTP status or as
// a success=false envelope.
type APIError struct {
	Endpoint   string
	StatusCode int
	FailCode   int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("fusionsolar %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fusionsolar %s: failCode %d: %s", e.Endpoint, e.FailCode, e.Message)
}

// IsAuth reports whether the error means the session must be renewed.
func (e *APIError) IsAuth() bool {
	if e.FailCode == failCodeRelogin || e.StatusCode == http.StatusUnauthorized {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "token") || strings.Contains(msg, "auth") || strings.Contains(msg, "relogin")
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError reports whether err is an APIError asking for a new session.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}
