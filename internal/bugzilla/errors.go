package bugzilla

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoCredentials means no Bugzilla user or API key is configured.
	// Querying anonymously would silently leave private bugs out of the
	// results, so it is treated as fatal.
	ErrNoCredentials = errors.New("no Bugzilla credentials configured")

	// ErrInvalidCredentials means credentials are configured but Bugzilla
	// does not accept them.
	ErrInvalidCredentials = errors.New("bugzilla rejected the configured credentials")
)

// Bugzilla error codes that indicate an authentication problem.
const (
	codeInvalidAPIKey = 306
	codeLoginRequired = 410
)

// APIError is an error reported by the Bugzilla REST API. Bugzilla returns
// {"error": true, "code": N, "message": "..."} bodies on failure.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("bugzilla: HTTP %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("bugzilla: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err is a Bugzilla authentication failure.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.Code == codeInvalidAPIKey ||
		apiErr.Code == codeLoginRequired
}
