package shapes

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("shapes api key not configured")

// ErrUnavailable wraps transport failures and unreadable answers from the endpoint.
var ErrUnavailable = errors.New("shapes api unavailable")

// APIError is a non-2xx answer from the chat completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Shapes API error: %s", e.Body)
}
