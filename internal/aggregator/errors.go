package aggregator

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey means no API key is available from the session or the
// static configuration. No token request is attempted in that state.
var ErrMissingAPIKey = errors.New("aggregator API key is missing")

// AuthError reports a missing credential or a failed token exchange.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteError is any non-success response from the aggregator API. The body
// is kept for diagnostics; callers decide whether to retry.
type RemoteError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Status, e.Body)
}
