package retry

import (
	"errors"
	"net/http"
	"time"
)

// GenerationDelays is the wait schedule between documentation generation
// attempts.
var GenerationDelays = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// GenerationPolicy retries generation three times in total, only on server
// errors.
func GenerationPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delays:      append([]time.Duration(nil), GenerationDelays...),
		Retryable:   ServerError,
	}
}

// ServerError reports whether err carries an HTTP status of 500 or above.
func ServerError(err error) bool {
	status, ok := StatusOf(err)
	return ok && status >= http.StatusInternalServerError
}

// StatusOf extracts the HTTP status from errors exposing an HTTPStatus method.
func StatusOf(err error) (int, bool) {
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}
	return 0, false
}
