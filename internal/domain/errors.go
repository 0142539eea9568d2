package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes adapters are allowed to surface.
// Adapters wrap these with context; callers branch with errors.Is.
var (
	// ErrTransport covers network-level failures: connection refused, DNS,
	// timeouts. Always retryable.
	ErrTransport = errors.New("transport failure")

	// ErrNotFound means the identifier has no corresponding entity upstream.
	// Distinct from upstream failure so callers can branch on absence.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is HTTP 429. Retryable after backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformed means the upstream payload decoded to something that
	// violates the expected schema. Not retryable; indicates contract drift.
	ErrMalformed = errors.New("malformed response")

	// ErrUsage is an invalid invocation detected before any network call.
	ErrUsage = errors.New("invalid usage")
)

// StatusError records a non-2xx upstream HTTP status that does not map to a
// more specific sentinel (404 and 429 have their own). The body is kept so
// upstream-provided detail survives to the front-end.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream HTTP %d", e.Status)
	}
	return fmt.Sprintf("upstream HTTP %d: %s", e.Status, e.Body)
}

// Temporary reports whether the status indicates a transient server-side
// condition worth retrying.
func (e *StatusError) Temporary() bool { return e.Status >= 500 }

// Error kinds as they appear in machine-readable agent output.
const (
	KindTransport = "transport"
	KindUpstream  = "upstream"
	KindNotFound  = "not_found"
	KindMalformed = "malformed_response"
	KindUsage     = "usage"
	KindInternal  = "internal"
)

// KindOf maps an error to its taxonomy kind. Unknown errors are reported as
// internal rather than guessed at.
func KindOf(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUsage):
		return KindUsage
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrRateLimited), errors.As(err, &se):
		return KindUpstream
	default:
		return KindInternal
	}
}

// Retryable reports whether the aggregation client may retry the operation
// that produced err. Only transient transport failures, rate limiting, and
// 5xx upstream statuses qualify.
func Retryable(err error) bool {
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return false
}
