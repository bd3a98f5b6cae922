package salesforceapi

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Error taxonomy for the fallback router. The router absorbs
// EndpointUnavailableError (and, for read operations, UpstreamError) while
// iterating its target chain; everything else propagates to the caller.

// AuthError indicates credential acquisition failed. The current session is
// invalidated so the next request re-authenticates.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("salesforce auth failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("salesforce auth failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// EndpointUnavailableError marks an API generation that does not exist for
// this tenant (404/405/501). Expected during fallback, never an error for
// the caller unless it came from the last target.
type EndpointUnavailableError struct {
	Target string
	Status int
}

func (e *EndpointUnavailableError) Error() string {
	return fmt.Sprintf("%s: endpoint unavailable (status %d)", e.Target, e.Status)
}

// UpstreamError is a hard failure for one target: a non-2xx response that is
// not an unavailability signal, or a transport-level failure (including
// timeouts). Read operations fall through to the next target; mutating
// operations surface it immediately.
type UpstreamError struct {
	Target string
	Status int // 0 for transport errors
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Target, e.Err)
	}
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("%s: upstream returned status %d: %s", e.Target, e.Status, body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NormalizationError indicates the upstream payload was not a JSON object.
// The router treats it as a hard failure for the target that produced it.
type NormalizationError struct {
	Target string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: unexpected payload shape: %s", e.Target, e.Reason)
}

// PaginationLimitError means the page-count safety bound was hit while
// draining a paginated response. Always fatal, never silent truncation.
type PaginationLimitError struct {
	Target   string
	MaxPages int
}

func (e *PaginationLimitError) Error() string {
	return fmt.Sprintf("%s: pagination exceeded %d pages without completing", e.Target, e.MaxPages)
}

// isUnavailableStatus reports whether an HTTP status means "this API
// generation does not exist here". Classification is strictly by status
// code; the upstream body is never inspected for strings like "404".
func isUnavailableStatus(status int) bool {
	switch status {
	case 404, 405, 501:
		return true
	}
	return false
}

// wrapTransport converts a transport-level error into an UpstreamError.
func wrapTransport(target string, err error) *UpstreamError {
	return &UpstreamError{Target: target, Err: errors.Wrap(err, "send")}
}
