package authz

import "errors"

// Error taxonomy for authorization and resolution failures.
//
// ErrScopeViolation exists so callers inside the core can distinguish "out
// of scope" from "does not exist", but both must surface identically as
// not-found at the request boundary to avoid existence leakage.
var (
	// ErrPermissionDenied means the base permission check or a policy rule
	// failed for a write action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrScopeViolation means the resource exists but outside the bearer's
	// tenant or ownership scope.
	ErrScopeViolation = errors.New("resource out of scope")

	// ErrNotFound means no matching resource exists in any scope.
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownEventType means code attempted to emit an event name absent
	// from the seeded catalog. Fatal at startup validation; at runtime the
	// triggering mutation stays committed and the failure is surfaced as an
	// internal error.
	ErrUnknownEventType = errors.New("unknown event type")
)

// Hidden reports whether the error must be presented as not-found.
func Hidden(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrScopeViolation)
}
