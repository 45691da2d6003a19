package timer

import "errors"

// Error taxonomy shared across the timer core. Handlers map these onto HTTP
// status codes; everything else is a 500.
var (
	// ErrConflict marks an invariant violation, e.g. a second active session
	// for the same worker or a counter update that would move backwards.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState marks an illegal state-machine transition, e.g. pausing
	// a session that is not running.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound marks an unknown session, log, or snapshot id.
	ErrNotFound = errors.New("not found")

	// ErrDataIntegrity marks a computed value that cannot be trusted, e.g. a
	// negative elapsed time from clock skew. Callers clamp and log, never crash.
	ErrDataIntegrity = errors.New("data integrity")

	// ErrPermissionDenied marks a role-gated operation attempted without the
	// required role.
	ErrPermissionDenied = errors.New("permission denied")
)
