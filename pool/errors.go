package pool

import "github.com/pkg/errors"

// Sentinel errors returned to callers. They are created with
// github.com/pkg/errors, so each carries the stack recorded when the
// package was initialised; the pool returns them unwrapped, so no stack
// from the failure site is attached. Compare with errors.Is against these
// values, or pkgerrors.Cause to unwrap to the sentinel itself.
var (
	// ErrPoolClosed is returned by Acquire once Shutdown has closed the
	// pool. ForceCloseAll drains the pool but leaves it open.
	ErrPoolClosed = errors.New("connpool: pool is closed")

	// ErrNoGoodConnection is the acquire-exhaustion error: localBadCount
	// exceeded maxIdle+localBadTolerance within one Acquire call.
	ErrNoGoodConnection = errors.New("connpool: could not get a good connection")

	// ErrConnectionInvalid is returned when a forwarded operation is
	// attempted on an invalidated proxy.
	ErrConnectionInvalid = errors.New("connpool: connection is invalid")
)
