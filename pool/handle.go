package pool

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// connectionHandle is the pool-owned wrapper over one PhysicalConnection.
// A given PhysicalConnection is referenced by at most one handle at any
// instant; when a handle is recycled or reclaimed, a *new* handle takes
// over the same physical connection and the old one is invalidated so a
// caller's stale proxy fails safely instead of silently operating on a
// connection someone else now owns.
type connectionHandle struct {
	physical PhysicalConnection

	// connID is stable across the recycle-to-new-handle transitions of a
	// single physical connection; it exists only to correlate log lines
	// (slog attribute "conn_id"), never for equality.
	connID uuid.UUID

	typeCode     int64
	createdAt    time.Time
	lastUsedAt   time.Time
	checkedOutAt time.Time

	valid atomic.Bool
}

func newConnectionHandle(physical PhysicalConnection, typeCode int64) *connectionHandle {
	now := time.Now()
	h := &connectionHandle{
		physical:   physical,
		connID:     uuid.New(),
		typeCode:   typeCode,
		createdAt:  now,
		lastUsedAt: now,
	}
	h.valid.Store(true)
	return h
}

// succeed builds the replacement handle for a recycle or reclaim
// transition: same physical connection and connID, preserved createdAt
// and lastUsedAt, and invalidates the receiver. Both release-recycle and
// acquire-reclaim wrap the same PhysicalConnection in a new handle and
// invalidate the old one.
func (h *connectionHandle) succeed() *connectionHandle {
	next := &connectionHandle{
		physical:   h.physical,
		connID:     h.connID,
		typeCode:   h.typeCode,
		createdAt:  h.createdAt,
		lastUsedAt: h.lastUsedAt,
	}
	next.valid.Store(true)
	h.valid.Store(false)
	return next
}

func (h *connectionHandle) isValid() bool { return h.valid.Load() }

func (h *connectionHandle) invalidate() { h.valid.Store(false) }

// checkoutDuration is only meaningful once the handle has been placed in
// the active set (checkedOutAt set).
func (h *connectionHandle) checkoutDuration(now time.Time) time.Duration {
	if h.checkedOutAt.IsZero() {
		return 0
	}
	return now.Sub(h.checkedOutAt)
}

// hash returns the identity used for handle equality: the identity hash
// of the underlying PhysicalConnection, fixed at construction so
// collections indexed by handles stay consistent even after invalidation.
func (h *connectionHandle) hash() int64 { return h.physical.IdentityHash() }

// Conn is the proxy callers see in place of a raw PhysicalConnection.
// Close returns the connection to the pool instead of destroying it; every
// other method is forwarded to the underlying PhysicalConnection after a
// validity check.
type Conn interface {
	IsClosed() (bool, error)
	AutoCommit() (bool, error)
	Rollback() error
	CreateStatement() (Statement, error)
	// IdentityHash forwards PhysicalConnection.IdentityHash, for callers
	// that want to confirm two proxies wrap the same physical connection
	// (e.g. across a recycle).
	IdentityHash() (int64, error)
	Close() error
}

// connProxy implements Conn over a connectionHandle. It never outlives the
// handle it was created for: once release/reclaim/forceCloseAll
// invalidates that handle, every proxy method but Close fails with
// ErrConnectionInvalid, and Close becomes a no-op.
type connProxy struct {
	handle *connectionHandle
	pool   *Pool
}

func (c *connProxy) checked() (PhysicalConnection, error) {
	if !c.handle.isValid() {
		return nil, ErrConnectionInvalid
	}
	return c.handle.physical, nil
}

func (c *connProxy) IsClosed() (bool, error) {
	phys, err := c.checked()
	if err != nil {
		return false, err
	}
	return phys.IsClosed()
}

func (c *connProxy) AutoCommit() (bool, error) {
	phys, err := c.checked()
	if err != nil {
		return false, err
	}
	return phys.AutoCommit()
}

func (c *connProxy) Rollback() error {
	phys, err := c.checked()
	if err != nil {
		return err
	}
	return phys.Rollback()
}

func (c *connProxy) CreateStatement() (Statement, error) {
	phys, err := c.checked()
	if err != nil {
		return nil, err
	}
	return phys.CreateStatement()
}

func (c *connProxy) IdentityHash() (int64, error) {
	phys, err := c.checked()
	if err != nil {
		return 0, err
	}
	return phys.IdentityHash(), nil
}

// Close returns the connection to the pool. It is idempotent: a second
// Close on an already-released proxy is a no-op because the handle it
// refers to is already invalid by then.
func (c *connProxy) Close() error {
	c.pool.release(c.handle)
	return nil
}
