package pool

import "context"

// PhysicalConnection is the provider-owned object that talks to the
// database. The pool never inspects it beyond what this interface exposes:
// liveness, auto-commit mode, rollback, close, statement creation, and a
// stable identity hash used for handle equality.
type PhysicalConnection interface {
	// IsClosed reports whether the connection has already been closed.
	IsClosed() (bool, error)
	// AutoCommit reports the connection's current auto-commit mode.
	AutoCommit() (bool, error)
	// Rollback rolls back any open transaction. Safe to call on an
	// auto-commit connection only if the caller has already checked
	// AutoCommit; the pool always checks first.
	Rollback() error
	// Close releases the underlying resource. Idempotent.
	Close() error
	// CreateStatement returns a Statement usable for a liveness probe or
	// forwarded caller operation.
	CreateStatement() (Statement, error)
	// IdentityHash is a stable integer identity for this connection,
	// used only for handle equality; it is not interpreted.
	IdentityHash() int64
}

// Statement is the minimal surface the pool needs from a prepared or
// ad-hoc statement: enough to run a liveness probe query.
type Statement interface {
	Execute(query string) error
	Close() error
}

// Provider opens new PhysicalConnections. It carries identity (URL, user,
// password) and is otherwise opaque to the pool; SQL execution, parameter
// binding, and result-set iteration do not appear on this interface.
type Provider interface {
	Open(ctx context.Context, user, password string) (PhysicalConnection, error)
}
