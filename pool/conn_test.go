package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeStatement is a minimal Statement used to drive the liveness probe in
// tests.
type fakeStatement struct {
	execFunc func(query string) error
}

func (s *fakeStatement) Execute(query string) error {
	if s.execFunc != nil {
		return s.execFunc(query)
	}
	return nil
}

func (s *fakeStatement) Close() error { return nil }

// fakeConn is an in-memory PhysicalConnection. It is not a real SQL driver;
// it exists only to drive the pool's tests deterministically.
type fakeConn struct {
	mu          sync.Mutex
	id          int64
	closed      bool
	autoCommit  bool
	rollbackErr error
	closeErr    error
	pingErr     error
	rollbacks   int
}

func (c *fakeConn) IsClosed() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, nil
}

func (c *fakeConn) AutoCommit() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit, nil
}

func (c *fakeConn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbacks++
	return c.rollbackErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) CreateStatement() (Statement, error) {
	c.mu.Lock()
	pingErr := c.pingErr
	c.mu.Unlock()
	return &fakeStatement{execFunc: func(string) error { return pingErr }}, nil
}

func (c *fakeConn) IdentityHash() int64 { return c.id }

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *fakeConn) rollbackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

// fakeProvider opens fakeConns with auto-incrementing identity hashes.
type fakeProvider struct {
	nextID   atomic.Int64
	openFunc func(ctx context.Context, user, password string) (PhysicalConnection, error)

	mu     sync.Mutex
	opened []*fakeConn
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{}
}

func (p *fakeProvider) Open(ctx context.Context, user, password string) (PhysicalConnection, error) {
	if p.openFunc != nil {
		return p.openFunc(ctx, user, password)
	}
	c := &fakeConn{id: p.nextID.Add(1), autoCommit: true}
	p.mu.Lock()
	p.opened = append(p.opened, c)
	p.mu.Unlock()
	return c, nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

// newNonAutoCommitFakeProvider opens fakeConns that start each checkout
// mid-transaction, so that release/reclaim/forceCloseAll's rollback branch
// is exercised instead of always taking the autocommit shortcut.
func newNonAutoCommitFakeProvider() *fakeProvider {
	p := &fakeProvider{}
	p.openFunc = func(ctx context.Context, user, password string) (PhysicalConnection, error) {
		c := &fakeConn{id: p.nextID.Add(1), autoCommit: false}
		p.mu.Lock()
		p.opened = append(p.opened, c)
		p.mu.Unlock()
		return c, nil
	}
	return p
}
