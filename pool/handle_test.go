package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConnectionHandleIsValid(t *testing.T) {
	phys := &fakeConn{id: 1, autoCommit: true}
	h := newConnectionHandle(phys, 42)

	require.True(t, h.isValid())
	require.Equal(t, int64(42), h.typeCode)
	require.Equal(t, int64(1), h.hash())
	require.False(t, h.connID.String() == "")
}

func TestSucceedPreservesIdentityAndInvalidatesOld(t *testing.T) {
	phys := &fakeConn{id: 7, autoCommit: true}
	h := newConnectionHandle(phys, 1)
	h.lastUsedAt = time.Now().Add(-time.Hour)

	next := h.succeed()

	require.False(t, h.isValid())
	require.True(t, next.isValid())
	require.Equal(t, h.connID, next.connID)
	require.Equal(t, h.physical, next.physical)
	require.Equal(t, h.createdAt, next.createdAt)
	require.Equal(t, h.lastUsedAt, next.lastUsedAt)
}

func TestCheckoutDurationZeroUntilCheckedOut(t *testing.T) {
	phys := &fakeConn{id: 1}
	h := newConnectionHandle(phys, 0)

	require.Equal(t, time.Duration(0), h.checkoutDuration(time.Now()))

	h.checkedOutAt = time.Now().Add(-5 * time.Second)
	require.GreaterOrEqual(t, h.checkoutDuration(time.Now()), 5*time.Second)
}

func TestConnProxyFailsAfterInvalidate(t *testing.T) {
	phys := &fakeConn{id: 3, autoCommit: true}
	h := newConnectionHandle(phys, 0)
	proxy := &connProxy{handle: h}

	ok, err := proxy.IsClosed()
	require.NoError(t, err)
	require.False(t, ok)

	h.invalidate()

	_, err = proxy.IsClosed()
	require.ErrorIs(t, err, ErrConnectionInvalid)

	_, err = proxy.AutoCommit()
	require.ErrorIs(t, err, ErrConnectionInvalid)

	err = proxy.Rollback()
	require.ErrorIs(t, err, ErrConnectionInvalid)

	_, err = proxy.CreateStatement()
	require.ErrorIs(t, err, ErrConnectionInvalid)

	_, err = proxy.IdentityHash()
	require.ErrorIs(t, err, ErrConnectionInvalid)
}
