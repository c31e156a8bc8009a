package cachekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualSequencesProduceEqualKeys(t *testing.T) {
	a := New()
	a.UpdateAll([]any{"select * from t", 42, true})

	b := New()
	b.Update("select * from t")
	b.Update(42)
	b.Update(true)

	require.True(t, a.Equal(b))
	require.True(t, b.Equal(a))
	require.Equal(t, a.Hashcode(), b.Hashcode())
	require.Equal(t, a.Checksum(), b.Checksum())
	require.Equal(t, a.String(), b.String())
}

func TestOrderSensitivity(t *testing.T) {
	a := New()
	a.UpdateAll([]any{"x", "y"})

	b := New()
	b.UpdateAll([]any{"y", "x"})

	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Hashcode(), b.Hashcode())
	// Checksum alone is order-insensitive, by construction.
	require.Equal(t, a.Checksum(), b.Checksum())
}

func TestDifferentLengthsNeverEqual(t *testing.T) {
	a := New()
	a.Update("x")

	b := New()
	b.Update("x")
	b.Update("y")

	require.False(t, a.Equal(b))
	require.False(t, b.Equal(a))
}

func TestNilComponentHashesToOne(t *testing.T) {
	a := New()
	a.Update(nil)

	b := New()
	b.UpdateAll([]any{nil})

	require.True(t, a.Equal(b))
	require.Equal(t, a.Hashcode(), b.Hashcode())
}

func TestSliceComponentIsOrderSensitive(t *testing.T) {
	a := New()
	a.Update([]any{1, 2, 3})

	b := New()
	b.Update([]any{3, 2, 1})

	require.False(t, a.Equal(b))
}

func TestNullKeyEqualsNothingIncludingItself(t *testing.T) {
	require.False(t, Null.Equal(Null))

	other := New()
	other.Update("anything")
	require.False(t, Null.Equal(other))
	require.False(t, other.Equal(Null))
}

func TestEmptyKeysEqual(t *testing.T) {
	a := New()
	b := New()
	require.True(t, a.Equal(b))
	require.Equal(t, 0, a.Count())
}

func TestStringRendersComponentsInOrder(t *testing.T) {
	k := New()
	k.UpdateAll([]any{"a", 1})
	require.Contains(t, k.String(), ":a:1")
}
