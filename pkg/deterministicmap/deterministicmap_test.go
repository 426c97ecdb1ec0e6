package deterministicmap

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	m := New[string, string]()
	m.Set("a", "b")
	require.Equal(t, 1, m.Len())

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "b", v)

	m.Set("a", "c")
	v, _ = m.Get("a")
	require.Equal(t, "c", v)
	require.Equal(t, 1, m.Len())

	m.Delete("a")
	require.Equal(t, 0, m.Len())
	m.Delete("a") // noop
	require.Equal(t, 0, m.Len())
}

func TestIterationOrderIsKeySorted(t *testing.T) {
	m := New[uint64, string]()
	m.Set(3, "three")
	m.Set(1, "one")
	m.Set(2, "two")

	require.Equal(t, []string{"one", "two", "three"}, m.Values())

	var keys []uint64
	require.NoError(t, m.Range(func(key uint64, _ string) error {
		keys = append(keys, key)
		return nil
	}))
	require.Equal(t, []uint64{1, 2, 3}, keys)

	// Order survives deletion in the middle.
	m.Delete(2)
	require.Equal(t, []string{"one", "three"}, m.Values())
}

func TestRangeBreakAndError(t *testing.T) {
	m := New[int, int]()
	m.Set(1, 10)
	m.Set(2, 20)

	visited := 0
	require.NoError(t, m.Range(func(int, int) error {
		visited++
		return ErrBreak
	}))
	require.Equal(t, 1, visited)

	boom := errors.New("boom")
	require.ErrorIs(t, m.Range(func(int, int) error { return boom }), boom)
}

func TestZeroValueIsUsable(t *testing.T) {
	var m Map[string, int]
	require.Equal(t, 0, m.Len())
	_, ok := m.Get("missing")
	require.False(t, ok)
	require.NoError(t, m.Range(func(string, int) error { return nil }))

	m.Set("x", 1)
	require.Equal(t, 1, m.Len())
}
