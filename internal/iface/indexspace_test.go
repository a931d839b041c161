package iface_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
)

func TestIndexSpacePushAndGetByNameAndNumeric(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[string]()

	i0, err := s.Push("foo", "foo-value")
	require.NoError(t, err)
	require.Equal(t, 0, i0)

	i1, err := s.Push("", "anon-value")
	require.NoError(t, err)
	require.Equal(t, 1, i1)

	v, err := s.Get(iface.Symbolic("foo"))
	require.NoError(t, err)
	require.Equal(t, "foo-value", v)

	v, err = s.Get(iface.Numeric(1))
	require.NoError(t, err)
	require.Equal(t, "anon-value", v)

	require.Equal(t, 2, s.Len())
}

func TestIndexSpacePushDuplicateName(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[int]()
	_, err := s.Push("dup", 1)
	require.NoError(t, err)

	_, err = s.Push("dup", 2)
	require.ErrorIs(t, err, iface.ErrDuplicateName)
}

func TestIndexSpaceGetInvalid(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[int]()
	_, err := s.Push("known", 1)
	require.NoError(t, err)

	_, err = s.Get(iface.Symbolic("missing"))
	require.ErrorIs(t, err, iface.ErrInvalidTypeidx)

	_, err = s.Get(iface.Numeric(5))
	require.ErrorIs(t, err, iface.ErrInvalidTypeidx)
}

func TestIndexSpaceIterIsInsertionOrdered(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[string]()
	_, _ = s.Push("a", "1")
	_, _ = s.Push("b", "2")
	_, _ = s.Push("c", "3")

	var seen []string
	s.Iter(func(idx int, item string) bool {
		seen = append(seen, item)
		return true
	})
	require.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestIndexSpaceIterStopsEarly(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[string]()
	_, _ = s.Push("a", "1")
	_, _ = s.Push("b", "2")
	_, _ = s.Push("c", "3")

	var seen []string
	s.Iter(func(idx int, item string) bool {
		seen = append(seen, item)
		return item != "2"
	})
	require.Equal(t, []string{"1", "2"}, seen)
}

func TestIndexSpaceNameOf(t *testing.T) {
	t.Parallel()

	s := iface.NewIndexSpace[int]()
	idx, _ := s.Push("named", 7)
	anonIdx, _ := s.Push("", 8)

	name, ok := s.NameOf(idx)
	require.True(t, ok)
	require.Equal(t, "named", name)

	_, ok = s.NameOf(anonIdx)
	require.False(t, ok)
}
