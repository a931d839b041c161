package wasitype_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func TestEmptyEntropyExhaustsOnFirstDraw(t *testing.T) {
	t.Parallel()

	u := wasitype.NewUnstructured(nil)
	_, err := wasitype.ArbitraryValue(u, wasitype.Type{Kind: wasitype.KindU64}, nil)
	require.ErrorIs(t, err, wasitype.ErrEntropyExhausted)
}

func TestStringPrefixPropagation(t *testing.T) {
	t.Parallel()

	u := wasitype.NewUnstructured([]byte{0})
	v, err := wasitype.ArbitraryValue(u, wasitype.StringType(), []byte("a"))
	require.NoError(t, err)
	require.Len(t, v.List, 1)
	require.EqualValues(t, 'a', v.List[0].Int)
}

func TestCloneDoesNotShareConsumption(t *testing.T) {
	t.Parallel()

	u := wasitype.NewUnstructured([]byte{1, 2, 3, 4})
	clone := u.Clone()

	_, err := u.Byte()
	require.NoError(t, err)
	require.Equal(t, 4, clone.Len())
	require.Equal(t, 3, u.Len())
}
