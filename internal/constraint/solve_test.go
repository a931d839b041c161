package constraint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// u8Type is a plain 8-bit integer, small enough for BruteForceBackend to
// search exhaustively.
func u8Type() wasitype.Type { return wasitype.Type{Kind: wasitype.KindU8} }

func newFdOffsetInterface(t *testing.T) *iface.Interface {
	t.Helper()
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)
	_, err = ifc.Resources.Push("fd", &iface.ResourceType{
		Name:  "fd",
		Value: iface.Symbolic("u8"),
		Attributes: []iface.AttributeDef{
			{Name: "offset", Type: iface.Symbolic("u8")},
		},
	})
	require.NoError(t, err)
	return ifc
}

var fdAllowedAttrs = map[string]bool{"offset": true}

func TestSolveBindsParamToMatchingResource(t *testing.T) {
	ifc := newFdOffsetInterface(t)

	fn := &iface.Function{
		Name: "fd_tell",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("u8"), ResourceType: "fd"},
		},
		InputContract: term.IntLe{
			Lhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
			Rhs: term.IntConst{Value: big.NewInt(10)},
		},
	}

	ctx := resource.NewContext()
	low := ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 3})
	require.NoError(t, ctx.SetAttr(low, "offset", wasitype.Value{Type: u8Type(), Int: 2}, fdAllowedAttrs))
	high := ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 9})
	require.NoError(t, ctx.SetAttr(high, "offset", wasitype.Value{Type: u8Type(), Int: 200}, fdAllowedAttrs))

	backend := NewBruteForceBackend()
	assignment, result, err := Solve(backend, ifc, fn, ctx, 1)
	require.NoError(t, err)
	require.Equal(t, Sat, result)
	require.Equal(t, low, assignment.ResourceBinding["fd"])
	require.Equal(t, uint64(3), assignment.Values["fd"].Int)
}

func TestSolveUnsatWhenNoCandidateResourceFits(t *testing.T) {
	ifc := newFdOffsetInterface(t)

	fn := &iface.Function{
		Name: "fd_tell",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("u8"), ResourceType: "fd"},
		},
		InputContract: term.IntLe{
			Lhs: term.IntConst{Value: big.NewInt(1)},
			Rhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
		},
	}

	ctx := resource.NewContext()
	id := ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 3})
	require.NoError(t, ctx.SetAttr(id, "offset", wasitype.Value{Type: u8Type(), Int: 0}, fdAllowedAttrs))

	backend := NewBruteForceBackend()
	_, result, err := Solve(backend, ifc, fn, ctx, 1)
	require.NoError(t, err)
	require.Equal(t, Unsat, result)
}

func TestSolveNoResourceParamsIsUnconstrainedByResources(t *testing.T) {
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)

	fn := &iface.Function{
		Name: "args_sizes_get",
		Params: []iface.Param{
			{Name: "count", Type: iface.Symbolic("u8")},
		},
		InputContract: term.IntLe{
			Lhs: term.Param{Name: "count"},
			Rhs: term.IntConst{Value: big.NewInt(5)},
		},
	}

	ctx := resource.NewContext()
	backend := NewBruteForceBackend()
	assignment, result, err := Solve(backend, ifc, fn, ctx, 1)
	require.NoError(t, err)
	require.Equal(t, Sat, result)
	require.True(t, assignment.Values["count"].Int <= 5)
}
