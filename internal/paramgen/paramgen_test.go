package paramgen

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func u8Type() wasitype.Type { return wasitype.Type{Kind: wasitype.KindU8} }

func newFdInterface(t *testing.T) *iface.Interface {
	t.Helper()
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)
	_, err = ifc.Resources.Push("fd", &iface.ResourceType{
		Name:  "fd",
		Value: iface.Symbolic("u8"),
	})
	require.NoError(t, err)
	_, err = ifc.Functions.Push("fd_close", &iface.Function{
		Name: "fd_close",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("u8"), ResourceType: "fd"},
		},
	})
	require.NoError(t, err)
	_, err = ifc.Functions.Push("args_sizes_get", &iface.Function{
		Name: "args_sizes_get",
	})
	require.NoError(t, err)
	return ifc
}

func TestResourcePickerSkipsFunctionsWithoutLiveResources(t *testing.T) {
	ifc := newFdInterface(t)
	ctx := resource.NewContext()

	u := wasitype.NewUnstructured([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	fn, err := (ResourcePicker{}).PickFunction(u, ifc, ctx)
	require.NoError(t, err)
	require.Equal(t, "args_sizes_get", fn.Name)
}

func TestResourcePickerIncludesFunctionOnceResourceExists(t *testing.T) {
	ifc := newFdInterface(t)
	ctx := resource.NewContext()
	ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 3})

	seen := map[string]bool{}
	for i := byte(0); i < 10; i++ {
		u := wasitype.NewUnstructured([]byte{i})
		fn, err := (ResourcePicker{}).PickFunction(u, ifc, ctx)
		require.NoError(t, err)
		seen[fn.Name] = true
	}
	require.True(t, seen["fd_close"])
}

func TestStatelessGeneratorBindsResourceParam(t *testing.T) {
	ifc := newFdInterface(t)
	ctx := resource.NewContext()
	id := ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 7})

	fn, _ := ifc.Functions.GetByName("fd_close")
	u := wasitype.NewUnstructured([]byte{0})

	assignment, err := (StatelessParamsGenerator{}).GenerateParams(u, ifc, ctx, fn)
	require.NoError(t, err)
	require.Equal(t, id, assignment.ResourceBinding["fd"])
	require.Equal(t, uint64(7), assignment.Values["fd"].Int)
}

func TestStatelessGeneratorPropagatesStringPrefixFromResource(t *testing.T) {
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("string", iface.TypeDef{Concrete: wasitype.StringType()})
	require.NoError(t, err)
	_, err = ifc.Resources.Push("path", &iface.ResourceType{
		Name:  "path",
		Value: iface.Symbolic("string"),
	})
	require.NoError(t, err)
	fn := &iface.Function{
		Name: "path_open",
		Params: []iface.Param{
			{Name: "base", Type: iface.Symbolic("string"), ResourceType: "path"},
			{Name: "subpath", Type: iface.Symbolic("string")},
		},
	}
	_, err = ifc.Functions.Push(fn.Name, fn)
	require.NoError(t, err)

	ctx := resource.NewContext()
	baseBytes := []byte("/tmp")
	baseValue := wasitype.Value{
		Type: wasitype.StringType(),
		List: []wasitype.Value{
			{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: uint64(baseBytes[0])},
			{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: uint64(baseBytes[1])},
			{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: uint64(baseBytes[2])},
			{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: uint64(baseBytes[3])},
		},
	}
	ctx.NewResource("path", baseValue)

	u := wasitype.NewUnstructured([]byte{0, 0})
	assignment, err := (StatelessParamsGenerator{}).GenerateParams(u, ifc, ctx, fn)
	require.NoError(t, err)

	sub := assignment.Values["subpath"]
	require.GreaterOrEqual(t, len(sub.List), len(baseBytes))
	for i, b := range baseBytes {
		require.Equal(t, uint64(b), sub.List[i].Int)
	}
}

func TestStatelessGeneratorFailsWithoutResources(t *testing.T) {
	ifc := newFdInterface(t)
	ctx := resource.NewContext()

	fn, _ := ifc.Functions.GetByName("fd_close")
	u := wasitype.NewUnstructured([]byte{0})

	_, err := (StatelessParamsGenerator{}).GenerateParams(u, ifc, ctx, fn)
	require.ErrorIs(t, err, ErrNoSolution)
}

func TestStatefulGeneratorSolvesContract(t *testing.T) {
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)
	fn := &iface.Function{
		Name: "args_sizes_get",
		Params: []iface.Param{
			{Name: "count", Type: iface.Symbolic("u8")},
		},
	}
	_, err = ifc.Functions.Push(fn.Name, fn)
	require.NoError(t, err)

	ctx := resource.NewContext()
	u := wasitype.NewUnstructured([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	gen := StatefulParamsGenerator{Backend: constraint.NewBruteForceBackend()}
	assignment, err := gen.GenerateParams(u, ifc, ctx, fn)
	require.NoError(t, err)
	require.Contains(t, assignment.Values, "count")
}

func TestSolverPickerOnlyAcceptsSatisfiableFunctions(t *testing.T) {
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)

	_, err = ifc.Functions.Push("impossible", &iface.Function{
		Name: "impossible",
		Params: []iface.Param{
			{Name: "x", Type: iface.Symbolic("u8")},
		},
		InputContract: term.IntLe{Lhs: term.IntConst{Value: big.NewInt(1)}, Rhs: term.IntConst{Value: big.NewInt(0)}},
	})
	require.NoError(t, err)
	_, err = ifc.Functions.Push("always_ok", &iface.Function{
		Name: "always_ok",
	})
	require.NoError(t, err)

	ctx := resource.NewContext()
	picker := SolverPicker{Backend: constraint.NewBruteForceBackend()}

	seen := map[string]bool{}
	for i := byte(0); i < 20; i++ {
		u := wasitype.NewUnstructured([]byte{i, i, i, i, i, i, i, i, i, i, i, i, i, i, i, i})
		fn, err := picker.PickFunction(u, ifc, ctx)
		require.NoError(t, err)
		seen[fn.Name] = true
	}
	require.True(t, seen["always_ok"])
	require.False(t, seen["impossible"])
}
