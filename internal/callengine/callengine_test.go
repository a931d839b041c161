package callengine

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/executor"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func u8Type() wasitype.Type { return wasitype.Type{Kind: wasitype.KindU8} }

type fixedPicker struct{ fn *iface.Function }

func (p fixedPicker) PickFunction(*wasitype.Unstructured, *iface.Interface, *resource.Context) (*iface.Function, error) {
	return p.fn, nil
}

type fixedGenerator struct{ assignment *constraint.Assignment }

func (g fixedGenerator) GenerateParams(*wasitype.Unstructured, *iface.Interface, *resource.Context, *iface.Function) (*constraint.Assignment, error) {
	return g.assignment, nil
}

type fixedCaller struct{ resp *executor.CallResponse }

func (c fixedCaller) Call(context.Context, *executor.CallRequest) (*executor.CallResponse, error) {
	return c.resp, nil
}

func newFdSeekInterface(t *testing.T) (*iface.Interface, *iface.Function) {
	t.Helper()
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)
	_, err = ifc.Resources.Push("fd", &iface.ResourceType{
		Name:       "fd",
		Value:      iface.Symbolic("u8"),
		Attributes: []iface.AttributeDef{{Name: "offset", Type: iface.Symbolic("u8")}},
	})
	require.NoError(t, err)

	fn := &iface.Function{
		Name: "fd_seek",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("u8"), ResourceType: "fd"},
			{Name: "delta", Type: iface.Symbolic("u8")},
		},
		Results: []iface.Result{
			{Name: "newoffset", Type: iface.Symbolic("u8")},
		},
		Effects: []term.EffectStmt{
			term.AttrSet{
				Resource: "fd",
				Attr:     "offset",
				Value: term.FromTerm{Term: term.IntAdd{
					Lhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
					Rhs: term.Param{Name: "delta"},
				}},
			},
		},
	}
	_, err = ifc.Functions.Push(fn.Name, fn)
	require.NoError(t, err)
	return ifc, fn
}

func TestStepUpdatesResourceAttributeViaEffect(t *testing.T) {
	ifc, fn := newFdSeekInterface(t)
	ctx := resource.NewContext()
	id := ctx.NewResource("fd", wasitype.Value{Type: u8Type(), Int: 1})
	require.NoError(t, ctx.SetAttr(id, "offset", wasitype.Value{Type: u8Type(), Int: 5}, map[string]bool{"offset": true}))

	assignment := &constraint.Assignment{
		Values: map[string]wasitype.Value{
			"fd":    {Type: u8Type(), Int: 1},
			"delta": {Type: u8Type(), Int: 3},
		},
		ResourceBinding: map[string]uint64{"fd": id},
	}

	resp := &executor.CallResponse{
		Params: []wasitype.Wire{
			wasitype.ToWire(wasitype.Value{Type: u8Type(), Int: 1}),
			wasitype.ToWire(wasitype.Value{Type: u8Type(), Int: 3}),
		},
		Results: []wasitype.Wire{
			wasitype.ToWire(wasitype.Value{Type: u8Type(), Int: 8}),
		},
	}

	sink := trace.NewMemSink()
	engine := &Engine{
		Ifc:       ifc,
		Ctx:       ctx,
		Process:   fixedCaller{resp: resp},
		Picker:    fixedPicker{fn: fn},
		Generator: fixedGenerator{assignment: assignment},
		Recorder:  trace.NewRecorder(sink),
	}

	require.NoError(t, engine.Step(context.Background(), wasitype.NewUnstructured([]byte{0, 0, 0, 0, 0, 0, 0, 0})))

	r, ok := ctx.Get(id)
	require.True(t, ok)
	require.Equal(t, uint64(8), r.Attributes["offset"].Int)

	require.Len(t, sink.Records, 1)
	require.Equal(t, "fd_seek", sink.Records[0].Func)
}

func TestStepRegistersNewResourceFromResult(t *testing.T) {
	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: u8Type()})
	require.NoError(t, err)
	_, err = ifc.Resources.Push("fd", &iface.ResourceType{
		Name:       "fd",
		Value:      iface.Symbolic("u8"),
		Attributes: []iface.AttributeDef{{Name: "offset", Type: iface.Symbolic("u8")}},
	})
	require.NoError(t, err)

	fn := &iface.Function{
		Name: "path_open",
		Results: []iface.Result{
			{Name: "fd", Type: iface.Symbolic("u8"), ResourceType: "fd"},
		},
		Effects: []term.EffectStmt{
			term.AttrSet{
				Resource: "fd",
				Attr:     "offset",
				Value:    term.FromTerm{Term: term.IntConst{Value: big.NewInt(0)}},
			},
		},
	}
	_, err = ifc.Functions.Push(fn.Name, fn)
	require.NoError(t, err)

	ctx := resource.NewContext()
	resp := &executor.CallResponse{
		Results: []wasitype.Wire{
			wasitype.ToWire(wasitype.Value{Type: u8Type(), Int: 42}),
		},
	}

	sink := trace.NewMemSink()
	engine := &Engine{
		Ifc:     ifc,
		Ctx:     ctx,
		Process: fixedCaller{resp: resp},
		Picker:  fixedPicker{fn: fn},
		Generator: fixedGenerator{assignment: &constraint.Assignment{
			Values:          map[string]wasitype.Value{},
			ResourceBinding: map[string]uint64{},
		}},
		Recorder: trace.NewRecorder(sink),
	}

	require.NoError(t, engine.Step(context.Background(), wasitype.NewUnstructured([]byte{0, 0, 0, 0, 0, 0, 0, 0})))

	ids := ctx.ByType("fd")
	require.Len(t, ids, 1)
	r, ok := ctx.Get(ids[0])
	require.True(t, ok)
	require.Equal(t, uint64(42), r.Value.Int)
	require.Equal(t, uint64(0), r.Attributes["offset"].Int)
}
