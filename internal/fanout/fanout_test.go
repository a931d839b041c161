package fanout

import (
	"context"
	"io"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/executor"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/paramgen"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

type stubRunner struct{}

func (stubRunner) BaseDirFD() uint32 { return 3 }
func (stubRunner) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	return exec.Command("stub", executorWasm, baseDir)
}

type fakeProc struct {
	call func(context.Context, *executor.CallRequest) (*executor.CallResponse, error)
}

func (p fakeProc) Call(ctx context.Context, req *executor.CallRequest) (*executor.CallResponse, error) {
	return p.call(ctx, req)
}
func (fakeProc) Kill() error { return nil }

type fixedPicker struct{ fn *iface.Function }

func (p fixedPicker) PickFunction(*wasitype.Unstructured, *iface.Interface, *resource.Context) (*iface.Function, error) {
	return p.fn, nil
}

type failPicker struct{}

func (failPicker) PickFunction(*wasitype.Unstructured, *iface.Interface, *resource.Context) (*iface.Function, error) {
	return nil, paramgen.ErrNoCandidate
}

type emptyGenerator struct{}

func (emptyGenerator) GenerateParams(*wasitype.Unstructured, *iface.Interface, *resource.Context, *iface.Function) (*constraint.Assignment, error) {
	return &constraint.Assignment{Values: map[string]wasitype.Value{}, ResourceBinding: map[string]uint64{}}, nil
}

func noopFn() *iface.Function { return &iface.Function{Name: "noop"} }

func withStub(t *testing.T, ctor func(cmd *exec.Cmd, baseDirFD uint32, stderr io.Writer) (procCloser, error)) {
	t.Helper()
	orig := startExecutor
	startExecutor = ctor
	t.Cleanup(func() { startExecutor = orig })
}

func TestRunIsolatesOneWorkersExecutorIOError(t *testing.T) {
	var bSteps int32

	withStub(t, func(cmd *exec.Cmd, baseDirFD uint32, stderr io.Writer) (procCloser, error) {
		switch cmd.Args[0] {
		case "a":
			return fakeProc{call: func(context.Context, *executor.CallRequest) (*executor.CallResponse, error) {
				return nil, executor.ErrExecutorIO
			}}, nil
		default:
			return fakeProc{call: func(context.Context, *executor.CallRequest) (*executor.CallResponse, error) {
				atomic.AddInt32(&bSteps, 1)
				return &executor.CallResponse{}, nil
			}}, nil
		}
	})

	ifc := iface.NewInterface()
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	f := &Fanout{
		Ifc: ifc,
		Workers: []Worker{
			{
				Name:      "a",
				Runner:    namedStubRunner{"a"},
				Entropy:   wasitype.NewUnstructured(make([]byte, 4096)),
				Picker:    fixedPicker{fn: noopFn()},
				Generator: emptyGenerator{},
				Sink:      trace.NewMemSink(),
			},
			{
				Name:      "b",
				Runner:    namedStubRunner{"b"},
				Entropy:   wasitype.NewUnstructured(make([]byte, 4096)),
				Picker:    fixedPicker{fn: noopFn()},
				Generator: emptyGenerator{},
				Sink:      trace.NewMemSink(),
			},
		},
	}

	err := f.Run(ctx)
	require.ErrorIs(t, err, executor.ErrExecutorIO)
	require.Greater(t, atomic.LoadInt32(&bSteps), int32(0), "worker b must keep running after worker a's error")
}

func TestRunReturnsNilWhenAWorkerHitsTerminalPickCondition(t *testing.T) {
	withStub(t, func(cmd *exec.Cmd, baseDirFD uint32, stderr io.Writer) (procCloser, error) {
		return fakeProc{call: func(context.Context, *executor.CallRequest) (*executor.CallResponse, error) {
			return &executor.CallResponse{}, nil
		}}, nil
	})

	ifc := iface.NewInterface()
	f := &Fanout{
		Ifc: ifc,
		Workers: []Worker{
			{
				Name:      "only",
				Runner:    stubRunner{},
				Entropy:   wasitype.NewUnstructured(make([]byte, 16)),
				Picker:    failPicker{},
				Generator: emptyGenerator{},
				Sink:      trace.NewMemSink(),
			},
		},
	}

	require.NoError(t, f.Run(context.Background()))
}

// TestRunReplaysInitialSeedBeforeRandomizedLoop checks that a Worker's
// InitialSeed is executed before the randomized loop gives up: one Decl
// pre-registers a "fd" resource at a chosen id, one Call replays
// "fd_close" against it, and only then does the (immediately terminal)
// failPicker end the run.
func TestRunReplaysInitialSeedBeforeRandomizedLoop(t *testing.T) {
	var calls int32
	withStub(t, func(cmd *exec.Cmd, baseDirFD uint32, stderr io.Writer) (procCloser, error) {
		return fakeProc{call: func(context.Context, *executor.CallRequest) (*executor.CallResponse, error) {
			atomic.AddInt32(&calls, 1)
			return &executor.CallResponse{
				Params: []wasitype.Wire{wasitype.ToWire(wasitype.Value{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: 3})},
			}, nil
		}}, nil
	})

	ifc := iface.NewInterface()
	_, err := ifc.Types.Push("u8", iface.TypeDef{Concrete: wasitype.Type{Kind: wasitype.KindU8}})
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

	fdID := uint64(7)
	runStore := trace.NewMemRunStore()
	sink := trace.NewMemSink()

	f := &Fanout{
		Ifc: ifc,
		Workers: []Worker{
			{
				Name:    "only",
				Runner:  stubRunner{},
				Entropy: wasitype.NewUnstructured(make([]byte, 16)),
				InitialSeed: &seed.Seed{
					Actions: []seed.Action{
						{
							Kind: "decl",
							Decl: &seed.Decl{
								ResourceID:   fdID,
								ResourceType: "fd",
								Value:        wasitype.ToWire(wasitype.Value{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: 3}),
							},
						},
						{
							Kind: "call",
							Call: &seed.Call{
								Func:    "fd_close",
								Params:  []seed.ParamValue{{ResourceID: &fdID}},
								Results: []seed.ResultSpec{},
							},
						},
					},
				},
				Picker:    failPicker{},
				Generator: emptyGenerator{},
				Sink:      sink,
				RunStore:  runStore,
			},
		},
	}

	require.NoError(t, f.Run(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "seed's Call action must have been executed exactly once")
	require.Len(t, sink.Records, 1)

	snap := runStore.Snapshot()
	require.NotNil(t, snap)
	require.Contains(t, snap.Resources, fdID)
	require.Equal(t, "fd", snap.Resources[fdID].TypeName)
}

type namedStubRunner struct{ name string }

func (r namedStubRunner) BaseDirFD() uint32 { return 3 }
func (r namedStubRunner) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	return exec.Command(r.name, executorWasm, baseDir)
}
