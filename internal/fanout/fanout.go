// Package fanout implements the runtime fan-out (spec §4.7, component
// C7): one cooperative worker per fuzzed runtime, each with its own
// entropy clone, resource context, and executor subprocess, run inside
// a bounded scope. Grounded on
// original_source/dyn-fuzzer/src/fuzzer.rs's Fuzzer/FuzzScope, which
// uses std::thread::scope to the same end; this port uses
// golang.org/x/sync/errgroup instead of a scoped-thread API Go doesn't
// have.
package fanout

import (
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/wazzi-fuzz/wazzi/internal/callengine"
	"github.com/wazzi-fuzz/wazzi/internal/executor"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/paramgen"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/runners"
	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// procCloser is the subset of *executor.Process a worker needs: issue
// calls, and forcefully tear the subprocess down when the loop ends.
// Factored out as an interface (rather than using *executor.Process
// directly) so tests can drive runWorker without spawning a real
// subprocess.
type procCloser interface {
	callengine.Caller
	Kill() error
}

// startExecutor launches the runtime's helper subprocess. Overridable
// in tests.
var startExecutor = func(cmd *exec.Cmd, baseDirFD uint32, stderr io.Writer) (procCloser, error) {
	return executor.Start(cmd, baseDirFD, stderr)
}

// Worker names one runtime's slice of a run: the pieces in spec §4.7's
// bullet list that must NOT be shared across runtimes.
type Worker struct {
	Name string

	Runner       runners.WasiRunner
	ExecutorWasm string
	BaseDir      string
	Stderr       io.Writer

	Entropy *wasitype.Unstructured

	BaseDirResourceType  string
	BaseDirResourceValue wasitype.Value

	// InitialSeed, if set, is replayed as a deterministic prefix before
	// randomized fuzzing begins: every Decl pre-registers a resource,
	// every Call drives one fixed call through the engine (spec §6).
	InitialSeed *seed.Seed

	Picker    paramgen.FunctionPicker
	Generator paramgen.ParamsGenerator
	Sink      trace.Sink
	RunStore  trace.RunStore // optional; nil skips the end-of-run snapshot
}

// Fanout runs a fixed set of Workers against one shared, immutable
// Interface (spec §4.7's "workers share the immutable interface model
// but do not share contexts").
type Fanout struct {
	Ifc      *iface.Interface
	Workers  []Worker
	Deadline time.Time // zero means no deadline beyond ctx
}

// Run spawns one goroutine per worker and waits for all of them to
// finish. A worker that hits a terminal pick/solve condition
// (paramgen.ErrNoCandidate / paramgen.ErrNoSolution) stops cleanly and
// reports no error: spec §4.6 calls these "not an error, but a terminal
// state for this seed". A worker that hits ExecutorIO or Timeout
// reports that error but does not cancel its siblings (spec §7:
// "isolate the owning worker, the run continues for the others"),
// which is why this uses a plain errgroup.Group rather than
// errgroup.WithContext — the latter would cancel every other worker's
// context as soon as one returns an error.
func (f *Fanout) Run(ctx context.Context) error {
	runCtx := ctx
	if !f.Deadline.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, f.Deadline)
		defer cancel()
	}

	var g errgroup.Group
	for _, w := range f.Workers {
		w := w
		g.Go(func() error {
			return runWorker(runCtx, f.Ifc, w)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, ifc *iface.Interface, w Worker) error {
	rctx := resource.NewContext()
	if w.BaseDirResourceType != "" {
		rctx.NewResource(w.BaseDirResourceType, w.BaseDirResourceValue)
	}

	cmd := w.Runner.PrepareCommand(w.ExecutorWasm, w.BaseDir)
	proc, err := startExecutor(cmd, w.Runner.BaseDirFD(), w.Stderr)
	if err != nil {
		return errors.Wrapf(err, "fanout: starting %q executor", w.Name)
	}
	defer proc.Kill()

	engine := &callengine.Engine{
		Ifc:       ifc,
		Ctx:       rctx,
		Process:   proc,
		Picker:    w.Picker,
		Generator: w.Generator,
		Recorder:  trace.NewRecorder(w.Sink),
	}

	var loopErr error
	if w.InitialSeed != nil {
		loopErr = replaySeed(ctx, engine, w.Entropy, w.InitialSeed)
	}
	if loopErr == nil {
		loopErr = loop(ctx, engine, w.Entropy)
	}

	if w.RunStore != nil {
		if err := w.RunStore.FinishRun(rctx); err != nil {
			if loopErr == nil {
				loopErr = errors.Wrapf(err, "fanout: %q finish run", w.Name)
			}
		}
	}

	return loopErr
}

// replaySeed executes s's Decl/Call prefix against engine before the
// randomized loop starts (spec §6 "Seed format": "Decls populate the
// resource context; Calls... drive an initial deterministic prefix
// before randomized fuzzing begins"). Any error here is a hard fault
// for this worker — a malformed seed is not a condition the rest of
// spec §7's taxonomy treats as terminal-not-error.
func replaySeed(ctx context.Context, engine *callengine.Engine, u *wasitype.Unstructured, s *seed.Seed) error {
	for i, a := range s.Actions {
		switch a.Kind {
		case "decl":
			if err := engine.ReplayDecl(*a.Decl); err != nil {
				return errors.Wrapf(err, "seed action %d", i)
			}
		case "call":
			if err := engine.ReplayCall(ctx, u, *a.Call); err != nil {
				return errors.Wrapf(err, "seed action %d", i)
			}
		default:
			return errors.Wrapf(seed.ErrUnknownActionKind, "seed action %d: %q", i, a.Kind)
		}
	}
	return nil
}

// loop runs engine.Step until the run deadline passes or a terminal or
// fatal condition is reached (spec §4.6 step 8, "repeat"; spec §5
// "workers must observe deadline expiry between calls").
func loop(ctx context.Context, engine *callengine.Engine, u *wasitype.Unstructured) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := engine.Step(ctx, u)
		if err == nil {
			continue
		}

		if errors.Is(err, paramgen.ErrNoCandidate) || errors.Is(err, paramgen.ErrNoSolution) {
			return nil
		}
		if errors.Is(err, wasitype.ErrEntropyExhausted) {
			return nil
		}
		return err
	}
}
