// Command wazzi-fuzz is the fuzzer entrypoint (spec §6 "CLI surface").
// It reads one entropy corpus file per run from a seeds directory,
// replays an optional initial-data prefix, drives internal/fanout
// against every configured runtime, and leaves one trace per runtime
// under a fresh run directory beneath its results root.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/fanout"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/paramgen"
	"github.com/wazzi-fuzz/wazzi/internal/runners"
	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
	"github.com/wazzi-fuzz/wazzi/internal/wasip1"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("wazzi-fuzz: fatal")
		os.Exit(1)
	}
}

// config holds the flags spec §6 names for the fuzzer: an optional
// initial-data path, a results-root directory, and a seeds directory,
// plus the runtime/policy selection SPEC_FULL.md §3 adds so the CLI can
// actually drive a run end to end.
type config struct {
	initialData  string
	resultsRoot  string
	seedsDir     string
	executorWasm string
	runtimeFlags []string
	deadline     time.Duration
	picker       string
	generator    string
	verbose      bool
}

func newRootCommand() *cobra.Command {
	cfg := &config{}

	cmd := &cobra.Command{
		Use:   "wazzi-fuzz",
		Short: "Differentially fuzz WASI host implementations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return runAll(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.initialData, "initial-data", "", "optional seed JSON replayed as a deterministic prefix before every run")
	flags.StringVar(&cfg.resultsRoot, "results-root", "", "directory traces and resource snapshots are written under (required)")
	flags.StringVar(&cfg.seedsDir, "seeds-dir", "", "directory of entropy corpus files, one run per file (required)")
	flags.StringVar(&cfg.executorWasm, "executor-wasm", "", "path to the wazzi-executor wasm module loaded by every runtime (required)")
	flags.StringArrayVar(&cfg.runtimeFlags, "runtime", nil, "kind=path pair naming a runtime to fuzz, e.g. wasmtime=/usr/bin/wasmtime (repeatable, at least one required)")
	flags.DurationVar(&cfg.deadline, "deadline", 30*time.Second, "wall-clock deadline for each run")
	flags.StringVar(&cfg.picker, "picker", "resource", "function picker: resource or solver")
	flags.StringVar(&cfg.generator, "generator", "stateless", "parameter generator: stateless or stateful")
	flags.BoolVar(&cfg.verbose, "verbose", false, "enable debug logging")

	for _, name := range []string{"results-root", "seeds-dir", "executor-wasm", "runtime"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// namedRunner pairs a runtime kind's human name with its adapter, so
// log fields and worker names read "wasmtime" rather than a Go type
// name.
type namedRunner struct {
	name   string
	runner runners.WasiRunner
}

func parseRuntimes(specs []string) ([]namedRunner, error) {
	var out []namedRunner
	for _, s := range specs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("wazzi-fuzz: --runtime %q must be kind=path", s)
		}
		r, err := runners.New(runners.Kind(parts[0]), parts[1])
		if err != nil {
			return nil, errors.Wrapf(err, "wazzi-fuzz: --runtime %q", s)
		}
		out = append(out, namedRunner{name: parts[0], runner: r})
	}
	if len(out) == 0 {
		return nil, errors.New("wazzi-fuzz: at least one --runtime is required")
	}
	return out, nil
}

// buildPolicy wires the --picker/--generator flags to the paramgen
// variants spec §9 calls out as a closed pair of pluggable pairs
// ("resource, solver" and "stateless, stateful"), sharing one Z3Backend
// when either side needs the solver.
func buildPolicy(pickerKind, generatorKind string) (paramgen.FunctionPicker, paramgen.ParamsGenerator, error) {
	var backend constraint.Backend
	if pickerKind == "solver" || generatorKind == "stateful" {
		backend = constraint.NewZ3Backend()
	}

	var picker paramgen.FunctionPicker
	switch pickerKind {
	case "resource":
		picker = paramgen.ResourcePicker{}
	case "solver":
		picker = paramgen.SolverPicker{Backend: backend}
	default:
		return nil, nil, errors.Errorf("wazzi-fuzz: unknown --picker %q", pickerKind)
	}

	var generator paramgen.ParamsGenerator
	switch generatorKind {
	case "stateless":
		generator = paramgen.StatelessParamsGenerator{}
	case "stateful":
		generator = paramgen.StatefulParamsGenerator{Backend: backend}
	default:
		return nil, nil, errors.Errorf("wazzi-fuzz: unknown --generator %q", generatorKind)
	}

	return picker, generator, nil
}

func listSeedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "wazzi-fuzz: read seeds dir")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// runAll drives one run per file under --seeds-dir, each run's entropy
// being that file's raw bytes (spec §9 glossary: "the initial entropy
// ... that ... fully determine a run"). A run failing does not stop the
// corpus walk; it is logged and the next file proceeds.
func runAll(ctx context.Context, cfg *config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	ifc, err := wasip1.BuildInterface()
	if err != nil {
		return errors.Wrap(err, "wazzi-fuzz: build interface")
	}

	runtimeList, err := parseRuntimes(cfg.runtimeFlags)
	if err != nil {
		return err
	}

	picker, generator, err := buildPolicy(cfg.picker, cfg.generator)
	if err != nil {
		return err
	}

	var initial *seed.Seed
	if cfg.initialData != "" {
		initial, err = readSeed(cfg.initialData)
		if err != nil {
			return err
		}
	}

	corpus, err := listSeedFiles(cfg.seedsDir)
	if err != nil {
		return err
	}
	if len(corpus) == 0 {
		return errors.Errorf("wazzi-fuzz: no entropy files found under %q", cfg.seedsDir)
	}

	if err := os.MkdirAll(cfg.resultsRoot, 0o755); err != nil {
		return errors.Wrap(err, "wazzi-fuzz: create results root")
	}

	for _, path := range corpus {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := runOne(ctx, cfg, ifc, runtimeList, initial, picker, generator, path); err != nil {
			logrus.WithError(err).WithField("seed", path).Error("wazzi-fuzz: run failed")
		}
	}
	return nil
}

func readSeed(path string) (*seed.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "wazzi-fuzz: open initial-data")
	}
	defer f.Close()
	return seed.Decode(f)
}

// runOne executes one seed's run: a fresh run directory, one worker per
// configured runtime, fanned out per spec §4.7.
func runOne(
	ctx context.Context,
	cfg *config,
	ifc *iface.Interface,
	runtimeList []namedRunner,
	initial *seed.Seed,
	picker paramgen.FunctionPicker,
	generator paramgen.ParamsGenerator,
	entropyPath string,
) error {
	raw, err := os.ReadFile(entropyPath)
	if err != nil {
		return errors.Wrapf(err, "wazzi-fuzz: read entropy file %q", entropyPath)
	}
	entropy := wasitype.NewUnstructured(raw)

	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"run": runID, "seed": filepath.Base(entropyPath)})
	log.Info("wazzi-fuzz: starting run")

	runDir := filepath.Join(cfg.resultsRoot, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrap(err, "wazzi-fuzz: create run dir")
	}

	mountBaseDir := true
	if initial != nil {
		mountBaseDir = initial.MountBaseDir
	}

	var workers []fanout.Worker
	for _, nr := range runtimeList {
		runtimeDir := filepath.Join(runDir, nr.name)
		if err := os.MkdirAll(filepath.Join(runtimeDir, "calls"), 0o755); err != nil {
			return errors.Wrapf(err, "wazzi-fuzz: create runtime dir for %q", nr.name)
		}
		baseDir := ""
		if mountBaseDir {
			baseDir = filepath.Join(runtimeDir, "base")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return errors.Wrapf(err, "wazzi-fuzz: create base dir for %q", nr.name)
			}
		}

		traceFile, err := os.Create(filepath.Join(runtimeDir, "calls", "trace.jsonl"))
		if err != nil {
			return errors.Wrapf(err, "wazzi-fuzz: create trace file for %q", nr.name)
		}
		defer traceFile.Close()

		stderrFile, err := os.Create(filepath.Join(runtimeDir, "stderr.log"))
		if err != nil {
			return errors.Wrapf(err, "wazzi-fuzz: create stderr log for %q", nr.name)
		}
		defer stderrFile.Close()

		runStore, err := trace.NewFsRunStore(runtimeDir)
		if err != nil {
			return errors.Wrapf(err, "wazzi-fuzz: create run store for %q", nr.name)
		}

		workers = append(workers, fanout.Worker{
			Name:                nr.name,
			Runner:              nr.runner,
			ExecutorWasm:        cfg.executorWasm,
			BaseDir:             baseDir,
			Stderr:              stderrFile,
			Entropy:             entropy.Clone(),
			BaseDirResourceType: "fd",
			BaseDirResourceValue: wasitype.Value{
				Type: wasitype.Type{Kind: wasitype.KindHandle},
				Int:  uint64(nr.runner.BaseDirFD()),
			},
			InitialSeed: initial,
			Picker:      picker,
			Generator:   generator,
			Sink:        trace.NewJSONLinesSink(traceFile),
			RunStore:    runStore,
		})
	}

	f := &fanout.Fanout{
		Ifc:      ifc,
		Workers:  workers,
		Deadline: time.Now().Add(cfg.deadline),
	}

	if err := f.Run(ctx); err != nil {
		log.WithError(err).Error("wazzi-fuzz: run finished with an error")
		return err
	}
	log.Info("wazzi-fuzz: run finished")
	return nil
}
