// Command wazzi-tmin is the minimizer entrypoint named in spec §6. Full
// delta-debugging reproducer minimization is out of scope (spec §1
// Non-goals: "does not minimize reproducers"); this binary reads back a
// finished run's recorded call sequence and its originating seed, and
// reports what it found into a workspace directory, per
// original_source/tmin/src/main.rs's read-back-and-report shape.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("wazzi-tmin: fatal")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wazzi-tmin <run-dir> <seed> <workspace-dir>",
		Short: "Read back a recorded run's call sequence",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], args[2])
		},
	}
	return cmd
}

// runtimeReport is one runtime's read-back: its recorded call sequence
// and its final resource snapshot, if present.
type runtimeReport struct {
	Runtime   string                    `json:"runtime"`
	CallCount int                       `json:"call_count"`
	Calls     []trace.CallRecord        `json:"calls"`
	Resources *trace.ResourceSnapshot   `json:"resources,omitempty"`
}

// report is the workspace artifact this binary writes: the seed that
// produced the run, plus every runtime's read-back.
type report struct {
	SeedPath string          `json:"seed_path"`
	Seed     *seed.Seed      `json:"seed"`
	Runtimes []runtimeReport `json:"runtimes"`
}

func run(runDir, seedPath, workspaceDir string) error {
	s, err := readSeed(seedPath)
	if err != nil {
		return err
	}

	runtimeDirs, err := listRuntimeDirs(runDir)
	if err != nil {
		return err
	}
	if len(runtimeDirs) == 0 {
		return errors.Errorf("wazzi-tmin: %q contains no runtime subdirectories", runDir)
	}

	rep := report{SeedPath: seedPath, Seed: s}
	for _, name := range runtimeDirs {
		rr, err := readRuntimeReport(runDir, name)
		if err != nil {
			return errors.Wrapf(err, "wazzi-tmin: reading runtime %q", name)
		}
		rep.Runtimes = append(rep.Runtimes, rr)
		logrus.WithFields(logrus.Fields{
			"runtime": name,
			"calls":   rr.CallCount,
		}).Info("wazzi-tmin: read back run")
	}

	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return errors.Wrap(err, "wazzi-tmin: create workspace dir")
	}
	out, err := os.Create(filepath.Join(workspaceDir, "report.json"))
	if err != nil {
		return errors.Wrap(err, "wazzi-tmin: create report.json")
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rep), "wazzi-tmin: write report.json")
}

func readSeed(path string) (*seed.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "wazzi-tmin: open seed")
	}
	defer f.Close()
	return seed.Decode(f)
}

func listRuntimeDirs(runDir string) ([]string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, errors.Wrap(err, "wazzi-tmin: read run dir")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// readRuntimeReport decodes one runtime's calls/trace.jsonl (the
// JSONLinesSink output, one trace.CallRecord per line) and its
// resource_ctx.json snapshot, if the run finished cleanly enough to
// write one.
func readRuntimeReport(runDir, name string) (runtimeReport, error) {
	rr := runtimeReport{Runtime: name}

	tracePath := filepath.Join(runDir, name, "calls", "trace.jsonl")
	f, err := os.Open(tracePath)
	if err != nil {
		return rr, errors.Wrapf(err, "open %q", tracePath)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for dec.More() {
		var rec trace.CallRecord
		if err := dec.Decode(&rec); err != nil {
			return rr, errors.Wrapf(err, "decode call record in %q", tracePath)
		}
		rr.Calls = append(rr.Calls, rec)
	}
	rr.CallCount = len(rr.Calls)

	snapPath := filepath.Join(runDir, name, "resource_ctx.json")
	if snapFile, err := os.Open(snapPath); err == nil {
		defer snapFile.Close()
		var snap trace.ResourceSnapshot
		if err := json.NewDecoder(snapFile).Decode(&snap); err != nil {
			return rr, errors.Wrapf(err, "decode %q", snapPath)
		}
		rr.Resources = &snap
	}

	return rr, nil
}
