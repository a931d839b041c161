// Package paramgen implements component C5 (spec §4.5/§4.6): choosing
// which function to call next (FunctionPicker) and choosing the
// parameter values to call it with (ParamsGenerator).
//
// Both axes are pluggable, mirroring
// original_source/specz/src/function_picker and
// original_source/specz/src/param_generator: a ResourcePicker/
// StatelessParamsGenerator pair that never touches the SMT backend, and
// a SolverPicker/StatefulParamsGenerator pair that filters and
// generates through internal/constraint.
package paramgen

import (
	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
)

// ErrNoCandidate is returned when no function in the interface is a
// valid candidate (every candidate filtered out by resource
// availability or by an unsatisfiable input contract). Per spec §7 this
// is terminal-not-error: callers should end the run cleanly, not treat
// it as a bug.
var ErrNoCandidate = errors.New("paramgen: no candidate function")

// ErrNoSolution is returned by a ParamsGenerator when the chosen
// function's input contract has no satisfying assignment against the
// current resource context. Also terminal-not-error.
var ErrNoSolution = errors.New("paramgen: no solution for function's input contract")

// CheckResult re-exports constraint.CheckResult so callers outside
// internal/constraint never need to import it directly just to read a
// Solve result.
type CheckResult = constraint.CheckResult
