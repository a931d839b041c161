// Package runners implements the per-runtime subprocess-launching
// adapters spec §9 calls out as a tagged variant rather than an open
// interface ("Dynamic dispatch over runtime adapters"), grounded on
// original_source/runners/src/lib.rs's WasiRunner trait and its
// Wasmedge/Wasmer/Wasmtime/Wamr implementations.
package runners

import (
	"os/exec"
)

// WasiRunner prepares the command line for one runtime's CLI to load
// the wazzi-executor wasm module, and reports the fd number that
// runtime pins for a mounted base directory (spec §9's open question
// (b): this assumes a fixed fd per runtime, probed once and hard-coded
// here rather than discovered at runtime via fd_prestat_get).
type WasiRunner interface {
	// BaseDirFD is the fd number this runtime assigns the mounted base
	// directory, when one is mounted.
	BaseDirFD() uint32

	// PrepareCommand builds the exec.Cmd that loads executorWasm,
	// mounting baseDir if non-empty. Stdin/stdout/stderr are left for
	// the caller (internal/executor.Start) to wire up as pipes.
	PrepareCommand(executorWasm string, baseDir string) *exec.Cmd
}

// Kind names one of the fixed runtime variants, used by configuration
// and by trace/log file naming.
type Kind string

const (
	KindWasmtime Kind = "wasmtime"
	KindWasmedge Kind = "wasmedge"
	KindWasmer   Kind = "wasmer"
	KindWamr     Kind = "wamr"
	KindWazero   Kind = "wazero"
)

// New builds the WasiRunner for kind, invoking the runtime's CLI at
// binaryPath.
func New(kind Kind, binaryPath string) (WasiRunner, error) {
	switch kind {
	case KindWasmtime:
		return Wasmtime{Path: binaryPath}, nil
	case KindWasmedge:
		return Wasmedge{Path: binaryPath}, nil
	case KindWasmer:
		return Wasmer{Path: binaryPath}, nil
	case KindWamr:
		return Wamr{Path: binaryPath}, nil
	case KindWazero:
		return Wazero{Path: binaryPath}, nil
	default:
		return nil, ErrUnknownKind
	}
}
