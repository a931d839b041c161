package runners

import (
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
)

// ErrUnknownKind is returned by New for a Kind with no registered
// adapter.
var ErrUnknownKind = errors.New("runners: unknown runtime kind")

// Wasmtime invokes `wasmtime run --dir <base> <wasm>`, pinning fd 3 for
// the mounted directory. Grounded on runners/src/lib.rs's Wasmtime.
type Wasmtime struct{ Path string }

func (Wasmtime) BaseDirFD() uint32 { return 3 }

func (r Wasmtime) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	args := []string{"run"}
	if baseDir != "" {
		args = append(args, "--dir", baseDir)
	}
	args = append(args, executorWasm)
	return exec.Command(r.Path, args...)
}

// Wasmedge invokes `wasmedge run --dir <base> <wasm>`, pinning fd 3.
// Grounded on runners/src/lib.rs's Wasmedge.
type Wasmedge struct{ Path string }

func (Wasmedge) BaseDirFD() uint32 { return 3 }

func (r Wasmedge) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	args := []string{"run"}
	if baseDir != "" {
		args = append(args, "--dir", baseDir)
	}
	args = append(args, executorWasm)
	return exec.Command(r.Path, args...)
}

// Wasmer invokes `wasmer run --mapdir .:<base> <wasm>`, pinning fd 4.
// Grounded on runners/src/lib.rs's Wasmer.
type Wasmer struct{ Path string }

func (Wasmer) BaseDirFD() uint32 { return 4 }

func (r Wasmer) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	args := []string{"run"}
	if baseDir != "" {
		args = append(args, "--mapdir", fmt.Sprintf(".:%s", baseDir))
	}
	args = append(args, executorWasm)
	return exec.Command(r.Path, args...)
}

// Wamr invokes `iwasm --dir=<base> <wasm>`, pinning fd 3. Grounded on
// runners/src/lib.rs's Wamr.
type Wamr struct{ Path string }

func (Wamr) BaseDirFD() uint32 { return 3 }

func (r Wamr) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	var args []string
	if baseDir != "" {
		args = append(args, fmt.Sprintf("--dir=%s", baseDir))
	}
	args = append(args, executorWasm)
	return exec.Command(r.Path, args...)
}

// Wazero invokes `wazero run -mount <base>:/ <wasm>`, pinning fd 3.
// Wazero itself is the teacher this module is built from: running it
// as one of the N fuzzed runtimes (rather than embedding it as a
// library) keeps every runtime behind the same subprocess boundary, so
// a divergence between wazero and the others is caught the same way as
// any other divergence.
type Wazero struct{ Path string }

func (Wazero) BaseDirFD() uint32 { return 3 }

func (r Wazero) PrepareCommand(executorWasm, baseDir string) *exec.Cmd {
	args := []string{"run"}
	if baseDir != "" {
		args = append(args, "-mount", baseDir+":/")
	}
	args = append(args, executorWasm)
	return exec.Command(r.Path, args...)
}
