package runners

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Kind("plan9"), "/bin/true")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestWasmtimeMountsBaseDirWithDirFlag(t *testing.T) {
	r := Wasmtime{Path: "/usr/bin/wasmtime"}
	cmd := r.PrepareCommand("executor.wasm", "/tmp/base")
	require.Equal(t, []string{"/usr/bin/wasmtime", "run", "--dir", "/tmp/base", "executor.wasm"}, cmd.Args)
	require.Equal(t, uint32(3), r.BaseDirFD())
}

func TestWasmerMountsBaseDirWithMapdirFlag(t *testing.T) {
	r := Wasmer{Path: "/usr/bin/wasmer"}
	cmd := r.PrepareCommand("executor.wasm", "/tmp/base")
	require.Equal(t, []string{"/usr/bin/wasmer", "run", "--mapdir", ".:/tmp/base", "executor.wasm"}, cmd.Args)
	require.Equal(t, uint32(4), r.BaseDirFD())
}

func TestPrepareCommandOmitsMountFlagsWithoutBaseDir(t *testing.T) {
	r := Wamr{Path: "/usr/bin/iwasm"}
	cmd := r.PrepareCommand("executor.wasm", "")
	require.Equal(t, []string{"/usr/bin/iwasm", "executor.wasm"}, cmd.Args)
}
