package executor

import (
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// ErrExecutorIO marks a broken pipe, malformed frame, or EOF mid-frame
// talking to a runtime's executor subprocess (spec §7 "ExecutorIO"):
// isolate the owning worker, the run continues for the others.
var ErrExecutorIO = errors.New("executor: io error")

// ErrTimeout marks a call that did not complete before its deadline
// (spec §7 "Timeout", handled identically to ExecutorIO by callers).
var ErrTimeout = errors.New("executor: timeout")

// Process is a running wazzi-executor helper: one subprocess per
// runtime, driven strictly request-then-response (spec §5 "Ordering
// guarantees"). Grounded on
// original_source/executor/src/lib.rs's RunningExecutor, with the capnp
// message exchange replaced by the framed msgpack protocol in frame.go.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu sync.Mutex

	baseDirFD  uint32
	stderrDone chan struct{}
}

// Start launches cmd, wiring its stdin/stdout to the framed protocol
// and copying its stderr to stderrSink on a dedicated goroutine (spec
// §4.7 "a dedicated stderr copier to a per-runtime log sink").
func Start(cmd *exec.Cmd, baseDirFD uint32, stderrSink io.Writer) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "executor: stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "executor: stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "executor: stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "executor: start subprocess")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(stderrSink, stderr)
	}()

	return &Process{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		baseDirFD:  baseDirFD,
		stderrDone: done,
	}, nil
}

// BaseDirFD is the fixed fd number the runtime adapter pins for the
// fuzzed base directory (spec §9 "base-directory fd numbers").
func (p *Process) BaseDirFD() uint32 { return p.baseDirFD }

// Call issues a CallRequest and waits for the CallResponse, or returns
// ErrTimeout if ctx expires first. A timed-out call leaves the
// subprocess's reply unread; callers must Kill the Process afterward
// (spec §5 "await pending response up to a bounded secondary timeout
// before killing the child").
func (p *Process) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	type result struct {
		resp *CallResponse
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if err := writeFrame(p.stdin, Request{Call: req}); err != nil {
			ch <- result{err: errors.Wrap(ErrExecutorIO, err.Error())}
			return
		}
		var resp CallResponse
		if err := readFrame(p.stdout, &resp); err != nil {
			ch <- result{err: errors.Wrap(ErrExecutorIO, err.Error())}
			return
		}
		ch <- result{resp: &resp}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// Decl issues a DeclRequest and waits for its (bodyless) acknowledgment.
func (p *Process) Decl(ctx context.Context, req *DeclRequest) error {
	type result struct{ err error }
	ch := make(chan result, 1)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if err := writeFrame(p.stdin, Request{Decl: req}); err != nil {
			ch <- result{err: errors.Wrap(ErrExecutorIO, err.Error())}
			return
		}
		var ack struct{}
		if err := readFrame(p.stdout, &ack); err != nil {
			ch <- result{err: errors.Wrap(ErrExecutorIO, err.Error())}
			return
		}
		ch <- result{}
	}()

	select {
	case r := <-ch:
		return r.err
	case <-ctx.Done():
		return ErrTimeout
	}
}

// Kill forcefully terminates the subprocess and joins the stderr
// copier, per spec §5 "a forceful signal followed by a best-effort
// stderr-copier join".
func (p *Process) Kill() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.stderrDone
	_ = p.cmd.Wait()
	return nil
}
