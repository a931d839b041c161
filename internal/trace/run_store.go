package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/resource"
)

// RunStore finishes a run by persisting its final resource context,
// grounded on run_store.rs's RunStore trait.
type RunStore interface {
	FinishRun(ctx *resource.Context) error
}

// MemRunStore keeps the last finished run's snapshot in memory, grounded
// on run_store.rs's MemRunStore — used by tests and single-process
// callers that want the result without touching disk.
type MemRunStore struct {
	mu       sync.Mutex
	snapshot *ResourceSnapshot
}

func NewMemRunStore() *MemRunStore { return &MemRunStore{} }

func (s *MemRunStore) FinishRun(ctx *resource.Context) error {
	snap := SnapshotResources(ctx)
	s.mu.Lock()
	s.snapshot = &snap
	s.mu.Unlock()
	return nil
}

// Snapshot returns the most recently finished run's resource snapshot,
// or nil if none has finished yet.
func (s *MemRunStore) Snapshot() *ResourceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// FsRunStore persists a run's resource context as resource_ctx.json
// under root, grounded on run_store.rs's FsRunStore.
type FsRunStore struct {
	root string
}

// NewFsRunStore resolves path to an absolute root directory that must
// already exist.
func NewFsRunStore(path string) (*FsRunStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "trace: resolve run store root")
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errors.Errorf("trace: run store root %q is not a directory", abs)
	}
	return &FsRunStore{root: abs}, nil
}

func (s *FsRunStore) resourceCtxPath() string {
	return filepath.Join(s.root, "resource_ctx.json")
}

func (s *FsRunStore) FinishRun(ctx *resource.Context) error {
	f, err := os.OpenFile(s.resourceCtxPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "trace: open resource_ctx.json")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(SnapshotResources(ctx)), "trace: write resource_ctx.json")
}

// CallsDir returns the directory a RunStore's caller should write one
// JSONLinesSink file per runtime into, grounded on store.rs's
// ExecutionStore laying a "calls" directory under its run root.
func (s *FsRunStore) CallsDir() string {
	return filepath.Join(s.root, "calls")
}
