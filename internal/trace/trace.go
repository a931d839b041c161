// Package trace implements the per-runtime, per-run trace output (spec
// §6 "Trace output") and the end-of-run resource context snapshot,
// grounded on original_source/wasi/src/recorder.rs (the call log) and
// original_source/wasi/src/run_store.rs (the resource snapshot).
package trace

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// CallRecord is one call's outcome, in the stable shape spec §6
// requires for the downstream oracle.
type CallRecord struct {
	Func    string          `json:"func"`
	Errno   *int32          `json:"errno,omitempty"`
	Params  []wasitype.Wire `json:"params"`
	Results []wasitype.Wire `json:"results"`
}

// Recorder appends CallRecords to a Sink in call order, numbering them,
// mirroring recorder.rs's Recorder/SnapshotHandler split.
type Recorder struct {
	mu   sync.Mutex
	sink Sink
	next int
}

// Sink receives each recorded call as it completes.
type Sink interface {
	RecordCall(idx int, rec CallRecord) error
}

// NewRecorder wraps sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record appends rec, assigning it the next sequential index.
func (r *Recorder) Record(rec CallRecord) error {
	r.mu.Lock()
	idx := r.next
	r.next++
	r.mu.Unlock()

	return r.sink.RecordCall(idx, rec)
}

// MemSink accumulates CallRecords in memory, grounded on recorder.rs's
// InMemorySnapshots — used by tests, which read the whole sequence back
// rather than stream it.
type MemSink struct {
	mu      sync.Mutex
	Records []CallRecord
}

func NewMemSink() *MemSink { return &MemSink{} }

func (s *MemSink) RecordCall(idx int, rec CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx == len(s.Records) {
		s.Records = append(s.Records, rec)
		return nil
	}
	for len(s.Records) <= idx {
		s.Records = append(s.Records, CallRecord{})
	}
	s.Records[idx] = rec
	return nil
}

// JSONLinesSink appends one JSON object per line to w, the on-disk
// trace format spec §6 names.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) RecordCall(_ int, rec CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}

// ResourceSnapshot is the on-disk shape of a finished run's resource
// context, grounded on run_store.rs's Resources (there a
// BTreeMap<u64, Resource>, here the same ids-ascending map rendered as
// a JSON object so it stays diffable).
type ResourceSnapshot struct {
	Resources map[uint64]ResourceSnapshotEntry `json:"resources"`
}

type ResourceSnapshotEntry struct {
	TypeName   string                   `json:"type_name"`
	Value      wasitype.Wire            `json:"value"`
	Attributes map[string]wasitype.Wire `json:"attributes"`
}

// SnapshotResources renders ctx in ascending-id order.
func SnapshotResources(ctx *resource.Context) ResourceSnapshot {
	snap := ResourceSnapshot{Resources: make(map[uint64]ResourceSnapshotEntry)}
	for id := uint64(0); id < ctx.NextID(); id++ {
		r, ok := ctx.Get(id)
		if !ok {
			continue
		}
		attrs := make(map[string]wasitype.Wire, len(r.Attributes))
		for name, v := range r.Attributes {
			attrs[name] = wasitype.ToWire(v)
		}
		snap.Resources[id] = ResourceSnapshotEntry{
			TypeName:   r.TypeName,
			Value:      wasitype.ToWire(r.Value),
			Attributes: attrs,
		}
	}
	return snap
}
