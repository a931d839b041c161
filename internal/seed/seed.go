// Package seed implements the replay-prefix format (spec §4.7's "seed
// replay", supplementing the distilled spec from
// original_source/wasi/src/seed.rs): a JSON document naming resources
// to pre-declare and calls to replay before the call engine continues
// with freshly generated calls.
package seed

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ErrUnknownActionKind is returned when an Action's Kind is neither
// "decl" nor "call".
var ErrUnknownActionKind = errors.New("seed: unknown action kind")

// Seed is a prefix of a run: a fixed set of resources and calls to
// perform before free generation takes over.
type Seed struct {
	MountBaseDir bool     `json:"mount_base_dir"`
	Actions      []Action `json:"actions"`
}

// Action is one step of the prefix, a decl or a call (spec §4.7).
type Action struct {
	Kind string `json:"kind"`
	Decl *Decl  `json:"decl,omitempty"`
	Call *Call  `json:"call,omitempty"`
}

// Decl registers a resource at a caller-chosen id before any calls run,
// grounded on seed.rs's Decl.
type Decl struct {
	ResourceID   uint64         `json:"resource_id"`
	ResourceType string         `json:"resource_type"`
	Value        wasitype.Wire  `json:"value"`
}

// Call replays one function call with concrete parameters, grounded on
// seed.rs's Call.
type Call struct {
	Func    string          `json:"func"`
	Params  []ParamValue    `json:"params"`
	Results []ResultSpec    `json:"results,omitempty"`
}

// ParamValue is either a reference to a previously declared resource or
// a freely specified value, grounded on seed.rs's ResourceOrValue.
type ParamValue struct {
	ResourceID *uint64       `json:"resource_id,omitempty"`
	Value      *wasitype.Wire `json:"value,omitempty"`
}

// ResultSpec says what to do with one of a call's results: bind it to a
// new resource id, or ignore it. Grounded on seed.rs's ResultSpec.
type ResultSpec struct {
	ResourceID *uint64 `json:"resource_id,omitempty"`
	Ignore     bool    `json:"ignore,omitempty"`
}

// Validate checks that every Action names exactly one of Decl/Call
// consistent with its Kind.
func (s Seed) Validate() error {
	for i, a := range s.Actions {
		switch a.Kind {
		case "decl":
			if a.Decl == nil {
				return errors.Errorf("seed: action %d kind decl has no decl body", i)
			}
		case "call":
			if a.Call == nil {
				return errors.Errorf("seed: action %d kind call has no call body", i)
			}
		default:
			return errors.Wrapf(ErrUnknownActionKind, "action %d: %q", i, a.Kind)
		}
	}
	return nil
}

// Decode parses a Seed document from r.
func Decode(r io.Reader) (*Seed, error) {
	var s Seed
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "seed: decode")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes s as pretty-printed JSON to w.
func Encode(w io.Writer, s *Seed) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(s), "seed: encode")
}
