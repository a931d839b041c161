// Package iface implements the interface model (spec §3/§4.2, component
// C2): a named type table, functions with parameters/results and an
// optional input contract, and named resource types — all built once
// from the spec and immutable thereafter.
package iface

import "github.com/pkg/errors"

// ErrDuplicateName is returned by IndexSpace.Push when a name has
// already been assigned in this space.
var ErrDuplicateName = errors.New("iface: duplicate name")

// ErrInvalidTypeidx is returned when a Typeidx does not resolve to an
// item in the space, or (for ResolveValtype) an alias chain cycles.
var ErrInvalidTypeidx = errors.New("iface: invalid typeidx")

// IndexSpace is the general append-only container used for types,
// functions, and resource types (spec §4.2). Names are globally unique
// per space. Iteration is insertion-ordered, mirroring
// original_source/idxspace/src/lib.rs's `IndexSpace<K, V>` (itself a
// Vec alongside a bimap::BiMap for O(1) name lookup).
type IndexSpace[V any] struct {
	list    []V
	byName  map[string]int
}

// NewIndexSpace returns an empty space.
func NewIndexSpace[V any]() *IndexSpace[V] {
	return &IndexSpace[V]{byName: make(map[string]int)}
}

// Push appends item, optionally under name, and returns its numeric
// index. An empty name means "no symbolic name" (push(None, item) in
// the original); pushing a duplicate non-empty name fails.
func (s *IndexSpace[V]) Push(name string, item V) (int, error) {
	if name != "" {
		if _, ok := s.byName[name]; ok {
			return 0, errors.Wrapf(ErrDuplicateName, "name %q", name)
		}
	}
	idx := len(s.list)
	s.list = append(s.list, item)
	if name != "" {
		s.byName[name] = idx
	}
	return idx, nil
}

// Typeidx is either a symbolic name or a numeric position, per spec
// §4.2.
type Typeidx struct {
	Name    string
	Numeric int
	ByName  bool
}

// Symbolic constructs a name-based Typeidx.
func Symbolic(name string) Typeidx { return Typeidx{Name: name, ByName: true} }

// Numeric constructs a position-based Typeidx.
func Numeric(i int) Typeidx { return Typeidx{Numeric: i} }

// Get resolves idx to the stored item.
func (s *IndexSpace[V]) Get(idx Typeidx) (V, error) {
	var zero V
	if idx.ByName {
		i, ok := s.byName[idx.Name]
		if !ok {
			return zero, errors.Wrapf(ErrInvalidTypeidx, "name %q", idx.Name)
		}
		return s.list[i], nil
	}
	if idx.Numeric < 0 || idx.Numeric >= len(s.list) {
		return zero, errors.Wrapf(ErrInvalidTypeidx, "index %d", idx.Numeric)
	}
	return s.list[idx.Numeric], nil
}

// GetByName looks an item up directly by name, used by callers that
// already know they want a symbolic lookup (e.g. resource type
// resolution).
func (s *IndexSpace[V]) GetByName(name string) (V, bool) {
	var zero V
	i, ok := s.byName[name]
	if !ok {
		return zero, false
	}
	return s.list[i], true
}

// Len reports the number of items pushed.
func (s *IndexSpace[V]) Len() int { return len(s.list) }

// Iter calls f for each item in insertion order, stopping early if f
// returns false. Determinism here matters: two runs built from the same
// spec must iterate functions/types in the same order (spec §4.3).
func (s *IndexSpace[V]) Iter(f func(idx int, item V) bool) {
	for i, v := range s.list {
		if !f(i, v) {
			return
		}
	}
}

// NameOf returns the symbolic name assigned to idx, if any.
func (s *IndexSpace[V]) NameOf(idx int) (string, bool) {
	for name, i := range s.byName {
		if i == idx {
			return name, true
		}
	}
	return "", false
}
