package iface

import (
	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// Interface holds a named type table, functions, and named resource
// types, all built once from the spec document and immutable
// thereafter (spec §4.2 "Lifecycle").
type Interface struct {
	Types     *IndexSpace[TypeDef]
	Functions *IndexSpace[*Function]
	Resources *IndexSpace[*ResourceType]
}

// TypeDef is an entry in the type table: either a concrete wasitype.Type
// or an alias to another named type, resolved transitively by
// ResolveValtype.
type TypeDef struct {
	Alias    string // non-empty if this name is defined as another name
	Concrete wasitype.Type
	IsAlias  bool
}

// NewInterface returns an empty, mutable builder. Callers push types,
// functions, and resource types, then treat the result as read-only
// (spec's immutability requirement is a convention enforced by
// discipline, not the type system, mirroring the original's `Spec`
// struct which is likewise just plain data once constructed).
func NewInterface() *Interface {
	return &Interface{
		Types:     NewIndexSpace[TypeDef](),
		Functions: NewIndexSpace[*Function](),
		Resources: NewIndexSpace[*ResourceType](),
	}
}

// ResolveValtype follows a chain of symbolic-to-symbolic aliases until
// a concrete definition is reached, failing with ErrInvalidTypeidx on an
// unknown name or a cycle (spec §4.2).
func (i *Interface) ResolveValtype(idx Typeidx) (wasitype.Type, error) {
	seen := make(map[string]bool)
	for {
		td, err := i.Types.Get(idx)
		if err != nil {
			return wasitype.Type{}, err
		}
		if !td.IsAlias {
			return td.Concrete, nil
		}
		if seen[td.Alias] {
			return wasitype.Type{}, errors.Wrapf(ErrInvalidTypeidx, "alias cycle at %q", td.Alias)
		}
		seen[td.Alias] = true
		idx = Symbolic(td.Alias)
	}
}

// Function is a named operation with parameters, results, and an
// optional input contract term (spec §3 "Interfaces").
type Function struct {
	Name           string
	Params         []Param
	Results        []Result
	InputContract  term.Term // nil if the function has no contract
	Effects        []term.EffectStmt
}

// Param is one function parameter: a name, a type reference, and an
// optional resource-type binding (when the parameter is a handle to a
// live resource rather than a freely-generated value).
type Param struct {
	Name         string
	Type         Typeidx
	ResourceType string // resource type name, empty if not a resource parameter
}

// Result is one function result. ResourceType is non-empty when this
// result materializes a new resource (e.g. a newly opened fd) that the
// call engine must register in the resource context after the call
// (spec §4.6 step 6).
type Result struct {
	Name         string
	Type         Typeidx
	ResourceType string
}

// ResourceType is a regular type plus a mapping from attribute name to
// type, plus the fungibility flag from spec §4.2.
type ResourceType struct {
	Name        string
	Value       Typeidx
	Attributes  []AttributeDef
	Fungible    bool
}

// AttributeDef names one attribute of a resource type and its type.
type AttributeDef struct {
	Name string
	Type Typeidx
}

// AttributeType looks up the declared type of one of rt's attributes.
func (rt *ResourceType) AttributeType(name string) (Typeidx, bool) {
	for _, a := range rt.Attributes {
		if a.Name == name {
			return a.Type, true
		}
	}
	return Typeidx{}, false
}
