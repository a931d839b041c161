// Package resource implements the Resource Context (spec §3/§4.3,
// component C3): the live state of the fuzzed world — resources indexed
// by id and by type, each carrying a value and a bag of attributes.
package resource

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ErrUnknownResource is returned when an operation targets an id that
// has no entry in the context.
var ErrUnknownResource = errors.New("resource: unknown resource")

// ErrUnknownAttribute is returned when SetAttr targets an attribute name
// the resource's type does not declare.
var ErrUnknownAttribute = errors.New("resource: unknown attribute")

// Resource is a stateful handle-like entity: a typed value plus mutable
// attributes (spec §3 "Resource Context").
type Resource struct {
	ID         uint64
	TypeName   string
	Value      wasitype.Value
	Attributes map[string]wasitype.Value
}

// Context is one runtime's resource state: next_id, by_id, and a
// secondary by_type index, ordered by insertion id ascending (spec
// §4.3's determinism requirement). One Context exists per runtime per
// run; it is mutated only by the call engine.
type Context struct {
	nextID uint64
	byID   map[uint64]*Resource
	byType map[string][]uint64 // kept sorted ascending
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		byID:   make(map[uint64]*Resource),
		byType: make(map[string][]uint64),
	}
}

// NewResource assigns the next id, registers the resource under it, and
// returns the assigned id.
func (c *Context) NewResource(typeName string, value wasitype.Value) uint64 {
	id := c.nextID
	c.RegisterResource(typeName, value, id)
	return id
}

// RegisterResource inserts a resource under a caller-chosen id, per spec
// §4.3, advancing next_id to at least id+1 so a later NewResource never
// collides.
func (c *Context) RegisterResource(typeName string, value wasitype.Value, id uint64) {
	c.byID[id] = &Resource{
		ID:         id,
		TypeName:   typeName,
		Value:      value,
		Attributes: make(map[string]wasitype.Value),
	}
	c.insertByType(typeName, id)
	if id+1 > c.nextID {
		c.nextID = id + 1
	}
}

func (c *Context) insertByType(typeName string, id uint64) {
	ids := c.byType[typeName]
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	c.byType[typeName] = ids
}

// SetAttr sets an attribute, adding it if the resource does not carry
// it yet, validating it conforms to
// allowedAttrs (the resource type's declared attribute schema; the call
// site is expected to pass the type-checked value).
func (c *Context) SetAttr(id uint64, attrName string, value wasitype.Value, allowedAttrs map[string]bool) error {
	r, ok := c.byID[id]
	if !ok {
		return errors.Wrapf(ErrUnknownResource, "id %d", id)
	}
	if allowedAttrs != nil && !allowedAttrs[attrName] {
		return errors.Wrapf(ErrUnknownAttribute, "%q on resource %d (type %q)", attrName, id, r.TypeName)
	}
	r.Attributes[attrName] = value
	return nil
}

// Get returns the resource at id, if any.
func (c *Context) Get(id uint64) (*Resource, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// ByType returns the ordered (ascending by id) list of resource ids of
// the given type. The returned slice must not be mutated by the caller.
func (c *Context) ByType(typeName string) []uint64 {
	return c.byType[typeName]
}

// NextID exposes the next id that NewResource would assign, used by
// run-store snapshotting to know how far to enumerate.
func (c *Context) NextID() uint64 { return c.nextID }
