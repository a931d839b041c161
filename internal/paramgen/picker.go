package paramgen

import (
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// FunctionPicker chooses which function to call next, grounded on
// original_source/specz/src/function_picker/mod.rs's FunctionPicker
// trait.
type FunctionPicker interface {
	PickFunction(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context) (*iface.Function, error)
}

// ResourcePicker accepts a function as a candidate when every
// resource-typed parameter has at least one live resource of the
// matching type to draw from, without ever invoking the SMT backend.
// Grounded on function_picker/resource.rs's ResourcePicker.
type ResourcePicker struct{}

func (ResourcePicker) PickFunction(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context) (*iface.Function, error) {
	var candidates []*iface.Function

	ifc.Functions.Iter(func(_ int, fn *iface.Function) bool {
		if functionIsResourceCandidate(fn, ctx) {
			candidates = append(candidates, fn)
		}
		return true
	})

	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	idx, err := u.ChooseIndex(len(candidates))
	if err != nil {
		return nil, err
	}
	return candidates[idx], nil
}

func functionIsResourceCandidate(fn *iface.Function, ctx *resource.Context) bool {
	for _, p := range fn.Params {
		if p.ResourceType == "" {
			continue
		}
		if len(ctx.ByType(p.ResourceType)) == 0 {
			return false
		}
	}
	return true
}
