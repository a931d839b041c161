package paramgen

import (
	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ParamsGenerator produces the argument values for a call to fn, once
// the FunctionPicker has already chosen it. Grounded on
// original_source/specz/src/param_generator/mod.rs's ParamsGenerator
// trait.
type ParamsGenerator interface {
	GenerateParams(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context, fn *iface.Function) (*constraint.Assignment, error)
}
