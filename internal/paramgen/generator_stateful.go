package paramgen

import (
	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// StatefulParamsGenerator solves fn's input contract against the
// current resource context and returns the satisfying assignment.
// Grounded on param_generator/stateful.rs's StatefulParamsGenerator.
type StatefulParamsGenerator struct {
	Backend constraint.Backend
}

func (g StatefulParamsGenerator) GenerateParams(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context, fn *iface.Function) (*constraint.Assignment, error) {
	seed, err := u.Uint32()
	if err != nil {
		return nil, err
	}

	assignment, result, err := constraint.Solve(g.Backend, ifc, fn, ctx, seed)
	if err != nil {
		return nil, err
	}
	if result != constraint.Sat {
		return nil, ErrNoSolution
	}
	return assignment, nil
}
