package paramgen

import (
	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// SolverPicker accepts a function as a candidate when its input
// contract, encoded against the current resource context, is
// satisfiable — one fresh solver session per function, seeded from u,
// discarded whether or not it was satisfiable. Grounded on
// function_picker/solver.rs's SolverPicker.
type SolverPicker struct {
	Backend constraint.Backend
}

func (p SolverPicker) PickFunction(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context) (*iface.Function, error) {
	var candidates []*iface.Function

	var firstErr error
	ifc.Functions.Iter(func(_ int, fn *iface.Function) bool {
		seed, err := u.Uint32()
		if err != nil {
			firstErr = err
			return false
		}
		_, result, err := constraint.Solve(p.Backend, ifc, fn, ctx, seed)
		if err != nil {
			firstErr = err
			return false
		}
		if result == constraint.Sat {
			candidates = append(candidates, fn)
		}
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	idx, err := u.ChooseIndex(len(candidates))
	if err != nil {
		return nil, err
	}
	return candidates[idx], nil
}
