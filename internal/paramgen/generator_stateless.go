package paramgen

import (
	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// StatelessParamsGenerator draws every non-resource parameter from raw
// entropy and every resource-typed parameter by picking uniformly among
// the live resources of the matching type, never consulting the SMT
// backend. fn's input contract is never checked, so a generated call
// may violate it (for instance one that relates several resources) and
// be rejected by the executor. Grounded on param_generator/stateless.rs's
// StatelessParamsGenerator.
type StatelessParamsGenerator struct{}

func (StatelessParamsGenerator) GenerateParams(u *wasitype.Unstructured, ifc *iface.Interface, ctx *resource.Context, fn *iface.Function) (*constraint.Assignment, error) {
	assignment := &constraint.Assignment{
		Values:          make(map[string]wasitype.Value, len(fn.Params)),
		ResourceBinding: make(map[string]uint64),
	}

	// stringPrefix carries a picked resource's byte-string value (e.g. a
	// path) into every later list(u8)/string draw, so generated paths
	// compose with known resources (spec §4.6 "Stateless").
	var stringPrefix []byte

	for _, p := range fn.Params {
		if p.ResourceType == "" {
			t, err := ifc.ResolveValtype(p.Type)
			if err != nil {
				return nil, err
			}
			v, err := wasitype.ArbitraryValue(u, t, stringPrefix)
			if err != nil {
				return nil, err
			}
			assignment.Values[p.Name] = v
			continue
		}

		ids := ctx.ByType(p.ResourceType)
		if len(ids) == 0 {
			return nil, ErrNoSolution
		}
		idx, err := u.ChooseIndex(len(ids))
		if err != nil {
			return nil, err
		}
		id := ids[idx]
		r, ok := ctx.Get(id)
		if !ok {
			return nil, resource.ErrUnknownResource
		}

		if b, ok := wasitype.StringBytes(r.Value); ok {
			stringPrefix = b
		}

		assignment.Values[p.Name] = r.Value
		assignment.ResourceBinding[p.Name] = id
	}

	return assignment, nil
}
