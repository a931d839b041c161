package callengine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ReplayDecl pre-registers a resource named by a seed's Decl action,
// under the caller-chosen id it specifies, before any randomized
// fuzzing begins (spec §6 "Seed format... Decls populate the resource
// context"). Grounded on original_source/wasi/src/seed.rs's
// ProgSeed::execute, which likewise builds its ResourceContext from the
// seed before replaying calls.
func (e *Engine) ReplayDecl(d seed.Decl) error {
	rt, ok := e.Ifc.Resources.GetByName(d.ResourceType)
	if !ok {
		return errors.Errorf("callengine: seed decl references unknown resource type %q", d.ResourceType)
	}
	t, err := e.Ifc.ResolveValtype(rt.Value)
	if err != nil {
		return errors.Wrapf(err, "seed decl %q", d.ResourceType)
	}
	v, err := wasitype.FromWire(d.Value, t)
	if err != nil {
		return errors.Wrapf(err, "seed decl %q value", d.ResourceType)
	}
	e.Ctx.RegisterResource(d.ResourceType, v, d.ResourceID)
	return nil
}

// ReplayCall drives one call of a seed's deterministic prefix (spec §6
// "Calls, if present, drive an initial deterministic prefix before
// randomized fuzzing begins"): unlike Step, parameters come from the
// seed itself rather than a ParamsGenerator, and each result is bound
// (or ignored) per the seed's own ResultSpec rather than always
// auto-registered under a fresh id.
func (e *Engine) ReplayCall(ctx context.Context, u *wasitype.Unstructured, c seed.Call) error {
	fn, ok := e.Ifc.Functions.GetByName(c.Func)
	if !ok {
		return errors.Errorf("callengine: seed call references unknown function %q", c.Func)
	}
	if len(c.Params) != len(fn.Params) {
		return errors.Errorf("callengine: seed call to %q supplies %d params, function declares %d", c.Func, len(c.Params), len(fn.Params))
	}

	assignment := &constraint.Assignment{
		Values:          make(map[string]wasitype.Value, len(fn.Params)),
		ResourceBinding: make(map[string]uint64),
	}
	for i, p := range fn.Params {
		pv := c.Params[i]
		switch {
		case pv.ResourceID != nil:
			r, ok := e.Ctx.Get(*pv.ResourceID)
			if !ok {
				return errors.Wrapf(resource.ErrUnknownResource, "seed call %q param %q: id %d", c.Func, p.Name, *pv.ResourceID)
			}
			assignment.Values[p.Name] = r.Value
			assignment.ResourceBinding[p.Name] = *pv.ResourceID

		case pv.Value != nil:
			t, err := e.Ifc.ResolveValtype(p.Type)
			if err != nil {
				return errors.Wrapf(err, "seed call %q param %q", c.Func, p.Name)
			}
			v, err := wasitype.FromWire(*pv.Value, t)
			if err != nil {
				return errors.Wrapf(err, "seed call %q param %q", c.Func, p.Name)
			}
			assignment.Values[p.Name] = v

		default:
			return errors.Errorf("callengine: seed call %q param %q sets neither resource_id nor value", c.Func, p.Name)
		}
	}

	req, err := e.buildCallRequest(u, fn, assignment)
	if err != nil {
		return err
	}

	resp, err := e.Process.Call(ctx, req)
	if err != nil {
		return err
	}

	rec, err := e.applyResponse(fn, assignment, resp, c.Results)
	if err != nil {
		return err
	}

	return e.Recorder.Record(rec)
}
