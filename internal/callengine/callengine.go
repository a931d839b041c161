// Package callengine implements the per-runtime call loop (spec §4.6,
// component C6): pick a function, generate parameters, submit the call
// to a runtime's executor subprocess, apply the resulting effects to
// the resource context, and record the outcome. Grounded on
// original_source/wasi/src/prog.rs's Program::step, with call.rs and
// recorder.rs folded in as the request-building and recording halves.
package callengine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/constraint"
	"github.com/wazzi-fuzz/wazzi/internal/executor"
	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/paramgen"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/seed"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/trace"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// Caller is the subset of *executor.Process the call engine needs,
// split out so tests can drive Engine against a fake without spawning a
// subprocess.
type Caller interface {
	Call(ctx context.Context, req *executor.CallRequest) (*executor.CallResponse, error)
}

// Engine drives one runtime's call loop. One Engine exists per worker
// in internal/fanout; nothing here is shared across runtimes.
type Engine struct {
	Ifc       *iface.Interface
	Ctx       *resource.Context
	Process   Caller
	Picker    paramgen.FunctionPicker
	Generator paramgen.ParamsGenerator
	Recorder  *trace.Recorder
}

// Step runs one iteration of the 8-step loop in spec §4.6. It returns
// paramgen.ErrNoCandidate or paramgen.ErrNoSolution as a terminal,
// non-error end of this seed's run (the caller should stop looping,
// not treat it as a failure); any other error is a hard fault for this
// worker (spec §7).
func (e *Engine) Step(ctx context.Context, u *wasitype.Unstructured) error {
	fn, err := e.Picker.PickFunction(u, e.Ifc, e.Ctx)
	if err != nil {
		return err
	}

	assignment, err := e.Generator.GenerateParams(u, e.Ifc, e.Ctx, fn)
	if err != nil {
		return err
	}

	req, err := e.buildCallRequest(u, fn, assignment)
	if err != nil {
		return err
	}

	resp, err := e.Process.Call(ctx, req)
	if err != nil {
		return err
	}

	rec, err := e.applyResponse(fn, assignment, resp, nil)
	if err != nil {
		return err
	}

	return e.Recorder.Record(rec)
}

// buildCallRequest encodes the chosen function's call per spec §4.6
// step 4: parameter values already bound by the generator, plus one
// arbitrary placeholder per declared result so the executor knows how
// much linear memory to reserve for out-params.
func (e *Engine) buildCallRequest(u *wasitype.Unstructured, fn *iface.Function, assignment *constraint.Assignment) (*executor.CallRequest, error) {
	req := &executor.CallRequest{Func: fn.Name}

	for _, p := range fn.Params {
		v, ok := assignment.Values[p.Name]
		if !ok {
			return nil, errors.Errorf("callengine: generator did not bind param %q", p.Name)
		}
		req.Params = append(req.Params, wasitype.ToWire(v))
	}

	for _, r := range fn.Results {
		t, err := e.Ifc.ResolveValtype(r.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "result %q", r.Name)
		}
		placeholder, err := wasitype.ArbitraryValue(u, t, nil)
		if err != nil {
			return nil, err
		}
		req.Results = append(req.Results, executor.ResultPlaceholder{
			Name: r.Name,
			Type: wasitype.ToWire(placeholder),
		})
	}

	return req, nil
}

// applyResponse implements spec §4.6 steps 5-7: decode the response
// against the function's declared shapes, register any new resources
// among the results, apply the function's effect statements, and build
// the trace record. resultSpecs is nil for a freely generated call
// (every resource-typed result is auto-registered under a fresh id);
// during seed replay it carries one seed.ResultSpec per declared
// result, letting the seed pin a result to a caller-chosen resource id
// or ignore it entirely (spec §6 "Seed format").
func (e *Engine) applyResponse(fn *iface.Function, assignment *constraint.Assignment, resp *executor.CallResponse, resultSpecs []seed.ResultSpec) (trace.CallRecord, error) {
	env := &evalEnv{
		ifc:               e.Ifc,
		ctx:               e.Ctx,
		paramValues:       assignment.Values,
		paramResourceIDs:  assignment.ResourceBinding,
		resultValues:      make(map[string]wasitype.Value, len(fn.Results)),
		resultResourceIDs: make(map[string]uint64),
	}

	paramWires := make([]wasitype.Wire, len(fn.Params))
	if len(resp.Params) != len(fn.Params) {
		return trace.CallRecord{}, errors.Errorf("callengine: response has %d params, function %q declares %d", len(resp.Params), fn.Name, len(fn.Params))
	}
	for i, p := range fn.Params {
		t, err := e.Ifc.ResolveValtype(p.Type)
		if err != nil {
			return trace.CallRecord{}, errors.Wrapf(err, "param %q", p.Name)
		}
		v, err := wasitype.FromWire(resp.Params[i], t)
		if err != nil {
			return trace.CallRecord{}, errors.Wrapf(err, "param %q", p.Name)
		}
		env.paramValues[p.Name] = v
		paramWires[i] = resp.Params[i]
	}

	resultWires := make([]wasitype.Wire, len(fn.Results))
	if len(resp.Results) != len(fn.Results) {
		return trace.CallRecord{}, errors.Errorf("callengine: response has %d results, function %q declares %d", len(resp.Results), fn.Name, len(fn.Results))
	}
	for i, r := range fn.Results {
		t, err := e.Ifc.ResolveValtype(r.Type)
		if err != nil {
			return trace.CallRecord{}, errors.Wrapf(err, "result %q", r.Name)
		}
		v, err := wasitype.FromWire(resp.Results[i], t)
		if err != nil {
			return trace.CallRecord{}, errors.Wrapf(err, "result %q", r.Name)
		}
		env.resultValues[r.Name] = v
		resultWires[i] = resp.Results[i]

		if r.ResourceType == "" {
			continue
		}
		if i >= len(resultSpecs) {
			id := e.Ctx.NewResource(r.ResourceType, v)
			env.resultResourceIDs[r.Name] = id
			continue
		}
		spec := resultSpecs[i]
		switch {
		case spec.Ignore:
			// no resource registered for this result
		case spec.ResourceID != nil:
			e.Ctx.RegisterResource(r.ResourceType, v, *spec.ResourceID)
			env.resultResourceIDs[r.Name] = *spec.ResourceID
		default:
			id := e.Ctx.NewResource(r.ResourceType, v)
			env.resultResourceIDs[r.Name] = id
		}
	}

	if err := e.applyEffects(fn, env); err != nil {
		return trace.CallRecord{}, err
	}

	return trace.CallRecord{
		Func:    fn.Name,
		Errno:   resp.Errno,
		Params:  paramWires,
		Results: resultWires,
	}, nil
}

func (e *Engine) applyEffects(fn *iface.Function, env *evalEnv) error {
	for _, stmt := range fn.Effects {
		switch s := stmt.(type) {
		case term.Noop:
			continue

		case term.AttrSet:
			id, err := env.resolveTargetResource(resolvableName(s.Resource, env))
			if err != nil {
				return err
			}
			rt, ok := e.resourceTypeOf(id)
			if !ok {
				return errors.Wrapf(resource.ErrUnknownResource, "id %d", id)
			}
			attrType, ok := rt.AttributeType(s.Attr)
			if !ok {
				return errors.Wrapf(resource.ErrUnknownAttribute, "%q on resource type %q", s.Attr, rt.Name)
			}
			hint, err := e.Ifc.ResolveValtype(attrType)
			if err != nil {
				return err
			}

			expr, ok := s.Value.(term.FromTerm)
			if !ok {
				return errors.Errorf("callengine: unsupported effect expression %T", s.Value)
			}
			v, err := evalTerm(expr.Term, env, hint)
			if err != nil {
				return err
			}

			allowed := make(map[string]bool, len(rt.Attributes))
			for _, a := range rt.Attributes {
				allowed[a.Name] = true
			}
			if err := e.Ctx.SetAttr(id, s.Attr, v, allowed); err != nil {
				return err
			}

		default:
			return errors.Errorf("callengine: unsupported effect statement %T", stmt)
		}
	}
	return nil
}

func (e *Engine) resourceTypeOf(id uint64) (*iface.ResourceType, bool) {
	r, ok := e.Ctx.Get(id)
	if !ok {
		return nil, false
	}
	return e.Ifc.Resources.GetByName(r.TypeName)
}

// resolvableName lifts an AttrSet.Resource name (which spec §6 declares
// as a bare param/result name, not a nested term) into the Param/Result
// term resolveTargetResource expects, trying params first since a name
// collision between a parameter and a result is not possible within one
// function's declared names.
func resolvableName(name string, env *evalEnv) term.Term {
	if _, ok := env.paramResourceIDs[name]; ok {
		return term.Param{Name: name}
	}
	return term.Result{Name: name}
}
