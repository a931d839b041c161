package constraint

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// Assignment is a satisfying parameter binding (spec §4.5 step 2): one
// concrete value per parameter, plus — for resource-typed parameters —
// the id of the resource that was bound.
type Assignment struct {
	Values          map[string]wasitype.Value
	ResourceBinding map[string]uint64 // param name -> resource id, resource-typed params only
}

// Solve builds the encoding for fn against ctx (spec §4.4) and checks
// it with a fresh backend Session seeded from entropy (spec §4.5
// step 1). It returns (assignment, Sat, nil) on success, (nil, Unsat,
// nil) when the contract has no solution, (nil, Unknown, nil) on an
// inconclusive check, and (nil, Unknown, err) on a spec or backend error.
func Solve(backend Backend, ifc *iface.Interface, fn *iface.Function, ctx *resource.Context, randomSeed uint32) (*Assignment, CheckResult, error) {
	sess := backend.NewSession(randomSeed)
	defer sess.Close()

	e := &encoder{
		sess:         sess,
		ifc:          ifc,
		paramSym:     make(map[string]BV),
		paramType:    make(map[string]wasitype.Type),
		paramAttrSym: make(map[string]map[string]BV),
		candidates:   make(map[string][]uint64),
	}

	for _, p := range fn.Params {
		t, err := ifc.ResolveValtype(p.Type)
		if err != nil {
			return nil, Unknown, errors.Wrapf(ErrSpec, "param %q: %v", p.Name, err)
		}
		w, err := Width(t)
		if err != nil {
			return nil, Unknown, errors.Wrapf(ErrSpec, "param %q: %v", p.Name, err)
		}
		sym := sess.BVConst("param:"+p.Name, w)
		e.paramSym[p.Name] = sym
		e.paramType[p.Name] = t

		if p.ResourceType == "" {
			continue
		}

		if err := e.addResourceConstraint(sess, ctx, p, sym, w); err != nil {
			return nil, Unknown, err
		}
	}

	if fn.InputContract != nil {
		formula, err := e.encode(fn.InputContract, 1)
		if err != nil {
			return nil, Unknown, err
		}
		sess.Assert(formula)
	}

	result, err := sess.Check()
	if err != nil {
		return nil, Unknown, err
	}
	if result != Sat {
		return nil, result, nil
	}

	assignment, err := e.decode(sess, fn, ctx)
	if err != nil {
		return nil, Unknown, err
	}
	return assignment, Sat, nil
}

func (e *encoder) addResourceConstraint(sess Session, ctx *resource.Context, p iface.Param, paramSym BV, paramWidth int) error {
	rt, ok := e.ifc.Resources.GetByName(p.ResourceType)
	if !ok {
		return errors.Wrapf(ErrSpec, "unknown resource type %q", p.ResourceType)
	}

	attrWidths := make(map[string]int, len(rt.Attributes))
	attrSyms := make(map[string]BV, len(rt.Attributes))
	for _, ad := range rt.Attributes {
		at, err := e.ifc.ResolveValtype(ad.Type)
		if err != nil {
			return errors.Wrapf(ErrSpec, "resource type %q attribute %q: %v", p.ResourceType, ad.Name, err)
		}
		w, err := Width(at)
		if err != nil {
			return errors.Wrapf(ErrSpec, "resource type %q attribute %q: %v", p.ResourceType, ad.Name, err)
		}
		attrWidths[ad.Name] = w
		attrSyms[ad.Name] = sess.BVConst(p.Name+"."+ad.Name, w)
	}
	e.paramAttrSym[p.Name] = attrSyms

	ids := ctx.ByType(p.ResourceType)
	e.candidates[p.Name] = ids

	disjuncts := make([]BV, 0, len(ids))
	for _, id := range ids {
		r, ok := ctx.Get(id)
		if !ok {
			return errors.Wrapf(resource.ErrUnknownResource, "id %d", id)
		}
		valBits, err := Flatten(r.Value)
		if err != nil {
			return err
		}
		eqs := []BV{sess.Eq(paramSym, sess.BVVal(valBits, paramWidth))}
		for _, ad := range rt.Attributes {
			av, ok := r.Attributes[ad.Name]
			if !ok {
				continue
			}
			bits, err := Flatten(av)
			if err != nil {
				return err
			}
			eqs = append(eqs, sess.Eq(attrSyms[ad.Name], sess.BVVal(bits, attrWidths[ad.Name])))
		}
		disjuncts = append(disjuncts, sess.And(eqs...))
	}

	sess.Assert(sess.Or(disjuncts...))
	return nil
}

func (e *encoder) decode(sess Session, fn *iface.Function, ctx *resource.Context) (*Assignment, error) {
	assignment := &Assignment{
		Values:          make(map[string]wasitype.Value, len(fn.Params)),
		ResourceBinding: make(map[string]uint64),
	}

	for _, p := range fn.Params {
		sym := e.paramSym[p.Name]
		bits, err := sess.ModelValue(sym)
		if err != nil {
			return nil, err
		}

		if p.ResourceType == "" {
			v, err := Unflatten(bits, e.paramType[p.Name])
			if err != nil {
				return nil, err
			}
			assignment.Values[p.Name] = v
			continue
		}

		id, v, err := e.identifyResource(ctx, p, bits)
		if err != nil {
			return nil, err
		}
		assignment.ResourceBinding[p.Name] = id
		assignment.Values[p.Name] = v
	}

	return assignment, nil
}

// identifyResource finds which candidate resource's flattened value
// equals the model's assignment for this parameter, per spec §4.5 step
// 2 ("bind the parameter to that resource's id rather than to a
// synthesized value").
func (e *encoder) identifyResource(ctx *resource.Context, p iface.Param, bits *big.Int) (uint64, wasitype.Value, error) {
	for _, id := range e.candidates[p.Name] {
		r, ok := ctx.Get(id)
		if !ok {
			continue
		}
		rb, err := Flatten(r.Value)
		if err != nil {
			return 0, wasitype.Value{}, err
		}
		if rb.Cmp(bits) == 0 {
			return id, r.Value, nil
		}
	}
	return 0, wasitype.Value{}, errors.Wrapf(ErrSpec, "no candidate resource for param %q matches the model", p.Name)
}
