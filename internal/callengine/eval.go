package callengine

import (
	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ErrEffect marks a malformed effect expression: a target that does not
// resolve to a live resource, an unknown attribute, or a term shape the
// evaluator does not understand. Unlike ErrSpec in internal/constraint
// this is evaluated post-call against concrete values, not symbolically.
var ErrEffect = errors.New("callengine: invalid effect expression")

// evalEnv is the concrete binding environment a call's effect block
// evaluates against: the parameter values and resource-binding chosen
// by paramgen, plus the results the executor returned, each similarly
// split between a plain value and (for resource-typed results) the id
// just registered in ctx.
type evalEnv struct {
	ifc *iface.Interface
	ctx *resource.Context

	paramValues      map[string]wasitype.Value
	paramResourceIDs map[string]uint64

	resultValues      map[string]wasitype.Value
	resultResourceIDs map[string]uint64
}

// resolveTargetResource finds the resource id a bare Param/Result term
// refers to. attr.get's Target must be one of these two shapes (spec
// §3's "attr.get target must reference a resource-typed parameter or
// result").
func (e *evalEnv) resolveTargetResource(t term.Term) (uint64, error) {
	switch x := t.(type) {
	case term.Param:
		id, ok := e.paramResourceIDs[x.Name]
		if !ok {
			return 0, errors.Wrapf(ErrEffect, "param %q is not a resource-typed parameter", x.Name)
		}
		return id, nil
	case term.Result:
		id, ok := e.resultResourceIDs[x.Name]
		if !ok {
			return 0, errors.Wrapf(ErrEffect, "result %q is not a resource-typed result", x.Name)
		}
		return id, nil
	default:
		return 0, errors.Wrap(ErrEffect, "attr.get target must be a bare param/result reference")
	}
}

// evalTerm interprets t concretely against env, mirroring
// internal/constraint/encode.go's symbolic encoder one level up: the
// same term shapes, but producing an actual wasitype.Value instead of a
// bit-vector formula. hint carries the expected Type for an IntConst
// literal whose width/kind can't otherwise be inferred (the zero Type
// defaults to KindS64, a reasonable fallback for a bare integer effect).
func evalTerm(t term.Term, env *evalEnv, hint wasitype.Type) (wasitype.Value, error) {
	switch x := t.(type) {
	case term.Not:
		v, err := evalTerm(x.Term, env, wasitype.Type{Kind: wasitype.KindU8})
		if err != nil {
			return wasitype.Value{}, err
		}
		return boolValue(v.Int == 0), nil

	case term.And:
		for _, c := range x.Clauses {
			v, err := evalTerm(c, env, wasitype.Type{Kind: wasitype.KindU8})
			if err != nil {
				return wasitype.Value{}, err
			}
			if v.Int == 0 {
				return boolValue(false), nil
			}
		}
		return boolValue(true), nil

	case term.Or:
		for _, c := range x.Clauses {
			v, err := evalTerm(c, env, wasitype.Type{Kind: wasitype.KindU8})
			if err != nil {
				return wasitype.Value{}, err
			}
			if v.Int != 0 {
				return boolValue(true), nil
			}
		}
		return boolValue(false), nil

	case term.Param:
		v, ok := env.paramValues[x.Name]
		if !ok {
			return wasitype.Value{}, errors.Wrapf(ErrEffect, "unresolved param %q", x.Name)
		}
		return v, nil

	case term.Result:
		v, ok := env.resultValues[x.Name]
		if !ok {
			return wasitype.Value{}, errors.Wrapf(ErrEffect, "unresolved result %q", x.Name)
		}
		return v, nil

	case term.AttrGet:
		id, err := env.resolveTargetResource(x.Target)
		if err != nil {
			return wasitype.Value{}, err
		}
		r, ok := env.ctx.Get(id)
		if !ok {
			return wasitype.Value{}, errors.Wrapf(resource.ErrUnknownResource, "id %d", id)
		}
		v, ok := r.Attributes[x.Attr]
		if !ok {
			return wasitype.Value{}, errors.Wrapf(ErrEffect, "resource %d has no attribute %q yet", id, x.Attr)
		}
		return v, nil

	case term.FlagsGet:
		target, err := evalTerm(x.Target, env, wasitype.Type{})
		if err != nil {
			return wasitype.Value{}, err
		}
		return boolValue(target.Flags[x.Field]), nil

	case term.IntConst:
		// zero-value hint defaults to KindS64, a reasonable 64-bit fallback.
		return wasitype.Value{Type: hint, Int: x.Value.Uint64()}, nil

	case term.IntAdd:
		l, r, t3, err := evalMatched(x.Lhs, x.Rhs, env, hint)
		if err != nil {
			return wasitype.Value{}, err
		}
		return wasitype.Value{Type: t3, Int: l.Int + r.Int}, nil

	case term.IntLe:
		l, r, _, err := evalMatched(x.Lhs, x.Rhs, env, hint)
		if err != nil {
			return wasitype.Value{}, err
		}
		return boolValue(l.Int <= r.Int), nil

	case term.ValueEq:
		l, err := evalTerm(x.Lhs, env, wasitype.Type{})
		if err != nil {
			return wasitype.Value{}, err
		}
		r, err := evalTerm(x.Rhs, env, l.Type)
		if err != nil {
			return wasitype.Value{}, err
		}
		return boolValue(wasitype.Equal(l, r)), nil

	case term.VariantConst:
		return evalVariantConst(x, env)

	default:
		return wasitype.Value{}, errors.Errorf("callengine: unsupported term %T", t)
	}
}

// evalMatched mirrors encoder.encodeMatched: whichever side is not a
// bare IntConst determines the Type used to interpret the other side's
// literal.
func evalMatched(lhs, rhs term.Term, env *evalEnv, hint wasitype.Type) (wasitype.Value, wasitype.Value, wasitype.Type, error) {
	_, lIsConst := lhs.(term.IntConst)
	_, rIsConst := rhs.(term.IntConst)

	switch {
	case !lIsConst:
		lv, err := evalTerm(lhs, env, wasitype.Type{})
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		rv, err := evalTerm(rhs, env, lv.Type)
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		return lv, rv, lv.Type, nil

	case !rIsConst:
		rv, err := evalTerm(rhs, env, wasitype.Type{})
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		lv, err := evalTerm(lhs, env, rv.Type)
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		return lv, rv, rv.Type, nil

	default:
		t := hint
		lv, err := evalTerm(lhs, env, t)
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		rv, err := evalTerm(rhs, env, t)
		if err != nil {
			return wasitype.Value{}, wasitype.Value{}, wasitype.Type{}, err
		}
		return lv, rv, t, nil
	}
}

func evalVariantConst(x term.VariantConst, env *evalEnv) (wasitype.Value, error) {
	t, err := env.ifc.ResolveValtype(iface.Symbolic(x.Type))
	if err != nil {
		return wasitype.Value{}, errors.Wrapf(ErrEffect, "variant.const: %v", err)
	}
	if t.Kind != wasitype.KindVariant {
		return wasitype.Value{}, errors.Wrapf(ErrEffect, "variant.const: %q is not a variant type", x.Type)
	}

	idx := -1
	for i, c := range t.VariantCases {
		if c.Name == x.Case {
			idx = i
			break
		}
	}
	if idx < 0 {
		return wasitype.Value{}, errors.Wrapf(ErrEffect, "variant.const: %q has no case %q", x.Type, x.Case)
	}

	v := wasitype.Value{Type: t, VariantCase: idx}
	caseDef := t.VariantCases[idx]
	switch {
	case x.Payload != nil && caseDef.Payload != nil:
		pv, err := evalTerm(x.Payload, env, *caseDef.Payload)
		if err != nil {
			return wasitype.Value{}, err
		}
		v.VariantPayload = &pv
	case x.Payload != nil && caseDef.Payload == nil:
		return wasitype.Value{}, errors.Wrapf(ErrEffect, "variant.const: case %q takes no payload", x.Case)
	}
	return v, nil
}

func boolValue(b bool) wasitype.Value {
	v := uint64(0)
	if b {
		v = 1
	}
	return wasitype.Value{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: v}
}
