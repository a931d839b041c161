package constraint

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// encoder holds the per-call symbolic state described in spec §4.4: one
// fresh parameter symbol per function parameter, a virtual
// (parameter, attribute) symbol for every resource-typed parameter's
// declared attributes, and the resource-constant enumeration tying
// those virtual symbols to whichever candidate resource the solver
// picks.
type encoder struct {
	sess Session
	ifc  *iface.Interface

	paramSym     map[string]BV
	paramType    map[string]wasitype.Type
	paramAttrSym map[string]map[string]BV
	candidates   map[string][]uint64
}

func (e *encoder) resolveNamedType(name string) (wasitype.Type, error) {
	return e.ifc.ResolveValtype(iface.Symbolic(name))
}

func (e *encoder) flagFieldIndex(typeName, field string) (int, error) {
	t, err := e.resolveNamedType(typeName)
	if err != nil {
		return 0, errors.Wrapf(ErrSpec, "flags.get: %v", err)
	}
	if t.Kind != wasitype.KindFlags {
		return 0, errors.Wrapf(ErrSpec, "flags.get: %q is not a flags type", typeName)
	}
	for i, f := range t.FlagsFields {
		if f == field {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrSpec, "flags.get: %q has no field %q", typeName, field)
}

// encode translates t into a bit-vector formula. hint is the bit width
// to use for an IntConst literal whose own width cannot otherwise be
// inferred (0 means "no hint available").
func (e *encoder) encode(t term.Term, hint int) (BV, error) {
	switch x := t.(type) {
	case term.Not:
		v, err := e.encode(x.Term, 1)
		if err != nil {
			return nil, err
		}
		return e.sess.Not(v), nil

	case term.And:
		parts := make([]BV, len(x.Clauses))
		for i, c := range x.Clauses {
			v, err := e.encode(c, 1)
			if err != nil {
				return nil, err
			}
			parts[i] = v
		}
		return e.sess.And(parts...), nil

	case term.Or:
		parts := make([]BV, len(x.Clauses))
		for i, c := range x.Clauses {
			v, err := e.encode(c, 1)
			if err != nil {
				return nil, err
			}
			parts[i] = v
		}
		return e.sess.Or(parts...), nil

	case term.Param:
		v, ok := e.paramSym[x.Name]
		if !ok {
			return nil, errors.Wrapf(ErrSpec, "unresolved param %q", x.Name)
		}
		return v, nil

	case term.Result:
		return nil, errors.Wrapf(ErrSpec, "result(%q) cannot appear in an input contract (no call has happened yet)", x.Name)

	case term.AttrGet:
		p, ok := x.Target.(term.Param)
		if !ok {
			return nil, errors.Wrap(ErrSpec, "attr.get target must be a bare param reference")
		}
		attrs, ok := e.paramAttrSym[p.Name]
		if !ok {
			return nil, errors.Wrapf(ErrSpec, "param %q is not a resource-typed parameter", p.Name)
		}
		v, ok := attrs[x.Attr]
		if !ok {
			return nil, errors.Wrapf(ErrSpec, "param %q has no attribute %q", p.Name, x.Attr)
		}
		return v, nil

	case term.FlagsGet:
		target, err := e.encode(x.Target, 0)
		if err != nil {
			return nil, err
		}
		idx, err := e.flagFieldIndex(x.Type, x.Field)
		if err != nil {
			return nil, err
		}
		return e.sess.Extract(idx, idx, target), nil

	case term.IntConst:
		if hint == 0 {
			return nil, errors.Wrap(ErrSpec, "ambiguous width for integer literal")
		}
		return e.sess.BVVal(x.Value, hint), nil

	case term.IntAdd:
		lv, rv, _, err := e.encodeMatched(x.Lhs, x.Rhs, hint)
		if err != nil {
			return nil, err
		}
		return e.sess.Add(lv, rv), nil

	case term.IntLe:
		lv, rv, _, err := e.encodeMatched(x.Lhs, x.Rhs, hint)
		if err != nil {
			return nil, err
		}
		return e.sess.ULE(lv, rv), nil

	case term.ValueEq:
		lv, rv, _, err := e.encodeMatched(x.Lhs, x.Rhs, 0)
		if err != nil {
			return nil, err
		}
		return e.sess.Eq(lv, rv), nil

	case term.VariantConst:
		return e.encodeVariantConst(x)

	default:
		return nil, errors.Errorf("constraint: unsupported term %T", t)
	}
}

// encodeMatched encodes lhs and rhs such that both land on the same
// width: whichever side is not a bare IntConst determines the width,
// which is then used as the hint for the other side. If both sides are
// literals, hint (or 64 as a last resort) is used for both.
func (e *encoder) encodeMatched(lhs, rhs term.Term, hint int) (BV, BV, int, error) {
	_, lIsConst := lhs.(term.IntConst)
	_, rIsConst := rhs.(term.IntConst)

	switch {
	case !lIsConst:
		lv, err := e.encode(lhs, 0)
		if err != nil {
			return nil, nil, 0, err
		}
		w := lv.Width()
		rv, err := e.encode(rhs, w)
		if err != nil {
			return nil, nil, 0, err
		}
		return lv, rv, w, nil

	case !rIsConst:
		rv, err := e.encode(rhs, 0)
		if err != nil {
			return nil, nil, 0, err
		}
		w := rv.Width()
		lv, err := e.encode(lhs, w)
		if err != nil {
			return nil, nil, 0, err
		}
		return lv, rv, w, nil

	default:
		w := hint
		if w == 0 {
			w = 64
		}
		lv, err := e.encode(lhs, w)
		if err != nil {
			return nil, nil, 0, err
		}
		rv, err := e.encode(rhs, w)
		if err != nil {
			return nil, nil, 0, err
		}
		return lv, rv, w, nil
	}
}

func (e *encoder) encodeVariantConst(x term.VariantConst) (BV, error) {
	t, err := e.resolveNamedType(x.Type)
	if err != nil {
		return nil, errors.Wrapf(ErrSpec, "variant.const: %v", err)
	}
	if t.Kind != wasitype.KindVariant {
		return nil, errors.Wrapf(ErrSpec, "variant.const: %q is not a variant type", x.Type)
	}

	idx := -1
	for i, c := range t.VariantCases {
		if c.Name == x.Case {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Wrapf(ErrSpec, "variant.const: %q has no case %q", x.Type, x.Case)
	}

	tagWidth := tagBits(len(t.VariantCases))
	payloadWidth := 0
	for _, c := range t.VariantCases {
		if c.Payload == nil {
			continue
		}
		w, err := Width(*c.Payload)
		if err != nil {
			return nil, err
		}
		if w > payloadWidth {
			payloadWidth = w
		}
	}

	caseDef := t.VariantCases[idx]
	tagBV := e.sess.BVVal(big.NewInt(int64(idx)), tagWidth)

	if payloadWidth == 0 {
		return tagBV, nil
	}

	var payloadBV BV
	switch {
	case x.Payload != nil && caseDef.Payload != nil:
		pw, err := Width(*caseDef.Payload)
		if err != nil {
			return nil, err
		}
		pv, err := e.encode(x.Payload, pw)
		if err != nil {
			return nil, err
		}
		if pw < payloadWidth {
			pv = e.sess.Concat(e.sess.BVVal(big.NewInt(0), payloadWidth-pw), pv)
		}
		payloadBV = pv

	case x.Payload != nil && caseDef.Payload == nil:
		return nil, errors.Wrapf(ErrSpec, "variant.const: case %q takes no payload", x.Case)

	default:
		payloadBV = e.sess.BVVal(big.NewInt(0), payloadWidth)
	}

	return e.sess.Concat(tagBV, payloadBV), nil
}
