package constraint

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// Flatten encodes a concrete value as the big.Int bit pattern described
// by Width(v.Type), used both to constrain attribute symbols to their
// current concrete value (spec §4.4 step 2) and to build resource
// equality constraints (step 3).
func Flatten(v wasitype.Value) (*big.Int, error) {
	switch v.Type.Kind {
	case wasitype.KindS64, wasitype.KindU8, wasitype.KindU16, wasitype.KindU32, wasitype.KindU64, wasitype.KindHandle:
		return new(big.Int).SetUint64(v.Int), nil

	case wasitype.KindFlags:
		w := v.Type.FlagsRepr.Bits()
		out := new(big.Int)
		for i, f := range v.Type.FlagsFields {
			if v.Flags[f] {
				out.SetBit(out, i, 1)
			}
		}
		_ = w
		return out, nil

	case wasitype.KindVariant:
		tagWidth := tagBits(len(v.Type.VariantCases))
		payloadWidth := 0
		for _, c := range v.Type.VariantCases {
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

		out := new(big.Int)
		if v.VariantPayload != nil {
			p, err := Flatten(*v.VariantPayload)
			if err != nil {
				return nil, err
			}
			out.Or(out, p)
		}
		tag := new(big.Int).SetInt64(int64(v.VariantCase))
		tag.Lsh(tag, uint(payloadWidth))
		out.Or(out, tag)
		_ = tagWidth
		return out, nil

	case wasitype.KindRecord:
		out := new(big.Int)
		shift := uint(0)
		// Members are concatenated low-to-high in declared order so
		// that FlagsGet/member-extract offsets are easy to reason
		// about: member 0 occupies the lowest bits.
		for _, m := range v.Record {
			w, err := Width(m.Value.Type)
			if err != nil {
				return nil, err
			}
			bits, err := Flatten(m.Value)
			if err != nil {
				return nil, err
			}
			bits.Lsh(bits, shift)
			out.Or(out, bits)
			shift += uint(w)
		}
		return out, nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedShape, "%v", v.Type.Kind)
	}
}

// Unflatten decodes a big.Int bit pattern (as extracted from a z3 model)
// back into a Value of type t, the inverse of Flatten.
func Unflatten(bits *big.Int, t wasitype.Type) (wasitype.Value, error) {
	switch t.Kind {
	case wasitype.KindS64, wasitype.KindU8, wasitype.KindU16, wasitype.KindU32, wasitype.KindU64, wasitype.KindHandle:
		return wasitype.Value{Type: t, Int: bits.Uint64()}, nil

	case wasitype.KindFlags:
		flags := make(map[string]bool, len(t.FlagsFields))
		for i, f := range t.FlagsFields {
			if bits.Bit(i) == 1 {
				flags[f] = true
			}
		}
		return wasitype.Value{Type: t, Flags: flags}, nil

	case wasitype.KindVariant:
		payloadWidth := 0
		for _, c := range t.VariantCases {
			if c.Payload == nil {
				continue
			}
			w, err := Width(*c.Payload)
			if err != nil {
				return wasitype.Value{}, err
			}
			if w > payloadWidth {
				payloadWidth = w
			}
		}
		tag := new(big.Int).Rsh(bits, uint(payloadWidth))
		idx := int(tag.Int64())
		if idx < 0 || idx >= len(t.VariantCases) {
			return wasitype.Value{}, errors.Errorf("constraint: decoded variant tag %d out of range", idx)
		}
		v := wasitype.Value{Type: t, VariantCase: idx}
		c := t.VariantCases[idx]
		if c.Payload != nil {
			mask := new(big.Int).Lsh(big.NewInt(1), uint(payloadWidth))
			mask.Sub(mask, big.NewInt(1))
			payloadBits := new(big.Int).And(bits, mask)
			p, err := Unflatten(payloadBits, *c.Payload)
			if err != nil {
				return wasitype.Value{}, err
			}
			v.VariantPayload = &p
		}
		return v, nil

	case wasitype.KindRecord:
		members := make([]wasitype.RecordValue, len(t.RecordMembers))
		shift := uint(0)
		for i, m := range t.RecordMembers {
			w, err := Width(m.Type)
			if err != nil {
				return wasitype.Value{}, err
			}
			mask := new(big.Int).Lsh(big.NewInt(1), uint(w))
			mask.Sub(mask, big.NewInt(1))
			memberBits := new(big.Int).And(new(big.Int).Rsh(bits, shift), mask)
			mv, err := Unflatten(memberBits, m.Type)
			if err != nil {
				return wasitype.Value{}, err
			}
			members[i] = wasitype.RecordValue{Name: m.Name, Value: mv}
			shift += uint(w)
		}
		return wasitype.Value{Type: t, Record: members}, nil

	default:
		return wasitype.Value{}, errors.Wrapf(ErrUnsupportedShape, "%v", t.Kind)
	}
}
