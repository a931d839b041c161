package wasitype

import "github.com/pkg/errors"

// Wire is the sum-type message used to describe a value plus its type
// shape on the wire to the executor subprocess (spec §4.1, "wazzi-executor
// protocol"). It is deliberately a flat struct with a discriminant
// rather than a Go interface, so it round-trips through msgpack (which
// has no native sum-type support) without a custom codec per variant.
type Wire struct {
	Kind Kind `codec:"kind" json:"kind"`

	Int   uint64   `codec:"int,omitempty" json:"int,omitempty"`
	List  []Wire   `codec:"list,omitempty" json:"list,omitempty"`
	Flags []string `codec:"flags,omitempty" json:"flags,omitempty"`

	VariantCase    int   `codec:"variant_case,omitempty" json:"variant_case,omitempty"`
	VariantPayload *Wire `codec:"variant_payload,omitempty" json:"variant_payload,omitempty"`

	RecordNames  []string `codec:"record_names,omitempty" json:"record_names,omitempty"`
	RecordValues []Wire   `codec:"record_values,omitempty" json:"record_values,omitempty"`
}

// ToWire converts a Value to its wire representation. The Type is not
// serialized in full (the executor already knows the function's
// signature from the request); only the shape discriminants needed to
// decode it unambiguously are carried, mirroring the original's
// `capnp_mappers.rs` approach of describing the value alongside a type
// tag rather than a full schema.
func ToWire(v Value) Wire {
	switch v.Type.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64, KindHandle:
		return Wire{Kind: v.Type.Kind, Int: v.Int}

	case KindString, KindList:
		w := Wire{Kind: v.Type.Kind, List: make([]Wire, len(v.List))}
		for i, e := range v.List {
			w.List[i] = ToWire(e)
		}
		return w

	case KindFlags:
		flags := make([]string, 0, len(v.Flags))
		for _, f := range v.Type.FlagsFields {
			if v.Flags[f] {
				flags = append(flags, f)
			}
		}
		return Wire{Kind: KindFlags, Flags: flags}

	case KindVariant:
		w := Wire{Kind: KindVariant, VariantCase: v.VariantCase}
		if v.VariantPayload != nil {
			p := ToWire(*v.VariantPayload)
			w.VariantPayload = &p
		}
		return w

	case KindRecord:
		w := Wire{
			Kind:         KindRecord,
			RecordNames:  make([]string, len(v.Record)),
			RecordValues: make([]Wire, len(v.Record)),
		}
		for i, m := range v.Record {
			w.RecordNames[i] = m.Name
			w.RecordValues[i] = ToWire(m.Value)
		}
		return w

	default:
		panic(errors.Errorf("wasitype: unknown kind %v", v.Type.Kind))
	}
}

// FromWire decodes a Wire message back into a Value of type t. t must
// be the same type that was passed to ToWire originally; FromWire
// trusts the caller's type (it is the executor's own request/response
// shape, not attacker-controlled data), matching the original's
// `from_wire` which reconstructs a `WasiValue` from protocol bytes using
// the statically-known function signature.
func FromWire(w Wire, t Type) (Value, error) {
	if w.Kind != t.Kind {
		return Value{}, errors.Errorf("wasitype: wire kind %v does not match expected type %v", w.Kind, t.Kind)
	}

	switch t.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64, KindHandle:
		return Value{Type: t, Int: w.Int}, nil

	case KindString, KindList:
		elem := Type{Kind: KindU8}
		if t.Kind == KindList {
			elem = *t.Elem
		}
		out := make([]Value, len(w.List))
		for i, e := range w.List {
			v, err := FromWire(e, elem)
			if err != nil {
				return Value{}, errors.Wrapf(err, "list element %d", i)
			}
			out[i] = v
		}
		return Value{Type: t, List: out}, nil

	case KindFlags:
		flags := make(map[string]bool, len(w.Flags))
		for _, f := range w.Flags {
			flags[f] = true
		}
		return Value{Type: t, Flags: flags}, nil

	case KindVariant:
		if w.VariantCase < 0 || w.VariantCase >= len(t.VariantCases) {
			return Value{}, errors.Errorf("wasitype: variant case %d out of range", w.VariantCase)
		}
		c := t.VariantCases[w.VariantCase]
		v := Value{Type: t, VariantCase: w.VariantCase}
		if c.Payload != nil {
			if w.VariantPayload == nil {
				return Value{}, errors.New("wasitype: variant case requires a payload")
			}
			p, err := FromWire(*w.VariantPayload, *c.Payload)
			if err != nil {
				return Value{}, errors.Wrap(err, "variant payload")
			}
			v.VariantPayload = &p
		}
		return v, nil

	case KindRecord:
		if len(w.RecordValues) != len(t.RecordMembers) {
			return Value{}, errors.Errorf("wasitype: record has %d members, type declares %d", len(w.RecordValues), len(t.RecordMembers))
		}
		out := make([]RecordValue, len(t.RecordMembers))
		for i, m := range t.RecordMembers {
			if w.RecordNames[i] != m.Name {
				return Value{}, errors.Errorf("wasitype: record member %d is %q, want %q", i, w.RecordNames[i], m.Name)
			}
			v, err := FromWire(w.RecordValues[i], m.Type)
			if err != nil {
				return Value{}, errors.Wrapf(err, "record member %q", m.Name)
			}
			out[i] = RecordValue{Name: m.Name, Value: v}
		}
		return Value{Type: t, Record: out}, nil

	default:
		return Value{}, errors.Errorf("wasitype: unknown kind %v", t.Kind)
	}
}
