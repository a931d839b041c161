package wasitype

import (
	"fmt"

	"github.com/pkg/errors"
)

// Value is a tagged union matching the Type grammar.
type Value struct {
	Type Type

	// integer kinds (s64/u8/u16/u32/u64) and handle
	Int uint64

	// string / list(T)
	List []Value

	// flags: the enabled field names, a subset of Type.FlagsFields
	Flags map[string]bool

	// record: ordered members keyed by name, mirroring Type.RecordMembers
	Record []RecordValue

	// variant: case index into Type.VariantCases, plus optional payload
	VariantCase    int
	VariantPayload *Value
}

// RecordValue is one member of a record value.
type RecordValue struct {
	Name  string
	Value Value
}

// ErrShapeMismatch is returned by Validate when a value's shape does
// not match its declared type.
var ErrShapeMismatch = errors.New("wasitype: value shape does not match its type")

// Validate enforces the invariants from spec §3: a value's shape must
// match its declared type exactly, and integer values must fit within
// their repr's bit width.
func (v Value) Validate() error {
	switch v.Type.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64, KindHandle:
		bits := v.Type.IntRepr().Bits()
		if bits < 64 && v.Int>>uint(bits) != 0 {
			return errors.Wrapf(ErrShapeMismatch, "integer value %d overflows %d-bit repr", v.Int, bits)
		}
		return nil

	case KindString:
		return nil

	case KindList:
		for i, elem := range v.List {
			if err := elem.Validate(); err != nil {
				return errors.Wrapf(err, "list element %d", i)
			}
		}
		return nil

	case KindFlags:
		declared := make(map[string]bool, len(v.Type.FlagsFields))
		for _, f := range v.Type.FlagsFields {
			declared[f] = true
		}
		for f := range v.Flags {
			if !declared[f] {
				return errors.Wrapf(ErrShapeMismatch, "flags field %q not declared", f)
			}
		}
		return nil

	case KindVariant:
		if v.VariantCase < 0 || v.VariantCase >= len(v.Type.VariantCases) {
			return errors.Wrapf(ErrShapeMismatch, "variant case index %d out of range", v.VariantCase)
		}
		c := v.Type.VariantCases[v.VariantCase]
		switch {
		case c.Payload == nil && v.VariantPayload != nil:
			return errors.Wrap(ErrShapeMismatch, "variant case has no payload but one was supplied")
		case c.Payload != nil && v.VariantPayload == nil:
			return errors.Wrap(ErrShapeMismatch, "variant case requires a payload")
		case c.Payload != nil:
			if v.VariantPayload.Type.Kind != c.Payload.Kind {
				return errors.Wrap(ErrShapeMismatch, "variant payload type mismatch")
			}
			return v.VariantPayload.Validate()
		default:
			return nil
		}

	case KindRecord:
		if len(v.Record) != len(v.Type.RecordMembers) {
			return errors.Wrapf(ErrShapeMismatch, "record has %d members, type declares %d", len(v.Record), len(v.Type.RecordMembers))
		}
		for i, m := range v.Type.RecordMembers {
			if v.Record[i].Name != m.Name {
				return errors.Wrapf(ErrShapeMismatch, "record member %d is %q, want %q", i, v.Record[i].Name, m.Name)
			}
			if err := v.Record[i].Value.Validate(); err != nil {
				return errors.Wrapf(err, "record member %q", m.Name)
			}
		}
		return nil

	default:
		return errors.Errorf("wasitype: unknown kind %v", v.Type.Kind)
	}
}

// Equal implements structural value equality, used by the term
// evaluator for value.eq.
func Equal(a, b Value) bool {
	if a.Type.Kind != b.Type.Kind {
		return false
	}

	switch a.Type.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64, KindHandle:
		return a.Int == b.Int

	case KindString:
		return string(bytesOf(a)) == string(bytesOf(b))

	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true

	case KindFlags:
		if len(a.Flags) != len(b.Flags) {
			return false
		}
		for f := range a.Flags {
			if a.Flags[f] != b.Flags[f] {
				return false
			}
		}
		return true

	case KindVariant:
		if a.VariantCase != b.VariantCase {
			return false
		}
		if (a.VariantPayload == nil) != (b.VariantPayload == nil) {
			return false
		}
		if a.VariantPayload == nil {
			return true
		}
		return Equal(*a.VariantPayload, *b.VariantPayload)

	case KindRecord:
		if len(a.Record) != len(b.Record) {
			return false
		}
		for i := range a.Record {
			if a.Record[i].Name != b.Record[i].Name {
				return false
			}
			if !Equal(a.Record[i].Value, b.Record[i].Value) {
				return false
			}
		}
		return true

	default:
		panic(fmt.Sprintf("wasitype: unknown kind %v", a.Type.Kind))
	}
}

// bytesOf reinterprets a list(u8)-shaped value (used for strings) as a
// byte slice.
func bytesOf(v Value) []byte {
	out := make([]byte, len(v.List))
	for i, b := range v.List {
		out[i] = byte(b.Int)
	}
	return out
}

// StringBytes returns v's raw bytes if v is a KindString value, used by
// paramgen to propagate a picked resource's byte-string value as a
// prefix for subsequent list(u8)/string draws (spec §4.6).
func StringBytes(v Value) ([]byte, bool) {
	if v.Type.Kind != KindString {
		return nil, false
	}
	return bytesOf(v), true
}
