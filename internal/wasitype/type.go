// Package wasitype defines the typed value model shared by every
// component of the fuzzer: primitive, variant, flags, record, list and
// handle types, the values that inhabit them, arbitrary-value synthesis
// from a byte entropy source, and the wire encoding used to talk to the
// executor subprocess.
package wasitype

import "fmt"

// IntRepr is the bit width of an integer-backed type (a plain integer,
// a variant tag, or a flags bitset).
type IntRepr uint8

const (
	IntReprU8 IntRepr = iota
	IntReprU16
	IntReprU32
	IntReprU64
)

// Bits returns the width of the representation.
func (r IntRepr) Bits() int {
	switch r {
	case IntReprU8:
		return 8
	case IntReprU16:
		return 16
	case IntReprU32:
		return 32
	case IntReprU64:
		return 64
	default:
		panic(fmt.Sprintf("wasitype: unknown int repr %d", r))
	}
}

// Kind discriminates the Type union.
type Kind uint8

const (
	KindS64 Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindHandle
	KindString
	KindList
	KindFlags
	KindVariant
	KindRecord
)

// Type is one of: s64 | u8 | u16 | u32 | u64 | handle | string | list(T) |
// flags(repr, fields) | variant(tag-repr, cases) | record(members).
//
// Only the fields relevant to Kind are populated; the zero value of the
// others is ignored.
type Type struct {
	Kind Kind

	// list(T)
	Elem *Type

	// flags(repr, fields)
	FlagsRepr   IntRepr
	FlagsFields []string

	// variant(tag-repr, cases)
	VariantTagRepr IntRepr
	VariantCases   []VariantCase

	// record(members)
	RecordMembers []RecordMember
}

// VariantCase is one arm of a variant type: a name and an optional
// payload type.
type VariantCase struct {
	Name    string
	Payload *Type
}

// RecordMember is one field of a record type.
type RecordMember struct {
	Name string
	Type Type
}

// IsInteger reports whether t is one of the plain integer kinds.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64:
		return true
	default:
		return false
	}
}

// IntRepr returns the bit-width representation of an integer kind.
// Panics if t is not an integer type.
func (t Type) IntRepr() IntRepr {
	switch t.Kind {
	case KindU8:
		return IntReprU8
	case KindU16:
		return IntReprU16
	case KindU32, KindHandle:
		return IntReprU32
	case KindS64:
		return IntReprU64
	case KindU64:
		return IntReprU64
	default:
		panic(fmt.Sprintf("wasitype: %v has no int repr", t.Kind))
	}
}

// String values are represented as list(u8) with a dedicated Kind so
// the arbitrary generator and wire encoder can special-case the string
// prefix-propagation rule in spec §4.1.
func StringType() Type { return Type{Kind: KindString} }

func ListType(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }

func FlagsType(repr IntRepr, fields []string) Type {
	return Type{Kind: KindFlags, FlagsRepr: repr, FlagsFields: fields}
}

func VariantType(tagRepr IntRepr, cases []VariantCase) Type {
	return Type{Kind: KindVariant, VariantTagRepr: tagRepr, VariantCases: cases}
}

func RecordType(members []RecordMember) Type {
	return Type{Kind: KindRecord, RecordMembers: members}
}
