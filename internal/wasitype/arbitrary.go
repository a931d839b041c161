package wasitype

import (
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"
)

// DefaultListCap is the default modulus applied to a drawn length byte
// when generating a list, per spec §4.1.
const DefaultListCap = 64

// ErrEntropyExhausted is returned when the entropy source runs out of
// bytes mid-draw. It is terminal for the current run, not a bug: see
// spec §7.
var ErrEntropyExhausted = errors.New("wasitype: entropy exhausted")

// Unstructured is an exhaustible byte entropy source. It never blocks
// and never panics; once exhausted it returns ErrEntropyExhausted from
// every draw.
//
// This mirrors the role of the `arbitrary::Unstructured` byte cursor in
// the original Rust implementation (see
// original_source/dyn-fuzzer/src/fuzzer.rs and every function_picker /
// param_generator file, which thread a `&mut Unstructured` through).
type Unstructured struct {
	data []byte
	pos  int
}

// NewUnstructured wraps a byte slice as an entropy source. The slice is
// not copied; callers that need an independent clone (one per runtime
// worker, per spec §4.7) should pass a copy of the backing slice.
func NewUnstructured(data []byte) *Unstructured {
	return &Unstructured{data: data}
}

// Clone returns an independent copy positioned at the same offset as u,
// so that one worker's consumption never starves another (spec §5,
// "Shared resources").
func (u *Unstructured) Clone() *Unstructured {
	return &Unstructured{data: u.data, pos: u.pos}
}

// Len reports the number of unconsumed bytes.
func (u *Unstructured) Len() int { return len(u.data) - u.pos }

// Bytes consumes and returns n bytes, or ErrEntropyExhausted if fewer
// than n remain.
func (u *Unstructured) Bytes(n int) ([]byte, error) {
	if u.Len() < n {
		u.pos = len(u.data)
		return nil, ErrEntropyExhausted
	}
	b := u.data[u.pos : u.pos+n]
	u.pos += n
	return b, nil
}

// Byte consumes a single byte.
func (u *Unstructured) Byte() (byte, error) {
	b, err := u.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint32 consumes one little-endian u32, used for z3 random seeds and
// handle values.
func (u *Unstructured) Uint32() (uint32, error) {
	b, err := u.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 consumes one little-endian u64.
func (u *Unstructured) Uint64() (uint64, error) {
	b, err := u.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// UintN consumes a little-endian unsigned integer of the given repr
// width.
func (u *Unstructured) UintN(repr IntRepr) (uint64, error) {
	switch repr {
	case IntReprU8:
		b, err := u.Byte()
		return uint64(b), err
	case IntReprU16:
		b, err := u.Bytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case IntReprU32:
		v, err := u.Uint32()
		return uint64(v), err
	case IntReprU64:
		return u.Uint64()
	default:
		return 0, errors.Errorf("wasitype: unknown int repr %d", repr)
	}
}

// ChooseIndex draws a value in [0, n) by consuming entropy. Mirrors
// `Unstructured::choose_index` in the original, used for
// function/candidate and resource selection.
func (u *Unstructured) ChooseIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("wasitype: choose_index of empty range")
	}
	b, err := u.Byte()
	if err != nil {
		return 0, err
	}
	return int(b) % n, nil
}

// bitsFor returns ceil(log2(n)) for n >= 1, the number of bits needed
// to address n variant cases per spec §4.1.
func bitsFor(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// ArbitraryValue draws a well-typed value of t from u. stringPrefix, if
// non-nil, is prepended verbatim to a list(u8)/string draw before the
// remainder is generated (spec §4.1's byte-string prefix propagation).
func ArbitraryValue(u *Unstructured, t Type, stringPrefix []byte) (Value, error) {
	switch t.Kind {
	case KindS64, KindU8, KindU16, KindU32, KindU64, KindHandle:
		n, err := u.UintN(t.IntRepr())
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int: n}, nil

	case KindString:
		return arbitraryList(u, t, stringPrefix)

	case KindList:
		return arbitraryList(u, t, stringPrefix)

	case KindFlags:
		flags := make(map[string]bool, len(t.FlagsFields))
		for _, f := range t.FlagsFields {
			b, err := u.Byte()
			if err != nil {
				return Value{}, err
			}
			if b&1 == 1 {
				flags[f] = true
			}
		}
		return Value{Type: t, Flags: flags}, nil

	case KindVariant:
		nbits := bitsFor(len(t.VariantCases))
		var idx int
		if nbits > 0 {
			b, err := u.Byte()
			if err != nil {
				return Value{}, err
			}
			idx = int(b) % len(t.VariantCases)
		}
		c := t.VariantCases[idx]
		v := Value{Type: t, VariantCase: idx}
		if c.Payload != nil {
			payload, err := ArbitraryValue(u, *c.Payload, nil)
			if err != nil {
				return Value{}, err
			}
			v.VariantPayload = &payload
		}
		return v, nil

	case KindRecord:
		members := make([]RecordValue, len(t.RecordMembers))
		for i, m := range t.RecordMembers {
			mv, err := ArbitraryValue(u, m.Type, nil)
			if err != nil {
				return Value{}, err
			}
			members[i] = RecordValue{Name: m.Name, Value: mv}
		}
		return Value{Type: t, Record: members}, nil

	default:
		return Value{}, errors.Errorf("wasitype: unknown kind %v", t.Kind)
	}
}

func arbitraryList(u *Unstructured, t Type, stringPrefix []byte) (Value, error) {
	elem := Type{Kind: KindU8}
	if t.Kind == KindList {
		elem = *t.Elem
	}

	var out []Value
	if stringPrefix != nil && elem.Kind == KindU8 {
		out = make([]Value, 0, len(stringPrefix)+DefaultListCap)
		for _, b := range stringPrefix {
			out = append(out, Value{Type: elem, Int: uint64(b)})
		}
	}

	lenByte, err := u.Byte()
	if err != nil {
		return Value{}, err
	}
	n := int(lenByte) % DefaultListCap

	for i := 0; i < n; i++ {
		v, err := ArbitraryValue(u, elem, nil)
		if err != nil {
			return Value{}, err
		}
		out = append(out, v)
	}

	return Value{Type: t, List: out}, nil
}
