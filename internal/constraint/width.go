// Package constraint maps contract terms (internal/term) onto an SMT
// encoding and solves them, implementing component C4 (term evaluator /
// encoder) and half of C5 (the low-level solve primitive; the picking
// and generation policies live in internal/paramgen).
//
// Every wasitype.Type is flattened to a fixed-width bit-vector sort: a
// tagged union (variant) becomes [tag bits | payload bits], a product
// (record) becomes the concatenation of its members' encodings, flags
// becomes one bit per declared field, and integers/handles become their
// declared repr width. This sidesteps relying on a particular Go z3
// binding's native datatype-sort API (which varies across versions and
// is the least stable part of any z3 cgo binding's surface) in favor of
// bit-vector theory alone, which is both stable and sufficient for
// every contract shape spec §3/§4.4 describes.
package constraint

import (
	"github.com/pkg/errors"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ErrUnsupportedShape is a SpecError: the contract or interface
// referenced a type shape the bit-vector flattening cannot represent
// (lists/strings have no fixed width and never appear in a contract
// term's value position per spec §3's term grammar).
var ErrUnsupportedShape = errors.New("constraint: unsupported type shape in contract encoding")

// Width returns the flattened bit-vector width of t, or
// ErrUnsupportedShape if t cannot appear in a contract term.
func Width(t wasitype.Type) (int, error) {
	switch t.Kind {
	case wasitype.KindS64, wasitype.KindU8, wasitype.KindU16, wasitype.KindU32, wasitype.KindU64, wasitype.KindHandle:
		return t.IntRepr().Bits(), nil

	case wasitype.KindFlags:
		w := t.FlagsRepr.Bits()
		if len(t.FlagsFields) > w {
			return 0, errors.Errorf("constraint: flags type declares %d fields but repr is only %d bits", len(t.FlagsFields), w)
		}
		return w, nil

	case wasitype.KindVariant:
		tagWidth := tagBits(len(t.VariantCases))
		payload := 0
		for _, c := range t.VariantCases {
			if c.Payload == nil {
				continue
			}
			w, err := Width(*c.Payload)
			if err != nil {
				return 0, err
			}
			if w > payload {
				payload = w
			}
		}
		return tagWidth + payload, nil

	case wasitype.KindRecord:
		total := 0
		for _, m := range t.RecordMembers {
			w, err := Width(m.Type)
			if err != nil {
				return 0, err
			}
			total += w
		}
		return total, nil

	default:
		return 0, errors.Wrapf(ErrUnsupportedShape, "%v", t.Kind)
	}
}

// tagBits is the width needed to address n variant cases, at least 1 so
// the tag field is never zero-width even for n<=1 (a single-case variant
// still needs a tag position in the flattened layout, even though spec
// §8 requires arbitrary-value generation to consume zero entropy bits
// for it).
func tagBits(n int) int {
	if n <= 1 {
		return 1
	}
	w := 0
	for (1 << w) < n {
		w++
	}
	return w
}
