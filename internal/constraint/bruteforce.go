package constraint

import "math/big"

// BruteForceBackend is a small pure-Go Backend used by tests in this
// package and in internal/paramgen. It exhaustively enumerates every
// assignment of the registered symbolic constants (so it is only
// practical for the narrow bit widths test fixtures use) and is not
// used outside tests; Z3Backend is the production Backend.
type BruteForceBackend struct{}

func NewBruteForceBackend() *BruteForceBackend { return &BruteForceBackend{} }

func (BruteForceBackend) NewSession(randomSeed uint32) Session {
	return &bfSession{widths: make(map[string]int)}
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

type bfBV struct {
	width int
	eval  func(a map[string]uint64) uint64
}

func (b bfBV) Width() int { return b.width }

type bfSession struct {
	order   []string
	widths  map[string]int
	asserts []bfBV
	model   map[string]uint64
}

func (s *bfSession) BVConst(name string, width int) BV {
	if _, ok := s.widths[name]; !ok {
		s.order = append(s.order, name)
		s.widths[name] = width
	}
	return bfBV{width: width, eval: func(a map[string]uint64) uint64 { return a[name] & mask(width) }}
}

func (s *bfSession) BVVal(val *big.Int, width int) BV {
	v := val.Uint64() & mask(width)
	return bfBV{width: width, eval: func(map[string]uint64) uint64 { return v }}
}

func (s *bfSession) Not(a BV) BV {
	x := a.(bfBV)
	return bfBV{width: 1, eval: func(m map[string]uint64) uint64 {
		if x.eval(m)&1 == 0 {
			return 1
		}
		return 0
	}}
}

func (s *bfSession) And(a ...BV) BV {
	return bfBV{width: 1, eval: func(m map[string]uint64) uint64 {
		for _, x := range a {
			if x.(bfBV).eval(m)&1 == 0 {
				return 0
			}
		}
		return 1
	}}
}

func (s *bfSession) Or(a ...BV) BV {
	return bfBV{width: 1, eval: func(m map[string]uint64) uint64 {
		for _, x := range a {
			if x.(bfBV).eval(m)&1 == 1 {
				return 1
			}
		}
		return 0
	}}
}

func (s *bfSession) Add(a, b BV) BV {
	x, y := a.(bfBV), b.(bfBV)
	w := x.width
	return bfBV{width: w, eval: func(m map[string]uint64) uint64 {
		return (x.eval(m) + y.eval(m)) & mask(w)
	}}
}

func (s *bfSession) ULE(a, b BV) BV {
	x, y := a.(bfBV), b.(bfBV)
	return bfBV{width: 1, eval: func(m map[string]uint64) uint64 {
		if x.eval(m) <= y.eval(m) {
			return 1
		}
		return 0
	}}
}

func (s *bfSession) Eq(a, b BV) BV {
	x, y := a.(bfBV), b.(bfBV)
	return bfBV{width: 1, eval: func(m map[string]uint64) uint64 {
		if x.eval(m) == y.eval(m) {
			return 1
		}
		return 0
	}}
}

func (s *bfSession) Extract(hi, lo int, a BV) BV {
	x := a.(bfBV)
	w := hi - lo + 1
	return bfBV{width: w, eval: func(m map[string]uint64) uint64 {
		return (x.eval(m) >> uint(lo)) & mask(w)
	}}
}

func (s *bfSession) Concat(parts ...BV) BV {
	total := 0
	for _, p := range parts {
		total += p.Width()
	}
	return bfBV{width: total, eval: func(m map[string]uint64) uint64 {
		var out uint64
		shift := uint(total)
		for _, p := range parts {
			x := p.(bfBV)
			shift -= uint(x.width)
			out |= x.eval(m) << shift
		}
		return out
	}}
}

func (s *bfSession) Assert(formula BV) {
	s.asserts = append(s.asserts, formula.(bfBV))
}

func (s *bfSession) Check() (CheckResult, error) {
	assign := make(map[string]uint64, len(s.order))

	var search func(i int) bool
	search = func(i int) bool {
		if i == len(s.order) {
			for _, f := range s.asserts {
				if f.eval(assign)&1 == 0 {
					return false
				}
			}
			return true
		}
		name := s.order[i]
		w := s.widths[name]
		limit := uint64(1) << uint(w)
		if w >= 24 {
			// Guard against pathologically wide test fixtures; the
			// production path never reaches this backend.
			limit = 1 << 24
		}
		for v := uint64(0); v < limit; v++ {
			assign[name] = v
			if search(i + 1) {
				return true
			}
		}
		delete(assign, name)
		return false
	}

	if search(0) {
		s.model = make(map[string]uint64, len(assign))
		for k, v := range assign {
			s.model[k] = v
		}
		return Sat, nil
	}
	return Unsat, nil
}

func (s *bfSession) ModelValue(a BV) (*big.Int, error) {
	x := a.(bfBV)
	return new(big.Int).SetUint64(x.eval(s.model)), nil
}

func (s *bfSession) Close() {}
