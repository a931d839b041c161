package constraint

import (
	"math/big"

	"github.com/aclements/go-z3/z3"
	"github.com/pkg/errors"
)

// Z3Backend is the production Backend, a thin wrapper over
// github.com/aclements/go-z3/z3 — the direct Go analog of the `z3`
// crate used throughout original_source/specz and original_source/src.
type Z3Backend struct {
	ctx *z3.Context
}

// NewZ3Backend creates one z3.Context, shared read-only across Sessions
// (z3 contexts are safe to read from multiple solvers, only the Config
// used to build them is mutated once up front).
func NewZ3Backend() *Z3Backend {
	cfg := z3.NewConfig()
	return &Z3Backend{ctx: z3.NewContext(cfg)}
}

func (b *Z3Backend) NewSession(randomSeed uint32) Session {
	solver := b.ctx.NewSolver()
	params := z3.NewParams(b.ctx)
	params.SetBool("randomize", false)
	params.SetUint("smt.random_seed", randomSeed)
	solver.SetParams(params)

	return &z3Session{ctx: b.ctx, solver: solver, consts: make(map[string]z3.BV)}
}

type z3bv struct {
	v     z3.BV
	width int
}

func (b z3bv) Width() int { return b.width }

type z3Session struct {
	ctx    *z3.Context
	solver *z3.Solver
	consts map[string]z3.BV
	model  *z3.Model
}

func (s *z3Session) BVConst(name string, width int) BV {
	if v, ok := s.consts[name]; ok {
		return z3bv{v: v, width: width}
	}
	v := s.ctx.BVConst(name, width)
	s.consts[name] = v
	return z3bv{v: v, width: width}
}

func (s *z3Session) BVVal(val *big.Int, width int) BV {
	return z3bv{v: s.ctx.FromBigInt(val, s.ctx.BVSort(width)).(z3.BV), width: width}
}

func (s *z3Session) Not(a BV) BV {
	x := a.(z3bv)
	return z3bv{v: x.v.Not(), width: x.width}
}

func (s *z3Session) And(a ...BV) BV {
	if len(a) == 0 {
		return s.BVVal(big.NewInt(1), 1)
	}
	acc := a[0].(z3bv).v
	for _, x := range a[1:] {
		acc = acc.And(x.(z3bv).v)
	}
	return z3bv{v: acc, width: a[0].Width()}
}

func (s *z3Session) Or(a ...BV) BV {
	if len(a) == 0 {
		return s.BVVal(big.NewInt(0), 1)
	}
	acc := a[0].(z3bv).v
	for _, x := range a[1:] {
		acc = acc.Or(x.(z3bv).v)
	}
	return z3bv{v: acc, width: a[0].Width()}
}

func (s *z3Session) Add(a, b BV) BV {
	x, y := a.(z3bv), b.(z3bv)
	return z3bv{v: x.v.Add(y.v), width: x.width}
}

func (s *z3Session) ULE(a, b BV) BV {
	x, y := a.(z3bv), b.(z3bv)
	return z3bv{v: x.v.ULE(y.v), width: 1}
}

func (s *z3Session) Eq(a, b BV) BV {
	x, y := a.(z3bv), b.(z3bv)
	return z3bv{v: x.v.Eq(y.v), width: 1}
}

func (s *z3Session) Extract(hi, lo int, a BV) BV {
	x := a.(z3bv)
	return z3bv{v: x.v.Extract(hi, lo), width: hi - lo + 1}
}

func (s *z3Session) Concat(parts ...BV) BV {
	total := 0
	acc := parts[0].(z3bv).v
	total += parts[0].Width()
	for _, p := range parts[1:] {
		x := p.(z3bv)
		acc = acc.Concat(x.v)
		total += x.width
	}
	return z3bv{v: acc, width: total}
}

func (s *z3Session) Assert(formula BV) {
	s.solver.Assert(formula.(z3bv).v.AsBool())
}

func (s *z3Session) Check() (CheckResult, error) {
	sat, err := s.solver.Check()
	if err != nil {
		return Unknown, errors.Wrap(err, "constraint: z3 check failed")
	}
	switch sat {
	case z3.Sat:
		m := s.solver.Model()
		s.model = m
		return Sat, nil
	case z3.Unsat:
		return Unsat, nil
	default:
		return Unknown, nil
	}
}

func (s *z3Session) ModelValue(a BV) (*big.Int, error) {
	if s.model == nil {
		return nil, errors.New("constraint: ModelValue called without a prior Sat Check")
	}
	x := a.(z3bv)
	val := s.model.Eval(x.v, true)
	n, ok := new(big.Int).SetString(val.String(), 10)
	if !ok {
		return nil, errors.Errorf("constraint: could not parse model value %q", val.String())
	}
	return n, nil
}

func (s *z3Session) Close() {}
