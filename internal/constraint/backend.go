package constraint

import "math/big"

// CheckResult mirrors the three outcomes of an SMT check (spec §4.5).
type CheckResult int

const (
	Unknown CheckResult = iota
	Sat
	Unsat
)

// BV is an opaque handle to a bit-vector expression inside one Session.
// It carries no behaviour of its own; all operations go through the
// Session that produced it.
type BV interface {
	Width() int
}

// Session is one SMT solver instance scoped to a single function-call
// solve attempt. Spec §4.5 step 1 requires a *fresh* backend configured
// with `randomize=false` and a caller-supplied random seed for every
// call, so a Session is cheap to create and is never reused across
// calls — this matches FunctionScope::new being constructed inside the
// per-function loop in
// original_source/specz/src/function_picker/solver.rs.
type Session interface {
	// BVConst creates (or returns, if already created under this name)
	// a fresh symbolic bit-vector constant.
	BVConst(name string, width int) BV
	// BVVal creates a bit-vector literal.
	BVVal(val *big.Int, width int) BV

	Not(a BV) BV
	And(a ...BV) BV
	Or(a ...BV) BV
	Add(a, b BV) BV
	ULE(a, b BV) BV // unsigned a <= b, both interpreted as the same width
	Eq(a, b BV) BV
	Extract(hi, lo int, a BV) BV
	Concat(parts ...BV) BV // parts[0] occupies the high bits

	Assert(formula BV)
	Check() (CheckResult, error)
	// ModelValue returns the concrete value z3 assigned to a after a
	// Sat Check. Calling it before Check or after Unsat is a
	// programmer error.
	ModelValue(a BV) (*big.Int, error)

	Close()
}

// Backend constructs Sessions. The production implementation is the Z3
// backend (z3.go); BruteForceBackend (bruteforce.go) is a second,
// exhaustive-search implementation used by tests. The interface exists
// so paramgen never imports z3
// directly, per Open Question (a) in spec §9 and SPEC_FULL.md §4.
type Backend interface {
	NewSession(randomSeed uint32) Session
}
