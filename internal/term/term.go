// Package term defines the small term language contract functions carry
// (spec §3 "Contract terms", component C4): boolean connectives, integer
// arithmetic and comparisons, attribute/flag reads, value equality, and
// variant construction. Terms are plain data; internal/constraint maps
// them onto an SMT encoding.
package term

import "math/big"

// Term is one node of a contract expression. It is typed implicitly:
// booleans at the top level of a contract, integers/values/variants in
// subexpressions; type-checking happens structurally in
// internal/constraint, not here.
type Term interface {
	isTerm()
}

// Not negates a boolean term.
type Not struct{ Term Term }

// And is the conjunction of zero or more boolean terms (true if empty).
type And struct{ Clauses []Term }

// Or is the disjunction of zero or more boolean terms (false if empty).
type Or struct{ Clauses []Term }

// Param references a function parameter by name.
type Param struct{ Name string }

// Result references a function result by name.
type Result struct{ Name string }

// AttrGet reads attribute Attr off the resource bound to Target (itself
// a Param/Result term resolving to a handle).
type AttrGet struct {
	Target Term
	Attr   string
}

// FlagsGet reads the boolean value of Field within the flags value
// produced by Target, which is declared to be of flags type Type.
type FlagsGet struct {
	Target Term
	Type   string
	Field  string
}

// IntConst is an integer literal.
type IntConst struct{ Value *big.Int }

// IntAdd is integer addition.
type IntAdd struct{ Lhs, Rhs Term }

// IntLe is the integer less-than-or-equal comparison.
type IntLe struct{ Lhs, Rhs Term }

// ValueEq is structural value equality between two terms of the same
// type.
type ValueEq struct{ Lhs, Rhs Term }

// VariantConst constructs a variant value of the named type and case,
// with an optional payload term.
type VariantConst struct {
	Type    string
	Case    string
	Payload Term // nil if the case carries no payload
}

func (Not) isTerm()          {}
func (And) isTerm()          {}
func (Or) isTerm()           {}
func (Param) isTerm()        {}
func (Result) isTerm()       {}
func (AttrGet) isTerm()      {}
func (FlagsGet) isTerm()     {}
func (IntConst) isTerm()     {}
func (IntAdd) isTerm()       {}
func (IntLe) isTerm()        {}
func (ValueEq) isTerm()      {}
func (VariantConst) isTerm() {}
