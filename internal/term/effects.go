package term

// EffectStmt is one statement of a function's `@effect (stmt…)` block
// (spec §6 "Spec input"). The only non-no-op statement is AttrSet: set
// an attribute on a resource to the value an expression evaluates to.
type EffectStmt interface {
	isEffectStmt()
}

// AttrSet declares that, after the call returns, the resource bound to
// Resource (a parameter or result name) has its Attr attribute updated
// to Value.
type AttrSet struct {
	Resource string
	Attr     string
	Value    EffectExpr
}

// Noop is a statement with no observable effect, used when a function's
// effect block is present but empty.
type Noop struct{}

func (AttrSet) isEffectStmt() {}
func (Noop) isEffectStmt()    {}

// EffectExpr is the right-hand side of an AttrSet. The only shape is
// FromTerm, which covers every effect in the preview1 spec (e.g.
// path_open's new fd's offset starts at the literal 0, and fd_seek's
// fd.offset becomes attr.get(fd, offset) + param(offset)).
type EffectExpr interface {
	isEffectExpr()
}

// FromTerm evaluates an arbitrary contract Term to produce the new
// attribute value (e.g. int.add(attr.get(fd, offset), param(delta))).
type FromTerm struct{ Term Term }

func (FromTerm) isEffectExpr() {}
