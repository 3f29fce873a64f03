// Package bound defines the semantically resolved expression tree.
//
// Every bound node carries exactly one type tag (see DeriveType) and every
// name reference has been replaced by a concrete binding: a column of a
// visible relation (Var), a whole row (RowRef), a field of a composite value
// (FieldSelect) or an output slot of an enclosing query (OuterRef).
package bound

import (
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Expr is a bound expression node.
type Expr interface {
	core.Node
	boundExpr() // Marker method to distinguish bound expressions
}

// Const is a typed constant. A Const of type core.TypeUnknown is an untyped
// literal whose type is settled the first time a parent demands one; until
// then Value holds the literal text.
type Const struct {
	Type    core.TypeTag
	Mod     core.TypeMod
	Value   any // nil, bool, int64, float64, decimal.Decimal, time.Time or string
	IsNull  bool
	Literal string // source text
	Loc     token.Position
}

func (*Const) boundExpr() {}

// Pos implements core.Node.
func (c *Const) Pos() token.Position { return c.Loc }

// IsUntyped reports whether the constant is still awaiting a type.
func (c *Const) IsUntyped() bool { return c.Type == core.TypeUnknown }

// Var references a column of a visible relation.
type Var struct {
	RelIndex int    // 1-based position of the relation in its scope
	Relation string // alias the relation is visible under
	AttNo    int    // 1-based column number
	Name     string
	Type     core.TypeTag
	Mod      core.TypeMod
	LevelsUp int // 0 for the current scope
	Loc      token.Position
}

func (*Var) boundExpr() {}

// Pos implements core.Node.
func (v *Var) Pos() token.Position { return v.Loc }

// RowRef references a whole row of a visible relation.
type RowRef struct {
	RelIndex int
	Relation string
	Type     core.TypeTag
	LevelsUp int
	Loc      token.Position
}

func (*RowRef) boundExpr() {}

// Pos implements core.Node.
func (r *RowRef) Pos() token.Position { return r.Loc }

// FieldSelect extracts a field from a composite value.
type FieldSelect struct {
	Arg     Expr
	FieldNo int // 1-based
	Field   string
	Type    core.TypeTag
	Mod     core.TypeMod
	Loc     token.Position
}

func (*FieldSelect) boundExpr() {}

// Pos implements core.Node.
func (f *FieldSelect) Pos() token.Position { return f.Loc }

// OuterRef reads an output slot of an enclosing query. Ref is the Var or
// RowRef the slot was allocated for.
type OuterRef struct {
	Slot int
	Ref  Expr
	Loc  token.Position
}

func (*OuterRef) boundExpr() {}

// Pos implements core.Node.
func (o *OuterRef) Pos() token.Position { return o.Loc }

// OpExpr is an operator applied to coerced operands.
type OpExpr struct {
	Op     string
	Args   []Expr
	Result core.TypeTag
	Loc    token.Position
}

func (*OpExpr) boundExpr() {}

// Pos implements core.Node.
func (o *OpExpr) Pos() token.Position { return o.Loc }

// FuncExpr is a function applied to coerced arguments.
type FuncExpr struct {
	Name   string
	Args   []Expr
	Star   bool
	Result core.TypeTag
	Loc    token.Position
}

func (*FuncExpr) boundExpr() {}

// Pos implements core.Node.
func (f *FuncExpr) Pos() token.Position { return f.Loc }

// BoolKind identifies a boolean connective.
type BoolKind int

// BoolKind constants.
const (
	BoolAnd BoolKind = iota
	BoolOr
	BoolNot
)

// String returns the string representation of BoolKind.
func (k BoolKind) String() string {
	switch k {
	case BoolAnd:
		return "AND"
	case BoolOr:
		return "OR"
	default:
		return "NOT"
	}
}

// BoolExpr combines boolean operands.
type BoolExpr struct {
	Kind BoolKind
	Args []Expr
	Loc  token.Position
}

func (*BoolExpr) boundExpr() {}

// Pos implements core.Node.
func (b *BoolExpr) Pos() token.Position { return b.Loc }

// NullTest is IS NULL / IS NOT NULL.
type NullTest struct {
	Arg     Expr
	Negated bool
	Loc     token.Position
}

func (*NullTest) boundExpr() {}

// Pos implements core.Node.
func (n *NullTest) Pos() token.Position { return n.Loc }

// Cast converts its argument to Target. The result always carries the
// target's modifier.
type Cast struct {
	Arg      Expr
	Target   core.TypeTag
	Mod      core.TypeMod
	Method   core.CastMethod
	Implicit bool // inserted by coercion rather than written by the user
	Loc      token.Position
}

func (*Cast) boundExpr() {}

// Pos implements core.Node.
func (c *Cast) Pos() token.Position { return c.Loc }

// SubLink is a bound sub-query inside an expression. Subquery is whatever the
// statement orchestrator returned for the sub-select.
type SubLink struct {
	Kind      core.SubLinkKind
	Test      Expr   // coerced left-hand side for ANY/ALL
	Op        string // comparison operator for ANY/ALL
	Row       Expr   // ANY/ALL: the output column as the operator reads it
	OpSig     core.Signature
	Subquery  any
	Result    core.TypeTag // output column type for EXPR sub-links
	ResultMod core.TypeMod
	Loc       token.Position
}

func (*SubLink) boundExpr() {}

// Pos implements core.Node.
func (s *SubLink) Pos() token.Position { return s.Loc }

// SubqueryColumn is the value of a sub-query's output column for the row
// being compared by an ANY/ALL sub-link.
type SubqueryColumn struct {
	Name string
	Type core.TypeTag
	Mod  core.TypeMod
	Loc  token.Position
}

func (*SubqueryColumn) boundExpr() {}

// Pos implements core.Node.
func (c *SubqueryColumn) Pos() token.Position { return c.Loc }

// Param is a positional parameter.
type Param struct {
	Number int
	Type   core.TypeTag
	Loc    token.Position
}

func (*Param) boundExpr() {}

// Pos implements core.Node.
func (p *Param) Pos() token.Position { return p.Loc }
