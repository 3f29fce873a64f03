package core

import "github.com/leapstack-labs/leapbind/pkg/token"

// ---------- Raw Expression Types ----------

// LiteralKind represents the lexical class of a literal.
type LiteralKind int

// LiteralKind constants for SQL literal value classes.
const (
	LiteralInteger LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralBool
	LiteralNull
)

// String returns the string representation of LiteralKind.
func (k LiteralKind) String() string {
	switch k {
	case LiteralInteger:
		return "integer"
	case LiteralFloat:
		return "float"
	case LiteralString:
		return "string"
	case LiteralBool:
		return "bool"
	case LiteralNull:
		return "null"
	default:
		return "unknown"
	}
}

// Const represents a literal constant exactly as it was written.
type Const struct {
	Kind  LiteralKind
	Value string
	Loc   token.Position
}

func (*Const) rawExpr() {}

// Pos implements Node.
func (c *Const) Pos() token.Position { return c.Loc }

// ColumnRef represents a bare column name, or a relation-qualified one when
// Relation is set. Producers that cannot tell a qualifier from a composite
// column emit a Chain instead.
type ColumnRef struct {
	Relation string // optional relation/alias qualifier
	Name     string
	Loc      token.Position
}

func (*ColumnRef) rawExpr() {}

// Pos implements Node.
func (c *ColumnRef) Pos() token.Position { return c.Loc }

// Chain represents a dotted name chain such as a.b.c whose segments are
// disambiguated during binding (relation, column, or composite field).
type Chain struct {
	Segments []string
	Loc      token.Position
}

func (*Chain) rawExpr() {}

// Pos implements Node.
func (c *Chain) Pos() token.Position { return c.Loc }

// FieldAccess applies a field chain to an arbitrary expression: (expr).a.b
type FieldAccess struct {
	Arg    RawExpr
	Fields []string
	Loc    token.Position
}

func (*FieldAccess) rawExpr() {}

// Pos implements Node.
func (f *FieldAccess) Pos() token.Position { return f.Loc }

// ExprKind distinguishes the productions folded into AExpr.
type ExprKind int

// ExprKind constants.
const (
	ExprOp      ExprKind = iota // binary or prefix operator
	ExprAnd                     // a AND b
	ExprOr                      // a OR b
	ExprNot                     // NOT a
	ExprIsNull                  // a IS NULL
	ExprNotNull                 // a IS NOT NULL
)

// String returns the string representation of ExprKind.
func (k ExprKind) String() string {
	switch k {
	case ExprOp:
		return "op"
	case ExprAnd:
		return "AND"
	case ExprOr:
		return "OR"
	case ExprNot:
		return "NOT"
	case ExprIsNull:
		return "IS NULL"
	case ExprNotNull:
		return "IS NOT NULL"
	default:
		return "unknown"
	}
}

// AExpr represents an operator application. For prefix operators and the
// single-operand kinds (NOT, IS NULL, IS NOT NULL) only one operand is set:
// Right for prefix operators and NOT, Left for the null tests.
type AExpr struct {
	Kind  ExprKind
	Op    string // operator name for ExprOp
	Left  RawExpr
	Right RawExpr
	Loc   token.Position
}

func (*AExpr) rawExpr() {}

// Pos implements Node.
func (a *AExpr) Pos() token.Position { return a.Loc }

// IsPrefix reports whether the expression is a prefix operator application.
func (a *AExpr) IsPrefix() bool { return a.Kind == ExprOp && a.Left == nil }

// FuncCall represents a function call.
type FuncCall struct {
	Name string
	Args []RawExpr
	Star bool // COUNT(*)
	Loc  token.Position
}

func (*FuncCall) rawExpr() {}

// Pos implements Node.
func (f *FuncCall) Pos() token.Position { return f.Loc }

// TypeName is a type reference with optional modifiers: varchar(10), numeric(12,2).
type TypeName struct {
	Name string
	Mods []int
}

// TypeCast represents CAST(expr AS type) and expr::type.
type TypeCast struct {
	Arg  RawExpr
	Type *TypeName
	Loc  token.Position
}

func (*TypeCast) rawExpr() {}

// Pos implements Node.
func (t *TypeCast) Pos() token.Position { return t.Loc }

// SubLinkKind identifies how a sub-query is linked into its parent expression.
type SubLinkKind int

// SubLinkKind constants.
const (
	SubLinkExists SubLinkKind = iota // EXISTS (SELECT ...)
	SubLinkAny                       // x op ANY (SELECT ...)
	SubLinkAll                       // x op ALL (SELECT ...)
	SubLinkExpr                      // (SELECT ...) used as a scalar
)

// String returns the string representation of SubLinkKind.
func (k SubLinkKind) String() string {
	switch k {
	case SubLinkExists:
		return "EXISTS"
	case SubLinkAny:
		return "ANY"
	case SubLinkAll:
		return "ALL"
	case SubLinkExpr:
		return "EXPR"
	default:
		return "unknown"
	}
}

// SubLink represents a sub-query inside an expression. Subselect is opaque
// to the binder and handed to the statement orchestrator for binding.
type SubLink struct {
	Kind      SubLinkKind
	Test      RawExpr // left-hand expression for ANY/ALL
	Op        string  // comparison operator for ANY/ALL
	Subselect any
	Loc       token.Position
}

func (*SubLink) rawExpr() {}

// Pos implements Node.
func (s *SubLink) Pos() token.Position { return s.Loc }

// ParamRef represents a positional parameter ($1, $2, ...).
type ParamRef struct {
	Number int
	Loc    token.Position
}

func (*ParamRef) rawExpr() {}

// Pos implements Node.
func (p *ParamRef) Pos() token.Position { return p.Loc }
