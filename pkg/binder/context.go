package binder

import (
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/core"
)

// ContextKind is the syntactic role of the expression being bound.
type ContextKind int

// ContextKind constants.
const (
	// TopLevel is an expression handed over by the statement orchestrator.
	TopLevel ContextKind = iota
	// OperandOf is an operand of an operator.
	OperandOf
	// FunctionArgument is an argument of a function call.
	FunctionArgument
	// CastSource is the argument of an explicit cast.
	CastSource
	// ChainHead is a value whose fields are about to be selected.
	ChainHead
	// Condition is an operand of AND, OR or NOT.
	Condition
	// SubLinkTest is the left-hand side of ANY or ALL.
	SubLinkTest
)

// String returns the string representation of ContextKind.
func (k ContextKind) String() string {
	switch k {
	case TopLevel:
		return "TopLevel"
	case OperandOf:
		return "OperandOf"
	case FunctionArgument:
		return "FunctionArgument"
	case CastSource:
		return "CastSource"
	case ChainHead:
		return "ChainHead"
	case Condition:
		return "Condition"
	case SubLinkTest:
		return "SubLinkTest"
	default:
		return "unknown"
	}
}

// Context is threaded through every recursive bind call. The binder never
// inspects anything but these fields, so each disambiguation is a case on
// Kind rather than a threshold comparison.
//
// A Context is a value. Children receive a narrowed copy made by one of the
// narrowing methods; narrowing never carries Expected down, since the
// expectation applies to the node it was given for.
type Context struct {
	Kind ContextKind

	Op       string // OperandOf, SubLinkTest
	Func     string // FunctionArgument
	Position int    // 0-based operand or argument index

	// ChainDepth counts the field selections applied on top of the value
	// being bound.
	ChainDepth int

	// AllowImplicit permits an implicit cast when the result is coerced to
	// Expected.
	AllowImplicit bool

	// Expected, when set, is the type the result must be coerced to.
	Expected    core.TypeTag
	ExpectedMod core.TypeMod
}

// Top returns the context for an expression bound on its own.
func Top() Context {
	return Context{Kind: TopLevel, AllowImplicit: true, ExpectedMod: core.NoTypeMod}
}

// Assignment returns a top-level context whose result is coerced to the
// given type, as for an INSERT target column. Implicit casts are allowed.
func Assignment(t core.TypeTag, mod core.TypeMod) Context {
	c := Top()
	c.Expected = t
	c.ExpectedMod = mod
	return c
}

// Strict returns a top-level context whose result must already have the
// given type, up to literal resolution and modifier changes.
func Strict(t core.TypeTag, mod core.TypeMod) Context {
	c := Assignment(t, mod)
	c.AllowImplicit = false
	return c
}

func (c Context) child(kind ContextKind) Context {
	return Context{
		Kind:          kind,
		AllowImplicit: true,
		ExpectedMod:   core.NoTypeMod,
	}
}

// Operand narrows the context for operand pos of op.
func (c Context) Operand(op string, pos int) Context {
	n := c.child(OperandOf)
	n.Op = op
	n.Position = pos
	return n
}

// Argument narrows the context for argument pos of a call to fn.
func (c Context) Argument(fn string, pos int) Context {
	n := c.child(FunctionArgument)
	n.Func = fn
	n.Position = pos
	return n
}

// CastSource narrows the context for the argument of an explicit cast.
func (c Context) CastSource() Context {
	return c.child(CastSource)
}

// ChainHead narrows the context for a value whose fields are selected.
// Nested heads accumulate depth.
func (c Context) ChainHead() Context {
	n := c.child(ChainHead)
	n.ChainDepth = c.ChainDepth + 1
	return n
}

// Condition narrows the context for a boolean operand. Operands must be
// boolean already or be untyped; no cast is inserted.
func (c Context) Condition() Context {
	n := c.child(Condition)
	n.AllowImplicit = false
	n.Expected = core.TypeBool
	return n
}

// SubLinkTest narrows the context for the left-hand side of op ANY/ALL.
func (c Context) SubLinkTest(op string) Context {
	n := c.child(SubLinkTest)
	n.Op = op
	return n
}

// String renders the context for diagnostics.
func (c Context) String() string {
	switch c.Kind {
	case OperandOf:
		return fmt.Sprintf("%s(%s, %d)", c.Kind, c.Op, c.Position)
	case FunctionArgument:
		return fmt.Sprintf("%s(%s, %d)", c.Kind, c.Func, c.Position)
	case SubLinkTest:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Op)
	case ChainHead:
		return fmt.Sprintf("%s(%d)", c.Kind, c.ChainDepth)
	default:
		return c.Kind.String()
	}
}
