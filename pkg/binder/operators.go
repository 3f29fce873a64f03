package binder

import (
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

func (b *Binder) bindAExpr(n *core.AExpr, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	switch n.Kind {
	case core.ExprOp:
		return b.bindOperator(n, sc, ctx)

	case core.ExprAnd, core.ExprOr:
		if n.Left == nil || n.Right == nil {
			return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "%s requires two operands", n.Kind)
		}
		kind := bound.BoolAnd
		if n.Kind == core.ExprOr {
			kind = bound.BoolOr
		}
		left, err := b.bindExpr(n.Left, sc, ctx.Condition())
		if err != nil {
			return nil, err
		}
		right, err := b.bindExpr(n.Right, sc, ctx.Condition())
		if err != nil {
			return nil, err
		}
		return &bound.BoolExpr{Kind: kind, Args: []bound.Expr{left, right}, Loc: n.Loc}, nil

	case core.ExprNot:
		if n.Right == nil || n.Left != nil {
			return nil, core.Errorf(core.ErrMalformedNode, "NOT", "NOT requires exactly one operand")
		}
		arg, err := b.bindExpr(n.Right, sc, ctx.Condition())
		if err != nil {
			return nil, err
		}
		return &bound.BoolExpr{Kind: bound.BoolNot, Args: []bound.Expr{arg}, Loc: n.Loc}, nil

	case core.ExprIsNull, core.ExprNotNull:
		if n.Left == nil || n.Right != nil {
			return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "%s requires exactly one operand", n.Kind)
		}
		arg, err := b.bindExpr(n.Left, sc, ctx.Operand(n.Kind.String(), 0))
		if err != nil {
			return nil, err
		}
		// Any type can be tested; an untyped operand is settled as text.
		if arg, err = b.settle(arg); err != nil {
			return nil, err
		}
		return &bound.NullTest{Arg: arg, Negated: n.Kind == core.ExprNotNull, Loc: n.Loc}, nil

	default:
		return nil, core.Errorf(core.ErrMalformedNode, "", "unknown expression kind %d", int(n.Kind))
	}
}

func (b *Binder) bindOperator(n *core.AExpr, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if n.Op == "" {
		return nil, core.Errorf(core.ErrMalformedNode, "", "operator without a name")
	}
	var operands []core.RawExpr
	switch {
	case n.Right == nil:
		return nil, core.Errorf(core.ErrMalformedNode, n.Op, "operator %s is missing its right operand", n.Op)
	case n.IsPrefix():
		operands = []core.RawExpr{n.Right}
	default:
		operands = []core.RawExpr{n.Left, n.Right}
	}

	args := make([]bound.Expr, len(operands))
	for i, operand := range operands {
		arg, err := b.bindExpr(operand, sc, ctx.Operand(n.Op, i))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	m, err := b.engine.ResolveOverload(n.Op, b.cat.LookupOperatorSignatures(n.Op, len(args)), args)
	if err != nil {
		return nil, err
	}
	return &bound.OpExpr{Op: n.Op, Args: m.Args, Result: m.Signature.Result, Loc: n.Loc}, nil
}

func (b *Binder) bindFuncCall(n *core.FuncCall, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if n.Name == "" {
		return nil, core.Errorf(core.ErrMalformedNode, "", "function call without a name")
	}
	if n.Star && len(n.Args) > 0 {
		return nil, core.Errorf(core.ErrMalformedNode, n.Name, "%s(*) cannot take arguments", n.Name)
	}

	args := make([]bound.Expr, len(n.Args))
	for i, a := range n.Args {
		arg, err := b.bindExpr(a, sc, ctx.Argument(n.Name, i))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	m, err := b.engine.ResolveOverload(n.Name, b.cat.LookupFunctionSignatures(n.Name, len(args)), args)
	if err != nil {
		return nil, err
	}
	return &bound.FuncExpr{Name: m.Signature.Name, Args: m.Args, Star: n.Star, Result: m.Signature.Result, Loc: n.Loc}, nil
}
