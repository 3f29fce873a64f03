package binder

import (
	"log/slog"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// SubqueryBinder binds the sub-select of a sub-link. It is implemented by
// the statement orchestrator, which builds the sub-select's own scope as a
// child of outer so that correlated references resolve through it.
type SubqueryBinder interface {
	BindSubquery(subselect any, outer *scope.Scope) (*Subquery, error)
}

// Subquery is a bound sub-select.
type Subquery struct {
	Plan    any          // orchestrator-defined result, stored on the bound SubLink
	Columns []core.Field // output columns in order
}

func (b *Binder) bindSubLink(n *core.SubLink, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if n.Subselect == nil {
		return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "%s sub-link without a sub-select", n.Kind)
	}
	quantified := n.Kind == core.SubLinkAny || n.Kind == core.SubLinkAll
	if quantified && (n.Test == nil || n.Op == "") {
		return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "%s requires a test expression and an operator", n.Kind)
	}
	if !quantified && (n.Test != nil || n.Op != "") {
		return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "%s sub-link cannot have a test expression", n.Kind)
	}
	if b.subqueries == nil {
		return nil, core.Errorf(core.ErrMalformedNode, n.Kind.String(), "sub-queries are not supported here")
	}

	// The test is bound before the sub-select so that the slot numbers of
	// outer references follow source order.
	var test bound.Expr
	if quantified {
		var err error
		test, err = b.bindExpr(n.Test, sc, ctx.SubLinkTest(n.Op))
		if err != nil {
			return nil, err
		}
	}

	sq, err := b.subqueries.BindSubquery(n.Subselect, sc)
	if err != nil {
		return nil, err
	}

	out := &bound.SubLink{Kind: n.Kind, Subquery: sq.Plan, ResultMod: core.NoTypeMod, Loc: n.Loc}
	if n.Kind == core.SubLinkExists {
		return out, nil
	}

	if len(sq.Columns) != 1 {
		return nil, core.Errorf(core.ErrIncompatibleTypes, n.Kind.String(),
			"sub-query must return exactly one column, got %d", len(sq.Columns))
	}
	col := sq.Columns[0]

	if n.Kind == core.SubLinkExpr {
		out.Result = col.Type
		out.ResultMod = col.Mod
		return out, nil
	}

	// op ANY/ALL compares the test with every row of the sub-query, so the
	// operator is resolved against the output column's type.
	row := &bound.SubqueryColumn{Name: col.Name, Type: col.Type, Mod: col.Mod, Loc: n.Loc}
	m, err := b.engine.ResolveOverload(n.Op, b.cat.LookupOperatorSignatures(n.Op, 2), []bound.Expr{test, row})
	if err != nil {
		return nil, err
	}
	if m.Signature.Result != core.TypeBool {
		return nil, core.Errorf(core.ErrIncompatibleTypes, n.Op,
			"operator %s used with %s must return boolean, not %s", n.Op, n.Kind, m.Signature.Result)
	}

	b.logger.Debug("resolved quantified comparison",
		slog.String("op", n.Op),
		slog.String("kind", n.Kind.String()),
		slog.String("column", string(col.Type)),
		slog.String("compared_as", string(bound.DeriveType(m.Args[1]))))

	out.Test = m.Args[0]
	out.Row = m.Args[1]
	out.Op = n.Op
	out.OpSig = m.Signature
	return out, nil
}
