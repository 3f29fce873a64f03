package format

import (
	"github.com/leapstack-labs/leapbind/pkg/bound"
)

// Expr renders e on one line. Conversions inserted by the binder appear as
// x::type and casts written in the source as CAST(x AS type).
func Expr(e bound.Expr) string {
	p := newPrinter()
	p.formatExpr(e)
	return p.line()
}

// Tree renders e as an indented tree, one node per line.
func Tree(e bound.Expr) string {
	p := newPrinter()
	p.formatTree(e)
	return p.String()
}
