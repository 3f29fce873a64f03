package format

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// formatTree writes e and its children, one node per line. Every line ends
// with ": type" as derived for that node.
func (p *Printer) formatTree(e bound.Expr) {
	if e == nil {
		return
	}

	var label string
	switch n := e.(type) {
	case *bound.Const:
		label = "Const " + constValue(n)
	case *bound.Var:
		label = fmt.Sprintf("Var %s.%s [rel=%d att=%d%s]", n.Relation, n.Name, n.RelIndex, n.AttNo, levels(n.LevelsUp))
	case *bound.RowRef:
		label = fmt.Sprintf("RowRef %s [rel=%d%s]", n.Relation, n.RelIndex, levels(n.LevelsUp))
	case *bound.FieldSelect:
		label = fmt.Sprintf("FieldSelect %s [field=%d]", n.Field, n.FieldNo)
	case *bound.OuterRef:
		label = "OuterRef [slot=" + strconv.Itoa(n.Slot) + "]"
	case *bound.OpExpr:
		label = "OpExpr " + n.Op
	case *bound.BoolExpr:
		label = "BoolExpr " + n.Kind.String()
	case *bound.NullTest:
		label = "NullTest IS NULL"
		if n.Negated {
			label = "NullTest IS NOT NULL"
		}
	case *bound.FuncExpr:
		label = "FuncExpr " + n.Name
		if n.Star {
			label += "(*)"
		}
	case *bound.Cast:
		kind := "explicit"
		if n.Implicit {
			kind = "implicit"
		}
		label = "Cast " + kind + " " + n.Method.String()
	case *bound.SubLink:
		label = "SubLink " + n.Kind.String()
		if n.Op != "" {
			label += " " + n.Op
		}
	case *bound.Param:
		label = "Param $" + strconv.Itoa(n.Number)
	case *bound.SubqueryColumn:
		label = "SubqueryColumn " + n.Name
	default:
		label = fmt.Sprintf("<%T>", e)
	}

	p.write(label + " : " + core.FormatType(bound.DeriveType(e), bound.DeriveTypeMod(e)))
	p.writeln()

	p.indent()
	for _, c := range bound.Children(e) {
		p.formatTree(c)
	}
	if s, ok := e.(*bound.SubLink); ok {
		p.write("subquery " + subqueryText(s.Subquery))
		p.writeln()
	}
	p.dedent()
}

func levels(n int) string {
	if n == 0 {
		return ""
	}
	return " up=" + strconv.Itoa(n)
}
