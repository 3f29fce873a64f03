package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

func (p *Printer) formatExpr(e bound.Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *bound.Const:
		p.formatConst(expr)
	case *bound.Var:
		p.write(expr.Relation + "." + expr.Name)
	case *bound.RowRef:
		p.write(expr.Relation + ".*")
	case *bound.FieldSelect:
		p.write("(")
		p.formatExpr(expr.Arg)
		p.write(")." + expr.Field)
	case *bound.OuterRef:
		p.write("outer[" + strconv.Itoa(expr.Slot) + "]:")
		p.formatExpr(expr.Ref)
	case *bound.OpExpr:
		p.formatOpExpr(expr)
	case *bound.BoolExpr:
		p.formatBoolExpr(expr)
	case *bound.NullTest:
		p.write("(")
		p.formatExpr(expr.Arg)
		if expr.Negated {
			p.write(" IS NOT NULL)")
		} else {
			p.write(" IS NULL)")
		}
	case *bound.FuncExpr:
		p.formatFuncExpr(expr)
	case *bound.Cast:
		p.formatCast(expr)
	case *bound.SubLink:
		p.formatSubLink(expr)
	case *bound.Param:
		p.write("$" + strconv.Itoa(expr.Number))
	case *bound.SubqueryColumn:
		p.write(expr.Name)
	default:
		p.write(fmt.Sprintf("<%T>", e))
	}
}

// formatConst writes the value. Literals whose type is not the one a bare
// literal of the same spelling would get carry a ::type suffix.
func (p *Printer) formatConst(c *bound.Const) {
	p.write(constValue(c))
	if c.IsNull || (c.Type != core.TypeInt4 && c.Type != core.TypeBool) {
		p.write("::" + core.FormatType(c.Type, c.Mod))
	}
}

func constValue(c *bound.Const) string {
	if c.IsNull {
		return "NULL"
	}
	switch v := c.Value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		if c.Type == core.TypeDate {
			return quote(v.Format(time.DateOnly))
		}
		return quote(v.Format("2006-01-02 15:04:05.999999999"))
	case string:
		return quote(v)
	default:
		return c.Literal
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *Printer) formatOpExpr(op *bound.OpExpr) {
	p.write("(")
	if len(op.Args) == 1 {
		p.write(op.Op)
		p.formatExpr(op.Args[0])
	} else {
		p.formatList(len(op.Args), func(i int) {
			p.formatExpr(op.Args[i])
		}, " "+op.Op+" ")
	}
	p.write(")")
}

func (p *Printer) formatBoolExpr(b *bound.BoolExpr) {
	p.write("(")
	if b.Kind == bound.BoolNot {
		p.write("NOT ")
		p.formatExpr(b.Args[0])
	} else {
		p.formatList(len(b.Args), func(i int) {
			p.formatExpr(b.Args[i])
		}, " "+b.Kind.String()+" ")
	}
	p.write(")")
}

func (p *Printer) formatFuncExpr(f *bound.FuncExpr) {
	p.write(f.Name + "(")
	if f.Star {
		p.write("*")
	}
	p.formatList(len(f.Args), func(i int) {
		p.formatExpr(f.Args[i])
	}, ", ")
	p.write(")")
}

func (p *Printer) formatCast(c *bound.Cast) {
	target := core.FormatType(c.Target, c.Mod)
	if c.Implicit {
		p.formatExpr(c.Arg)
		p.write("::" + target)
		return
	}
	p.write("CAST(")
	p.formatExpr(c.Arg)
	p.write(" AS " + target + ")")
}

func (p *Printer) formatSubLink(s *bound.SubLink) {
	sub := "(" + subqueryText(s.Subquery) + ")"
	switch s.Kind {
	case core.SubLinkExists:
		p.write("EXISTS " + sub)
	case core.SubLinkExpr:
		p.write(sub)
	default:
		// A converted output column shows the type it is compared as.
		if _, plain := s.Row.(*bound.SubqueryColumn); s.Row != nil && !plain {
			sub += "::" + core.FormatType(bound.DeriveType(s.Row), bound.DeriveTypeMod(s.Row))
		}
		p.write("(")
		p.formatExpr(s.Test)
		p.write(" " + s.Op + " " + s.Kind.String() + " " + sub + ")")
	}
}

// subqueryText renders a sub-query plan. Plans that know how to print
// themselves implement fmt.Stringer.
func subqueryText(plan any) string {
	if s, ok := plan.(fmt.Stringer); ok {
		return s.String()
	}
	return "SELECT ..."
}
