package binder

import (
	"strconv"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// bindConst types a literal. Integers take the narrowest of int4 and int8
// that holds them, other numbers the default numeric type. Strings and NULL
// stay untyped until a parent demands a type.
func (b *Binder) bindConst(n *core.Const) (bound.Expr, error) {
	switch n.Kind {
	case core.LiteralString:
		return &bound.Const{Type: core.TypeUnknown, Mod: core.NoTypeMod, Value: n.Value, Literal: n.Value, Loc: n.Loc}, nil

	case core.LiteralNull:
		return &bound.Const{Type: core.TypeUnknown, Mod: core.NoTypeMod, IsNull: true, Literal: "NULL", Loc: n.Loc}, nil

	case core.LiteralBool:
		v, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, core.Errorf(core.ErrMalformedNode, n.Value, "invalid boolean literal %q", n.Value)
		}
		return &bound.Const{Type: core.TypeBool, Mod: core.NoTypeMod, Value: v, Literal: n.Value, Loc: n.Loc}, nil

	case core.LiteralInteger:
		target := b.numeric
		if _, err := strconv.ParseInt(n.Value, 10, 32); err == nil {
			target = core.TypeInt4
		} else if _, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			target = core.TypeInt8
		}
		return b.typedLiteral(n, target)

	case core.LiteralFloat:
		return b.typedLiteral(n, b.numeric)

	default:
		return nil, core.Errorf(core.ErrMalformedNode, n.Value, "unknown literal kind %s", n.Kind)
	}
}

func (b *Binder) typedLiteral(n *core.Const, target core.TypeTag) (bound.Expr, error) {
	untyped := &bound.Const{Type: core.TypeUnknown, Mod: core.NoTypeMod, Value: n.Value, Literal: n.Value, Loc: n.Loc}
	return b.engine.ResolveLiteral(untyped, target, core.NoTypeMod, false)
}

// bindParam types $n from the declared parameter types.
func (b *Binder) bindParam(n *core.ParamRef) (bound.Expr, error) {
	if n.Number < 1 {
		return nil, core.Errorf(core.ErrMalformedNode, "", "invalid parameter number %d", n.Number)
	}
	t := core.TypeUnknown
	if n.Number <= len(b.params) && b.params[n.Number-1] != core.TypeInvalid {
		t = b.params[n.Number-1]
	}
	return &bound.Param{Number: n.Number, Type: t, Loc: n.Loc}, nil
}
