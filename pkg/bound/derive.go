package bound

import "github.com/leapstack-labs/leapbind/pkg/core"

// DeriveType returns the type tag of a bound node. It is a pure function of
// the node's kind and the types already settled on it and its children, so
// re-deriving the type of the same node always yields the same tag.
func DeriveType(e Expr) core.TypeTag {
	switch n := e.(type) {
	case *Const:
		return n.Type
	case *Var:
		return n.Type
	case *RowRef:
		return n.Type
	case *FieldSelect:
		return n.Type
	case *OuterRef:
		return DeriveType(n.Ref)
	case *OpExpr:
		return n.Result
	case *FuncExpr:
		return n.Result
	case *BoolExpr, *NullTest:
		return core.TypeBool
	case *Cast:
		return n.Target
	case *SubLink:
		if n.Kind == core.SubLinkExpr {
			return n.Result
		}
		return core.TypeBool
	case *Param:
		return n.Type
	case *SubqueryColumn:
		return n.Type
	default:
		return core.TypeInvalid
	}
}

// DeriveTypeMod returns the type modifier of a bound node, or
// core.NoTypeMod when the node's kind does not preserve one.
func DeriveTypeMod(e Expr) core.TypeMod {
	switch n := e.(type) {
	case *Const:
		return n.Mod
	case *Var:
		return n.Mod
	case *FieldSelect:
		return n.Mod
	case *OuterRef:
		return DeriveTypeMod(n.Ref)
	case *Cast:
		return n.Mod
	case *SubqueryColumn:
		return n.Mod
	case *SubLink:
		if n.Kind == core.SubLinkExpr {
			return n.ResultMod
		}
		return core.NoTypeMod
	default:
		return core.NoTypeMod
	}
}

// IsUntyped reports whether e is an untyped literal or parameter that still
// awaits a type from its context.
func IsUntyped(e Expr) bool {
	return DeriveType(e) == core.TypeUnknown
}
