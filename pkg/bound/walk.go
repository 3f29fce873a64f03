package bound

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *FieldSelect:
		return []Expr{n.Arg}
	case *OuterRef:
		return []Expr{n.Ref}
	case *OpExpr:
		return n.Args
	case *FuncExpr:
		return n.Args
	case *BoolExpr:
		return n.Args
	case *NullTest:
		return []Expr{n.Arg}
	case *Cast:
		return []Expr{n.Arg}
	case *SubLink:
		var out []Expr
		if n.Test != nil {
			out = append(out, n.Test)
		}
		if n.Row != nil {
			out = append(out, n.Row)
		}
		return out
	}
	return nil
}

// Walk visits e and its descendants depth first. If fn returns false the
// children of that node are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range Children(e) {
		Walk(child, fn)
	}
}

// CollectVars returns every column reference in e, including those wrapped
// by outer references.
func CollectVars(e Expr) []*Var {
	var vars []*Var
	Walk(e, func(n Expr) bool {
		if v, ok := n.(*Var); ok {
			vars = append(vars, v)
		}
		return true
	})
	return vars
}
