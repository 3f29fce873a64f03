package binder

import (
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// typeNameResolver is implemented by catalogs that understand SQL type
// spellings and aliases, such as catalog.Memory.
type typeNameResolver interface {
	ResolveTypeName(name string) (*core.TypeInfo, bool)
}

// bindTypeCast binds CAST(x AS t) and x::t. The source is bound first, so an
// untyped literal is resolved straight to the target type.
func (b *Binder) bindTypeCast(n *core.TypeCast, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if n.Arg == nil || n.Type == nil || n.Type.Name == "" {
		return nil, core.Errorf(core.ErrMalformedNode, "", "cast requires an argument and a type")
	}

	info, mod, err := b.ResolveType(n.Type)
	if err != nil {
		return nil, err
	}

	src, err := b.bindExpr(n.Arg, sc, ctx.CastSource())
	if err != nil {
		return nil, err
	}

	out, err := b.engine.Cast(src, info.Tag, mod)
	if err != nil {
		return nil, err
	}
	if c, ok := out.(*bound.Cast); ok {
		c.Loc = n.Loc
	}
	return out, nil
}

// ResolveType maps a declared type name and its modifiers onto a catalog
// type. An unknown name fails with ErrAmbiguousOrUnknownName and modifiers
// the type cannot take with ErrMalformedNode.
func (b *Binder) ResolveType(tn *core.TypeName) (*core.TypeInfo, core.TypeMod, error) {
	var (
		info *core.TypeInfo
		ok   bool
	)
	if r, isResolver := b.cat.(typeNameResolver); isResolver {
		info, ok = r.ResolveTypeName(tn.Name)
	} else {
		info, ok = b.cat.LookupType(core.TypeTag(catalog.CanonicalTypeName(tn.Name)))
	}
	if !ok {
		return nil, core.NoTypeMod, core.Errorf(core.ErrAmbiguousOrUnknownName, tn.Name,
			"type %q does not exist", tn.Name)
	}

	mod, err := catalog.TypeModFor(info, tn.Mods)
	if err != nil {
		return nil, core.NoTypeMod, core.Errorf(core.ErrMalformedNode, tn.Name, "%s", err.Error())
	}
	return info, mod, nil
}
